/**
 * @description
 * Trainer: fetches joined rows from a Source, builds features, fits every
 * configured candidate on a reproducible split, evaluates them and persists
 * artifacts, metrics and plots.
 *
 * @dependencies
 * - internal/features: dataset construction and encoding spec
 * - internal/regress: candidate models and metrics
 * - internal/artifact: persistence
 *
 * @notes
 * - Native candidates (gradient boosting) get vocabulary codes plus the
 *   categorical indices; all others get the one-hot matrix.
 * - Plot failures are logged and never fail the run.
 */

package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yerevan-pricing/backend/internal/artifact"
	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/features"
	"github.com/yerevan-pricing/backend/internal/logger"
	"github.com/yerevan-pricing/backend/internal/regress"
)

// Source is the one capability the trainer needs from storage.
type Source interface {
	FetchTrainingFrame(ctx context.Context) (*features.Frame, error)
}

// Recorder persists a summary of a finished run.
type Recorder interface {
	RecordRun(ctx context.Context, res *Result) error
}

// Options control where a run writes its outputs.
type Options struct {
	// OutputDir receives per-candidate artifacts, metrics.json and plots.
	OutputDir string
	// ArtifactPath, when set, additionally receives the served model.
	ArtifactPath string
	Plots        bool
}

// CandidateResult is the evaluation of one fitted candidate.
type CandidateResult struct {
	Name         string          `json:"name"`
	Kind         string          `json:"kind"`
	Encoding     string          `json:"encoding"`
	Metrics      regress.Metrics `json:"metrics"`
	ArtifactPath string          `json:"artifact_path"`
	FitDuration  time.Duration   `json:"fit_duration"`

	predictions []float64
	artifact    *artifact.Artifact
}

// Result summarizes a training run.
type Result struct {
	RunID          string            `json:"run_id"`
	Profile        string            `json:"profile"`
	Rows           int               `json:"rows"`
	Dropped        int               `json:"dropped"`
	TrainRows      int               `json:"train_rows"`
	ValidationRows int               `json:"validation_rows"`
	Candidates     []CandidateResult `json:"candidates"`
	Served         string            `json:"served"`
	ArtifactPath   string            `json:"artifact_path"`
	MetricsPath    string            `json:"metrics_path"`
	Plots          []string          `json:"plots,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`

	Artifact *artifact.Artifact    `json:"-"`
	Params   config.TrainingConfig `json:"-"`
}

// ServedCandidate returns the result of the served model.
func (r *Result) ServedCandidate() (CandidateResult, bool) {
	for _, c := range r.Candidates {
		if c.Name == r.Served {
			return c, true
		}
	}
	return CandidateResult{}, false
}

// Trainer runs one training configuration against one source.
type Trainer struct {
	cfg      config.TrainingConfig
	source   Source
	opts     Options
	recorder Recorder
}

// NewTrainer creates a new Trainer
func NewTrainer(cfg config.TrainingConfig, source Source, opts Options) *Trainer {
	return &Trainer{cfg: cfg, source: source, opts: opts}
}

// WithRecorder attaches a run recorder.
func (t *Trainer) WithRecorder(r Recorder) *Trainer {
	t.recorder = r
	return t
}

// Run executes the whole pipeline. Data errors (features.ErrDataIntegrity,
// features.ErrInsufficientData) abort before anything is written.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("training config: %w", err)
	}
	res := &Result{RunID: uuid.New().String(), Profile: t.cfg.Profile, StartedAt: time.Now().UTC(), Params: t.cfg}

	frame, err := t.source.FetchTrainingFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch training data: %w", err)
	}
	logger.Info("Trainer: fetched %d rows (%d columns)", frame.Len(), len(frame.Columns()))

	ds, err := features.NewBuilder(BuilderOptions(t.cfg)).Build(frame)
	if err != nil {
		return nil, err
	}
	res.Rows = ds.Len()
	res.Dropped = ds.Dropped

	trainIdx, validIdx := Split(ds.Len(), t.cfg.ValidationFraction, t.cfg.Seed)
	res.TrainRows, res.ValidationRows = len(trainIdx), len(validIdx)
	logger.Info("Trainer: %d rows after cleaning (%d dropped), %d train / %d validation",
		res.Rows, res.Dropped, res.TrainRows, res.ValidationRows)

	trainTable, validTable := ds.Table.Subset(trainIdx), ds.Table.Subset(validIdx)
	yTrain, yValid := pick(ds.Target, trainIdx), pick(ds.Target, validIdx)

	outDir := t.outputDir()
	for _, cand := range t.cfg.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cr, err := t.fitCandidate(cand, ds.Spec, trainTable, validTable, yTrain, yValid)
		if err != nil {
			return nil, err
		}
		res.Candidates = append(res.Candidates, cr)
	}

	served, err := t.choose(res.Candidates)
	if err != nil {
		return nil, err
	}
	res.Served = served.Name
	res.Artifact = served.artifact

	// Every candidate is persisted only after all fits succeeded.
	for i := range res.Candidates {
		c := &res.Candidates[i]
		c.ArtifactPath = artifact.PathFor(outDir, c.Name, c.Kind)
		if err := c.artifact.Save(c.ArtifactPath); err != nil {
			return nil, fmt.Errorf("save %s artifact: %w", c.Name, err)
		}
	}
	res.ArtifactPath = servedPath(res, t.opts.ArtifactPath)
	if t.opts.ArtifactPath != "" {
		if err := served.artifact.Save(t.opts.ArtifactPath); err != nil {
			return nil, fmt.Errorf("save served artifact: %w", err)
		}
	}

	res.MetricsPath = filepath.Join(outDir, "metrics.json")
	if err := writeMetrics(res.MetricsPath, res.Candidates); err != nil {
		return nil, err
	}
	if t.opts.Plots {
		res.Plots = writePlots(outDir, yValid, res.Candidates)
	}
	res.FinishedAt = time.Now().UTC()

	for _, c := range res.Candidates {
		logger.Info("Trainer: %s RMSE=%.3f MAE=%.3f", c.Name, c.Metrics.RMSE, c.Metrics.MAE)
	}
	logger.Info("Trainer: serving %s from %s", res.Served, res.ArtifactPath)

	if t.recorder != nil {
		if err := t.recorder.RecordRun(ctx, res); err != nil {
			logger.Error("Trainer: failed to record run %s: %v", res.RunID, err)
		}
	}
	return res, nil
}

func (t *Trainer) outputDir() string {
	dir := t.opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if t.cfg.Profile == config.ProfileBaseline {
		dir = filepath.Join(dir, config.ProfileBaseline)
	}
	return dir
}

func (t *Trainer) fitCandidate(cand config.CandidateConfig, spec features.Spec, train, valid *features.Table, yTrain, yValid []float64) (CandidateResult, error) {
	native := cand.Kind == config.ModelGradientBoosting
	var xTrain, xValid [][]float64
	if native {
		xTrain, xValid = spec.Native(train), spec.Native(valid)
	} else {
		xTrain, xValid = spec.OneHot(train), spec.OneHot(valid)
	}

	start := time.Now()
	var model regress.Regressor
	switch cand.Kind {
	case config.ModelLinear:
		model = regress.NewLinear(cand.Ridge)
	case config.ModelDecisionTree:
		model = regress.NewTree(regress.TreeParams{MaxDepth: cand.MaxDepth, MinSamplesLeaf: cand.MinSamplesLeaf, Seed: t.cfg.Seed})
	case config.ModelRandomForest:
		model = regress.NewForest(cand.Trees, regress.TreeParams{MaxDepth: cand.MaxDepth, MinSamplesLeaf: cand.MinSamplesLeaf}, t.cfg.Seed)
	case config.ModelGradientBoosting:
		model = regress.NewBoosted(regress.BoostParams{
			Iterations:    cand.Iterations,
			LearningRate:  cand.LearningRate,
			MaxDepth:      cand.MaxDepth,
			L2LeafReg:     cand.L2LeafReg,
			EarlyStopping: cand.EarlyStopping,
			MinSamples:    cand.MinSamplesLeaf,
			Categorical:   spec.CategoricalIndices(),
			Seed:          t.cfg.Seed,
		})
	default:
		return CandidateResult{}, fmt.Errorf("candidate %s: unknown kind %q", cand.Name, cand.Kind)
	}

	var err error
	if b, ok := model.(*regress.Boosted); ok {
		err = b.FitEval(xTrain, yTrain, xValid, yValid)
	} else {
		err = model.Fit(xTrain, yTrain)
	}
	if err != nil {
		return CandidateResult{}, fmt.Errorf("fit %s: %w", cand.Name, err)
	}

	pred := regress.PredictAll(model, xValid)
	for _, p := range pred {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return CandidateResult{}, fmt.Errorf("fit %s: model produced non-finite predictions", cand.Name)
		}
	}
	a, err := artifact.New(cand.Kind, cand.Name, t.cfg.Profile, model, spec, native)
	if err != nil {
		return CandidateResult{}, err
	}
	a.Metrics = regress.Evaluate(pred, yValid)

	return CandidateResult{
		Name:        cand.Name,
		Kind:        cand.Kind,
		Encoding:    a.Encoding,
		Metrics:     a.Metrics,
		FitDuration: time.Since(start),
		predictions: pred,
		artifact:    a,
	}, nil
}

func (t *Trainer) choose(cands []CandidateResult) (CandidateResult, error) {
	if len(cands) == 0 {
		return CandidateResult{}, errors.New("no candidates were fitted")
	}
	if t.cfg.ServeModel != "" {
		for _, c := range cands {
			if c.Name == t.cfg.ServeModel {
				return c, nil
			}
		}
		return CandidateResult{}, fmt.Errorf("serve model %q was not fitted", t.cfg.ServeModel)
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Metrics.RMSE < best.Metrics.RMSE {
			best = c
		}
	}
	return best, nil
}

func servedPath(res *Result, override string) string {
	if override != "" {
		return override
	}
	c, _ := res.ServedCandidate()
	return c.ArtifactPath
}

// writeMetrics stores {candidate: metrics} as indented JSON.
func writeMetrics(path string, cands []CandidateResult) error {
	out := make(map[string]regress.Metrics, len(cands))
	for _, c := range cands {
		out[c.Name] = c.Metrics
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// BuilderOptions maps a training configuration onto the feature builder.
func BuilderOptions(cfg config.TrainingConfig) features.Options {
	return features.Options{
		Target:      cfg.Target,
		Required:    cfg.RequiredColumns,
		Categorical: cfg.CategoricalColumns,
		Numeric:     cfg.NumericColumns,
		Impute:      cfg.ImputeColumns,
		TopK:        cfg.TopK,
		MinRows:     cfg.MinRows,
	}
}

func pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = values[r]
	}
	return out
}
