/**
 * @description
 * Persisted model artifact: a fitted regressor plus the ordered input column
 * contract and the encoding spec it was trained with.
 *
 * @notes
 * - ".json" is the native self-contained form (used for the boosted model).
 * - ".gob" is the generic object serialization (used for forests and linear models).
 * - Writes go to a temp file and are renamed into place, so a reader never
 *   observes a half-written artifact.
 */

package artifact

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yerevan-pricing/backend/internal/features"
	"github.com/yerevan-pricing/backend/internal/regress"
)

// FormatVersion is bumped whenever the persisted layout changes.
const FormatVersion = 1

// Model kinds.
const (
	KindLinear           = "linear"
	KindDecisionTree     = "decision_tree"
	KindRandomForest     = "random_forest"
	KindGradientBoosting = "gradient_boosting"
)

// Encodings an artifact can expect its input in.
const (
	EncodingOneHot = "onehot"
	EncodingNative = "native"
)

// ErrModelUnavailable means the artifact is missing, unreadable or invalid.
var ErrModelUnavailable = errors.New("model unavailable")

// Artifact is created once per training run and read-only afterwards.
type Artifact struct {
	Version   int       `json:"format_version"`
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Candidate string    `json:"candidate"`
	Profile   string    `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
	Encoding  string    `json:"encoding"`
	// Columns is the exact ordered input the model was fit against.
	Columns            []string        `json:"columns"`
	CategoricalIndices []int           `json:"categorical_indices,omitempty"`
	Spec               features.Spec   `json:"spec"`
	Metrics            regress.Metrics `json:"metrics"`

	Linear  *regress.Linear  `json:"linear,omitempty"`
	Tree    *regress.Tree    `json:"tree,omitempty"`
	Forest  *regress.Forest  `json:"forest,omitempty"`
	Boosted *regress.Boosted `json:"boosted,omitempty"`
}

// New wraps a fitted model. Native artifacts take the encoding's native column
// order and categorical indices; all others take the one-hot columns.
func New(kind, candidate, profile string, model regress.Regressor, spec features.Spec, native bool) (*Artifact, error) {
	a := &Artifact{
		Version:   FormatVersion,
		ID:        uuid.New().String(),
		Kind:      kind,
		Candidate: candidate,
		Profile:   profile,
		CreatedAt: time.Now().UTC(),
		Spec:      spec,
	}
	if native {
		a.Encoding = EncodingNative
		a.Columns = spec.NativeColumns()
		a.CategoricalIndices = spec.CategoricalIndices()
	} else {
		a.Encoding = EncodingOneHot
		a.Columns = spec.OneHotColumns()
	}

	switch m := model.(type) {
	case *regress.Linear:
		a.Linear = m
	case *regress.Tree:
		a.Tree = m
	case *regress.Forest:
		a.Forest = m
	case *regress.Boosted:
		a.Boosted = m
	default:
		return nil, fmt.Errorf("artifact: unsupported model type %T", model)
	}
	return a, a.validate()
}

// Model returns the stored regressor.
func (a *Artifact) Model() regress.Regressor {
	switch {
	case a.Boosted != nil:
		return a.Boosted
	case a.Forest != nil:
		return a.Forest
	case a.Tree != nil:
		return a.Tree
	case a.Linear != nil:
		return a.Linear
	}
	return nil
}

// Native reports whether the model consumes categorical codes directly.
func (a *Artifact) Native() bool { return a.Encoding == EncodingNative }

func (a *Artifact) validate() error {
	if a.Model() == nil {
		return fmt.Errorf("%w: artifact %s holds no model", ErrModelUnavailable, a.ID)
	}
	if len(a.Columns) == 0 {
		return fmt.Errorf("%w: artifact %s has no input columns", ErrModelUnavailable, a.ID)
	}
	switch a.Encoding {
	case EncodingNative, EncodingOneHot:
	default:
		return fmt.Errorf("%w: artifact %s has unknown encoding %q", ErrModelUnavailable, a.ID, a.Encoding)
	}
	for _, i := range a.CategoricalIndices {
		if i < 0 || i >= len(a.Columns) {
			return fmt.Errorf("%w: categorical index %d out of range", ErrModelUnavailable, i)
		}
	}
	return nil
}

// Save writes the artifact in the format chosen by path's extension.
func (a *Artifact) Save(path string) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return fmt.Errorf("create artifact temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, format, a); err != nil {
		tmp.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install artifact: %w", err)
	}
	return nil
}

// Load reads an artifact. Every failure wraps ErrModelUnavailable.
func Load(path string) (*Artifact, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer f.Close()

	a := &Artifact{}
	switch format {
	case "json":
		err = json.NewDecoder(f).Decode(a)
	case "gob":
		err = gob.NewDecoder(f).Decode(a)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrModelUnavailable, path, err)
	}
	if a.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %s has format version %d, want %d", ErrModelUnavailable, path, a.Version, FormatVersion)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// PathFor returns the conventional artifact path of a candidate inside dir:
// boosted models use the native JSON form, everything else gob.
func PathFor(dir, name, kind string) string {
	base := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	if kind == KindGradientBoosting {
		return filepath.Join(dir, base+"_model.json")
	}
	return filepath.Join(dir, base+"_model.gob")
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".gob":
		return "gob", nil
	}
	return "", fmt.Errorf("artifact path %q must end in .json or .gob", path)
}

func encode(w io.Writer, format string, a *Artifact) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(a)
	}
	return gob.NewEncoder(w).Encode(a)
}
