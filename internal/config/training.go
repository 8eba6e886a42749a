package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	ProfilePricing  = "pricing"
	ProfileBaseline = "baseline"

	ModelLinear           = "linear"
	ModelDecisionTree     = "decision_tree"
	ModelRandomForest     = "random_forest"
	ModelGradientBoosting = "gradient_boosting"
)

// TrainingConfig describes one training run: which columns feed the model,
// how the split is drawn and which regressors compete.
type TrainingConfig struct {
	Profile            string            `yaml:"profile"`
	Target             string            `yaml:"target"`
	RequiredColumns    []string          `yaml:"required_columns"`
	CategoricalColumns []string          `yaml:"categorical_columns"`
	NumericColumns     []string          `yaml:"numeric_columns"`
	ImputeColumns      []string          `yaml:"impute_columns"`
	TopK               int               `yaml:"top_k"`
	ValidationFraction float64           `yaml:"validation_fraction"`
	Seed               int64             `yaml:"seed"`
	MinRows            int               `yaml:"min_rows"`
	ServeModel         string            `yaml:"serve_model"`
	Candidates         []CandidateConfig `yaml:"candidates"`
}

// CandidateConfig holds hyperparameters for one regressor. Fields that do not
// apply to a kind are ignored.
type CandidateConfig struct {
	Name           string  `yaml:"name"`
	Kind           string  `yaml:"kind"`
	Trees          int     `yaml:"trees"`
	MaxDepth       int     `yaml:"max_depth"`
	MinSamplesLeaf int     `yaml:"min_samples_leaf"`
	Iterations     int     `yaml:"iterations"`
	LearningRate   float64 `yaml:"learning_rate"`
	L2LeafReg      float64 `yaml:"l2_leaf_reg"`
	EarlyStopping  int     `yaml:"early_stopping_rounds"`
	Ridge          float64 `yaml:"ridge"`
}

// DefaultTrainingConfig mirrors the production pricing model: a native-categorical
// boosted model served, with a forest and a linear model as comparison baselines.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Profile:            ProfilePricing,
		Target:             "price_sold",
		RequiredColumns:    []string{"price_sold", "product_name", "location", "type", "portion_size", "age_group"},
		CategoricalColumns: []string{"location", "type", "age_group", "category_id", "portion_bucket"},
		NumericColumns:     []string{"portion_numeric", "base_price", "cost"},
		ImputeColumns:      []string{"portion_numeric", "base_price", "cost"},
		TopK:               20,
		ValidationFraction: 0.2,
		Seed:               42,
		MinRows:            10,
		ServeModel:         ModelGradientBoosting,
		Candidates: []CandidateConfig{
			{Name: ModelGradientBoosting, Kind: ModelGradientBoosting, Iterations: 2000, LearningRate: 0.03, MaxDepth: 7, L2LeafReg: 5, EarlyStopping: 100, MinSamplesLeaf: 1},
			{Name: ModelRandomForest, Kind: ModelRandomForest, Trees: 200, MinSamplesLeaf: 1},
			{Name: ModelLinear, Kind: ModelLinear, Ridge: 1e-6},
		},
	}
}

// BaselineTrainingConfig is the lightweight product-level benchmark: top-5
// encoding of product strings plus calendar fields, linear vs. shallow tree.
func BaselineTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Profile:            ProfileBaseline,
		Target:             "price_sold",
		RequiredColumns:    []string{"price_sold"},
		CategoricalColumns: []string{"product_name", "category_name", "portion_size"},
		NumericColumns:     []string{"product_id", "category_id", "units_sold", "revenue", "year", "month", "day_of_week"},
		TopK:               5,
		ValidationFraction: 0.25,
		Seed:               42,
		MinRows:            30,
		Candidates: []CandidateConfig{
			{Name: "LinearRegression", Kind: ModelLinear, Ridge: 1e-6},
			{Name: "DecisionTree", Kind: ModelDecisionTree, MaxDepth: 6, MinSamplesLeaf: 1},
		},
	}
}

// LoadTrainingConfig reads the YAML file at path. A missing file yields the
// defaults; a present but malformed file is an error.
func LoadTrainingConfig(path string) (TrainingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultTrainingConfig(), nil
		}
		return TrainingConfig{}, fmt.Errorf("read training config %s: %w", path, err)
	}

	var head struct {
		Profile string `yaml:"profile"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return TrainingConfig{}, fmt.Errorf("parse training config %s: %w", path, err)
	}

	cfg := DefaultTrainingConfig()
	if head.Profile == ProfileBaseline {
		cfg = BaselineTrainingConfig()
	}
	// Fields present in the file override the profile defaults.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return TrainingConfig{}, fmt.Errorf("parse training config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return TrainingConfig{}, fmt.Errorf("training config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks internal consistency of a training configuration
func (c TrainingConfig) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target is required")
	}
	if len(c.CategoricalColumns)+len(c.NumericColumns) == 0 {
		return fmt.Errorf("at least one feature column is required")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive")
	}
	if c.ValidationFraction <= 0 || c.ValidationFraction >= 1 {
		return fmt.Errorf("validation_fraction must be in (0, 1)")
	}
	if c.MinRows < 2 {
		return fmt.Errorf("min_rows must be at least 2")
	}
	if len(c.Candidates) == 0 {
		return fmt.Errorf("at least one candidate model is required")
	}
	seen := make(map[string]bool, len(c.Candidates))
	for _, cand := range c.Candidates {
		switch cand.Kind {
		case ModelLinear, ModelDecisionTree, ModelRandomForest, ModelGradientBoosting:
		default:
			return fmt.Errorf("candidate %q has unknown kind %q", cand.Name, cand.Kind)
		}
		if cand.Name == "" {
			return fmt.Errorf("candidate of kind %q has no name", cand.Kind)
		}
		if seen[cand.Name] {
			return fmt.Errorf("duplicate candidate name %q", cand.Name)
		}
		seen[cand.Name] = true
	}
	if c.ServeModel != "" && !seen[c.ServeModel] {
		return fmt.Errorf("serve_model %q is not a configured candidate", c.ServeModel)
	}
	return nil
}
