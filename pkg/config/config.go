// Package config provides configuration loading and validation for deckforge.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Static error variables for configuration failures.
var (
	ErrWeightsOutOfTolerance = errors.New("score weights must sum to 1.0")
	ErrMissingAPIKey         = errors.New("an OpenAI API key is required when mock mode is disabled")
)

// Behavior controls retry budgets, timeouts and the quality target of a run.
type Behavior struct {
	MaxScriptRetries         int           `yaml:"max_script_retries"         validate:"min=0"`
	MaxImprovementIterations int           `yaml:"max_improvement_iterations" validate:"min=0"`
	ExecutionTimeout         time.Duration `yaml:"execution_timeout"          validate:"gt=0"`
	TargetScoreThreshold     float64       `yaml:"target_score_threshold"     validate:"gte=0,lte=100"`
}

// Weights are the per-criterion multipliers used to aggregate a score.
// They must sum to 1.0 within a small floating tolerance; validation happens
// once at configuration time, not per score.
type Weights struct {
	Completeness    float64 `yaml:"completeness"     validate:"gte=0"`
	ContentAccuracy float64 `yaml:"content_accuracy" validate:"gte=0"`
	LayoutMatch     float64 `yaml:"layout_match"     validate:"gte=0"`
	VisualQuality   float64 `yaml:"visual_quality"   validate:"gte=0"`
}

// Total returns the weight sum. Aggregation divides by this value rather than
// assuming exactly 1.0, so minor configuration drift does not fail scoring.
func (w Weights) Total() float64 {
	return w.Completeness + w.ContentAccuracy + w.LayoutMatch + w.VisualQuality
}

// Validate checks the weight sum tolerance.
func (w Weights) Validate() error {
	total := w.Total()
	if total < 0.99 || total > 1.01 {
		return fmt.Errorf("%w: got %.4f", ErrWeightsOutOfTolerance, total)
	}

	return nil
}

// Runtime controls how generated scripts are launched.
type Runtime struct {
	UseUV               bool   `yaml:"use_uv"`
	UVExecutable        string `yaml:"uv_executable"`
	PythonExecutable    string `yaml:"python_executable" validate:"required"`
	AllowPythonFallback bool   `yaml:"allow_python_fallback"`
}

// OpenAI configures the LLM backend for generation and evaluation.
type OpenAI struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"        validate:"required"`
	VisionModel     string `yaml:"vision_model" validate:"required"`
	Mock            bool   `yaml:"mock"`
	ReasoningEffort string `yaml:"reasoning_effort" validate:"oneof=minimal low medium high"`
	UseAzure        bool   `yaml:"use_azure"`
	AzureEndpoint   string `yaml:"azure_endpoint"`
	AzureAPIVersion string `yaml:"azure_api_version"`
}

// Settings is the full deckforge configuration supplied at construction time.
type Settings struct {
	OutputDir string   `yaml:"output_dir" validate:"required"`
	OpenAI    OpenAI   `yaml:"openai"`
	Behavior  Behavior `yaml:"behavior"`
	Runtime   Runtime  `yaml:"runtime"`
	Weights   Weights  `yaml:"weights"`
}

// Defaults returns the baseline settings before flag and file overrides.
func Defaults() Settings {
	return Settings{
		OutputDir: "runs",
		OpenAI: OpenAI{
			Model:           "gpt-4o-mini",
			VisionModel:     "gpt-4o-mini",
			Mock:            true,
			ReasoningEffort: "medium",
		},
		Behavior: Behavior{
			MaxScriptRetries:         3,
			MaxImprovementIterations: 2,
			ExecutionTimeout:         120 * time.Second,
			TargetScoreThreshold:     80,
		},
		Runtime: Runtime{
			UseUV:               true,
			UVExecutable:        "uv",
			PythonExecutable:    "python3",
			AllowPythonFallback: true,
		},
		Weights: Weights{
			Completeness:    0.3,
			ContentAccuracy: 0.3,
			LayoutMatch:     0.25,
			VisualQuality:   0.15,
		},
	}
}

// Validate checks struct constraints, the weight sum tolerance and the
// API key requirement for live mode.
func (s *Settings) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if err := s.Weights.Validate(); err != nil {
		return err
	}

	if !s.OpenAI.Mock && s.OpenAI.APIKey == "" {
		return ErrMissingAPIKey
	}

	return nil
}

// LoadFile overlays settings from a YAML file on top of the given base.
func LoadFile(path string, base Settings) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	settings := base
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return base, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return settings, nil
}
