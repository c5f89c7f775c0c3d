package app

import (
	"errors"
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"

	"tourist-remover/internal/alignment"
	"tourist-remover/internal/blend"
	imgpkg "tourist-remover/internal/image"
	"tourist-remover/pkg/colorutil"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the orchestrator settings.
type Config struct {
	// ShowIntermediate makes align write highlight images to IntermediateDir.
	ShowIntermediate bool   `yaml:"show_intermediate"`
	IntermediateDir  string `yaml:"intermediate_dir"`

	Alignment AlignmentConfig `yaml:"alignment"`
	Blend     BlendConfig     `yaml:"blend"`
	Highlight HighlightConfig `yaml:"highlight"`
	Preview   PreviewConfig   `yaml:"preview"`

	Verbose bool `yaml:"verbose"`
}

// AlignmentConfig mirrors alignment.Options.
type AlignmentConfig struct {
	MaxMatches      int     `yaml:"max_matches"`
	ReprojThreshold float64 `yaml:"reproj_threshold"`
	Iterations      int     `yaml:"iterations"`
	Seed            int64   `yaml:"seed"`
}

// BlendConfig mirrors blend.Options.
type BlendConfig struct {
	Border     string `yaml:"border"`
	Sequential bool   `yaml:"sequential"`
}

// HighlightConfig sets overlay colors.
type HighlightConfig struct {
	Tint    string `yaml:"tint"`
	Outline string `yaml:"outline"`
}

// PreviewConfig sets preview scaling.
type PreviewConfig struct {
	MaxSide int `yaml:"max_side"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	ao := alignment.DefaultOptions()
	return Config{
		IntermediateDir: "intermediate",
		Alignment: AlignmentConfig{
			MaxMatches:      ao.MaxMatches,
			ReprojThreshold: ao.ReprojThreshold,
			Iterations:      ao.Iterations,
			Seed:            ao.Seed,
		},
		Blend:     BlendConfig{Border: blend.BorderZero.String()},
		Highlight: HighlightConfig{Tint: "yellow", Outline: "green"},
		Preview:   PreviewConfig{MaxSide: imgpkg.DefaultPreviewSide},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and that the named colors and border parse.
func (c Config) Validate() error {
	if c.Alignment.MaxMatches < alignment.MinCorrespondences {
		return fmt.Errorf("alignment.max_matches %d below %d: %w",
			c.Alignment.MaxMatches, alignment.MinCorrespondences, ErrInvalidConfig)
	}
	if c.Alignment.ReprojThreshold <= 0 {
		return fmt.Errorf("alignment.reproj_threshold must be positive: %w", ErrInvalidConfig)
	}
	if c.Alignment.Iterations <= 0 {
		return fmt.Errorf("alignment.iterations must be positive: %w", ErrInvalidConfig)
	}
	if _, err := blend.ParseBorder(c.Blend.Border); err != nil {
		return fmt.Errorf("blend.border: %v: %w", err, ErrInvalidConfig)
	}
	if _, err := colorutil.Parse(c.Highlight.Tint); err != nil {
		return fmt.Errorf("highlight.tint: %v: %w", err, ErrInvalidConfig)
	}
	if _, err := colorutil.Parse(c.Highlight.Outline); err != nil {
		return fmt.Errorf("highlight.outline: %v: %w", err, ErrInvalidConfig)
	}
	if c.Preview.MaxSide <= 0 {
		return fmt.Errorf("preview.max_side must be positive: %w", ErrInvalidConfig)
	}
	if c.ShowIntermediate && c.IntermediateDir == "" {
		return fmt.Errorf("intermediate_dir required with show_intermediate: %w", ErrInvalidConfig)
	}
	return nil
}

// AlignmentOptions converts the config for the alignment package.
func (c Config) AlignmentOptions() alignment.Options {
	opts := alignment.DefaultOptions()
	opts.MaxMatches = c.Alignment.MaxMatches
	opts.ReprojThreshold = c.Alignment.ReprojThreshold
	opts.Iterations = c.Alignment.Iterations
	opts.Seed = c.Alignment.Seed
	opts.Debug = c.Verbose
	return opts
}

// BlendOptions converts the config for the blend package. Call Validate first.
func (c Config) BlendOptions() blend.Options {
	opts := blend.DefaultOptions()
	opts.Border, _ = blend.ParseBorder(c.Blend.Border)
	opts.Sequential = c.Blend.Sequential
	opts.Debug = c.Verbose
	return opts
}

func (c Config) tint() color.Color {
	col, err := colorutil.Parse(c.Highlight.Tint)
	if err != nil {
		return colorutil.Yellow
	}
	return col
}

func (c Config) outline() color.Color {
	col, err := colorutil.Parse(c.Highlight.Outline)
	if err != nil {
		return colorutil.Green
	}
	return col
}
