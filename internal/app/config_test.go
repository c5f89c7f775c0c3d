package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourist-remover/internal/alignment"
	"tourist-remover/internal/blend"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	ao := cfg.AlignmentOptions()
	assert.Equal(t, alignment.DefaultMaxMatches, ao.MaxMatches)
	assert.Equal(t, alignment.DefaultReprojThreshold, ao.ReprojThreshold)
	assert.Equal(t, blend.BorderZero, cfg.BlendOptions().Border)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `show_intermediate: true
intermediate_dir: /tmp/steps
alignment:
  max_matches: 80
  seed: 9
blend:
  border: reflect101
  sequential: true
highlight:
  tint: "#ff00ff"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.ShowIntermediate)
	assert.Equal(t, 80, cfg.Alignment.MaxMatches)
	assert.Equal(t, int64(9), cfg.AlignmentOptions().Seed)
	// Unset fields keep their defaults.
	assert.Equal(t, alignment.DefaultIterations, cfg.Alignment.Iterations)
	assert.Equal(t, "green", cfg.Highlight.Outline)

	bo := cfg.BlendOptions()
	assert.Equal(t, blend.BorderReflect101, bo.Border)
	assert.True(t, bo.Sequential)
}

func TestConfigValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"matches":      func(c *Config) { c.Alignment.MaxMatches = 3 },
		"threshold":    func(c *Config) { c.Alignment.ReprojThreshold = 0 },
		"iterations":   func(c *Config) { c.Alignment.Iterations = -1 },
		"border":       func(c *Config) { c.Blend.Border = "wrap" },
		"tint":         func(c *Config) { c.Highlight.Tint = "chartreuse-ish" },
		"preview":      func(c *Config) { c.Preview.MaxSide = 0 },
		"intermediate": func(c *Config) { c.ShowIntermediate = true; c.IntermediateDir = "" },
	} {
		cfg := DefaultConfig()
		mutate(&cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, name)
	}
}
