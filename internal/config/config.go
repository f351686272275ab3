// Package config assembles the per-subsystem settings into one document
// loadable from YAML. Zero values in a loaded file fall back to defaults
// field by field, so a partial file only overrides what it names.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/cognitive-core/internal/attention"
	"github.com/danielpatrickdp/cognitive-core/internal/audit"
	"github.com/danielpatrickdp/cognitive-core/internal/control"
	"github.com/danielpatrickdp/cognitive-core/internal/decide"
	"github.com/danielpatrickdp/cognitive-core/internal/episodic"
	"github.com/danielpatrickdp/cognitive-core/internal/latent"
	"github.com/danielpatrickdp/cognitive-core/internal/prune"
	"github.com/danielpatrickdp/cognitive-core/internal/qvalue"
	"github.com/danielpatrickdp/cognitive-core/internal/semantic"
	"github.com/danielpatrickdp/cognitive-core/internal/sensor"
	"github.com/danielpatrickdp/cognitive-core/internal/workmem"
)

// #region config
// Config is the full core configuration.
type Config struct {
	Dim       int    `yaml:"dim"`        // observation dimensionality
	Seed      int64  `yaml:"seed"`       // recurrence weight seed
	LogLevel  string `yaml:"log_level"`  // zap level string
	StorePath string `yaml:"store_path"` // sqlite snapshot archive, empty disables

	Sensor    sensor.Config    `yaml:"sensor"`
	Attention attention.Config `yaml:"attention"`
	Latent    latent.Config    `yaml:"latent"`
	Episodic  episodic.Config  `yaml:"episodic"`
	Semantic  semantic.Config  `yaml:"semantic"`
	Workmem   workmem.Config   `yaml:"workmem"`
	Prune     prune.Config     `yaml:"prune"`
	Qvalue    qvalue.Config    `yaml:"qvalue"`
	Decide    decide.Config    `yaml:"decide"`
	Audit     audit.Config     `yaml:"audit"`
	Control   control.Config   `yaml:"control"`
}

// Default returns a coherent configuration for a 16-dim observation space.
func Default() Config {
	dim := 16
	cfg := Config{
		Dim:       dim,
		Seed:      42,
		LogLevel:  "info",
		Sensor:    sensor.DefaultConfig(),
		Attention: attention.DefaultConfig(),
		Latent:    latent.DefaultConfig(),
		Episodic:  episodic.DefaultConfig(),
		Semantic:  semantic.DefaultConfig(),
		Workmem:   workmem.DefaultConfig(),
		Prune:     prune.DefaultConfig(),
		Qvalue:    qvalue.DefaultConfig(),
		Decide:    decide.DefaultConfig(),
		Audit:     audit.DefaultConfig(),
		Control:   control.DefaultConfig(),
	}
	cfg.Sensor.Dim = dim
	cfg.Attention.Dim = dim
	cfg.Latent.DimInput = dim
	cfg.Latent.Seed = cfg.Seed
	return cfg
}

// #endregion config

// #region load
// Load reads a YAML file over the defaults. A missing file is an error; an
// empty file yields the defaults.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.propagateDim()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// propagateDim pushes the top-level dim into the subsystems that must
// agree with it.
func (c *Config) propagateDim() {
	c.Sensor.Dim = c.Dim
	c.Attention.Dim = c.Dim
	c.Latent.DimInput = c.Dim
	c.Latent.Seed = c.Seed
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Dim <= 0 {
		return fmt.Errorf("dim must be positive, got %d", c.Dim)
	}
	if c.Latent.DimLatent <= 0 {
		return fmt.Errorf("latent dim must be positive, got %d", c.Latent.DimLatent)
	}
	if c.Latent.LeakRate < 0 || c.Latent.LeakRate >= 1 {
		return fmt.Errorf("leak rate must be in [0,1), got %g", c.Latent.LeakRate)
	}
	if c.Latent.NormCeiling <= 0 {
		return fmt.Errorf("norm ceiling must be positive, got %g", c.Latent.NormCeiling)
	}
	if c.Episodic.MaxEpisodes <= 0 {
		return fmt.Errorf("max episodes must be positive, got %d", c.Episodic.MaxEpisodes)
	}
	if c.Semantic.MaxConcepts <= 0 {
		return fmt.Errorf("max concepts must be positive, got %d", c.Semantic.MaxConcepts)
	}
	if c.Workmem.Capacity <= 0 {
		return fmt.Errorf("workmem capacity must be positive, got %d", c.Workmem.Capacity)
	}
	if c.Prune.SoftBound > c.Episodic.MaxEpisodes {
		return fmt.Errorf("prune soft bound %d exceeds max episodes %d", c.Prune.SoftBound, c.Episodic.MaxEpisodes)
	}
	if c.Audit.BlockThreshold >= c.Audit.PassThreshold {
		return fmt.Errorf("audit block threshold %g must be below pass threshold %g",
			c.Audit.BlockThreshold, c.Audit.PassThreshold)
	}
	if c.Audit.MaxSurprise <= 0 || c.Audit.MaxRisk <= 0 {
		return fmt.Errorf("audit hard limits must be positive, got surprise %g risk %g",
			c.Audit.MaxSurprise, c.Audit.MaxRisk)
	}
	if err := c.Control.Validate(); err != nil {
		return fmt.Errorf("control: %w", err)
	}
	return nil
}

// #endregion load
