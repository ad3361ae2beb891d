// Package config handles persistent application configuration for easel.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the persistent application configuration
type Config struct {
	// Image provider
	Pexels PexelsConfig `json:"pexels"`

	// LLM models backing the query generator and image evaluator
	Models ModelConfig `json:"models"`

	// Curation tunables
	Curation CurationConfig `json:"curation"`
}

// PexelsConfig holds the image search provider settings
type PexelsConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"` // Override for testing
}

// ModelConfig holds AI model settings
type ModelConfig struct {
	Claude ModelSettings `json:"claude"`
	OpenAI ModelSettings `json:"openai"`
}

// ModelSettings for a single AI provider
type ModelSettings struct {
	Enabled  bool   `json:"enabled"`
	APIKey   string `json:"api_key,omitempty"`
	Model    string `json:"model,omitempty"` // Specific model to use
	Priority int    `json:"priority"`        // Lower = higher priority for fallback
}

// CurationConfig holds the scoring and selection tunables.
//
// Zero values mean "use default" - see DefaultConfig().
type CurationConfig struct {
	PositiveBoost     float64 `json:"positive_boost"`      // Multiplier on positive feedback
	NegativeDecay     float64 `json:"negative_decay"`      // Multiplier on negative feedback
	FreshnessBonus    float64 `json:"freshness_bonus"`     // Additive weight for never-shown images
	MinScore          float64 `json:"min_score"`           // Floor for scores and weights
	MaxScore          float64 `json:"max_score"`           // Cap for scores
	ExcludeRecentDays int     `json:"exclude_recent_days"` // Recency exclusion lookback window
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Models: ModelConfig{
			Claude: ModelSettings{
				Enabled:  true,
				Priority: 1,
				Model:    "claude-sonnet-4-5-20250929",
			},
			OpenAI: ModelSettings{
				Enabled:  false,
				Priority: 2,
				Model:    "gpt-4o-mini",
			},
		},
		Curation: CurationConfig{
			PositiveBoost:     1.2,
			NegativeDecay:     0.8,
			FreshnessBonus:    0.1,
			MinScore:          0.1,
			MaxScore:          2.0,
			ExcludeRecentDays: 3,
		},
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".easel", "config.json")
}

// DataDir returns the directory holding the database and image cache.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".easel")
}

// Load reads config from disk, or returns defaults
func Load() (*Config, error) {
	path := ConfigPath()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults and try to auto-populate from environment
			cfg := DefaultConfig()
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), nil
	}

	cfg.fillCurationDefaults()
	cfg.AutoPopulateFromEnv()
	return &cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	path := ConfigPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // Restrictive permissions for API keys
}

// AutoPopulateFromEnv fills in API keys from environment variables
func (c *Config) AutoPopulateFromEnv() {
	if key := os.Getenv("PEXELS_API_KEY"); key != "" {
		c.Pexels.APIKey = key
	}
	if key := os.Getenv("CLAUDE_API_KEY"); key != "" {
		c.Models.Claude.APIKey = key
		c.Models.Claude.Enabled = true
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Models.Claude.APIKey = key
		c.Models.Claude.Enabled = true
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Models.OpenAI.APIKey = key
	}
}

// fillCurationDefaults replaces zero-valued tunables with their defaults so
// a hand-edited config file can omit fields it does not change.
func (c *Config) fillCurationDefaults() {
	d := DefaultConfig().Curation
	if c.Curation.PositiveBoost == 0 {
		c.Curation.PositiveBoost = d.PositiveBoost
	}
	if c.Curation.NegativeDecay == 0 {
		c.Curation.NegativeDecay = d.NegativeDecay
	}
	if c.Curation.FreshnessBonus == 0 {
		c.Curation.FreshnessBonus = d.FreshnessBonus
	}
	if c.Curation.MinScore == 0 {
		c.Curation.MinScore = d.MinScore
	}
	if c.Curation.MaxScore == 0 {
		c.Curation.MaxScore = d.MaxScore
	}
	if c.Curation.ExcludeRecentDays == 0 {
		c.Curation.ExcludeRecentDays = d.ExcludeRecentDays
	}
}
