package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/avbell/easel/internal/brain"
	"github.com/avbell/easel/internal/config"
	"github.com/avbell/easel/internal/curator"
	"github.com/avbell/easel/internal/pexels"
	"github.com/avbell/easel/internal/query"
	"github.com/avbell/easel/internal/reffilter"
	"github.com/avbell/easel/internal/scoring"
	"github.com/avbell/easel/internal/store"
)

// app bundles the wired components every subcommand needs.
type app struct {
	cfg     *config.Config
	store   *store.Store
	scorer  *scoring.Scorer
	curator *curator.Curator
}

// openApp loads config, opens the database, and wires the curation pipeline.
func openApp() *app {
	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}

	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fatalf("create data directory: %v", err)
	}

	st, err := store.Open(filepath.Join(dataDir, "easel.db"))
	if err != nil {
		fatalf("open database: %v", err)
	}

	llm := buildLLM(cfg)
	client := pexels.NewClient(cfg.Pexels.APIKey)
	if cfg.Pexels.BaseURL != "" {
		client.SetBaseURL(cfg.Pexels.BaseURL)
	}

	scorer := scoring.New(st, cfg.Curation)
	cur := curator.New(st, client,
		query.NewExpander(llm),
		reffilter.New(llm),
		scorer,
		cfg.Curation.ExcludeRecentDays)

	return &app{cfg: cfg, store: st, scorer: scorer, curator: cur}
}

func (a *app) close() {
	a.store.Close()
}

// buildLLM assembles the provider manager from config. A nil-equivalent
// manager (nothing available) is fine: expansion and filtering degrade.
func buildLLM(cfg *config.Config) *brain.Manager {
	mgr := brain.NewManager()
	if cfg.Models.Claude.Enabled && cfg.Models.Claude.APIKey != "" {
		mgr.Add(brain.NewClaudeProvider(cfg.Models.Claude.APIKey, cfg.Models.Claude.Model))
	}
	if cfg.Models.OpenAI.Enabled && cfg.Models.OpenAI.APIKey != "" {
		mgr.Add(brain.NewOpenAIProvider(cfg.Models.OpenAI.APIKey, cfg.Models.OpenAI.Model))
	}
	if cfg.Models.OpenAI.Priority < cfg.Models.Claude.Priority {
		mgr.SetPreferred("openai")
	} else {
		mgr.SetPreferred("claude")
	}
	return mgr
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "easel: "+format+"\n", args...)
	os.Exit(1)
}
