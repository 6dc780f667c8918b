// Package main provides the entry point for the documentation generator.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/festy23/mrdocgen/internal/accessibility"
	"github.com/festy23/mrdocgen/internal/analysis"
	"github.com/festy23/mrdocgen/internal/browser"
	"github.com/festy23/mrdocgen/internal/classifier"
	"github.com/festy23/mrdocgen/internal/config"
	"github.com/festy23/mrdocgen/internal/gitlab"
	"github.com/festy23/mrdocgen/internal/mergerequest/model"
	"github.com/festy23/mrdocgen/internal/output"
	"github.com/festy23/mrdocgen/internal/pipeline"
	"github.com/festy23/mrdocgen/internal/synthesizer"
	"github.com/festy23/mrdocgen/pkg/logger"
)

func main() {
	// os.Exit skips defers, so the whole run lives in a function that
	// returns the exit code after cleanup.
	os.Exit(run())
}

func run() int {
	// Missing .env is fine, environment variables may be set directly.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	zl, err := logger.NewWithConfig(cfg.Logger)
	if err != nil {
		log.Printf("failed to build logger: %v", err)
		return 1
	}
	defer zl.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refs, err := config.LoadTargets(cfg.Pipeline.TargetsFile, cfg.GitLab.BaseURL)
	if err != nil {
		zl.Errorw("failed to load targets", "file", cfg.Pipeline.TargetsFile, "error", err)
		return 1
	}
	zl.Infow("targets loaded", "count", len(refs), "file", cfg.Pipeline.TargetsFile)

	tables, err := browser.LoadStrategyTables(cfg.Browser.StrategyFile)
	if err != nil {
		zl.Errorw("failed to load strategy tables", "file", cfg.Browser.StrategyFile, "error", err)
		return 1
	}

	api := gitlab.New(cfg.GitLab, zl)

	// A dead browser only removes the UI fallback and the analysis channel.
	var session browser.Session
	remote, err := browser.NewRemote(ctx, cfg.Browser.RemoteURL, zl)
	if err != nil {
		zl.Warnw("browser session unavailable, running API-only", "error", err)
	} else {
		session = remote
		defer remote.Close(context.Background()) //nolint:errcheck
	}

	resolver := accessibility.New(api, session, tables,
		accessibility.NewConsolePrompter(os.Stdin, os.Stdout),
		cfg.Browser, cfg.GitLab.BaseURL, zl)

	var analyzer pipeline.Analyzer
	if cfg.Analysis.Enabled && session != nil {
		analyzer = analysis.NewOrchestrator(session, tables, cfg.Analysis,
			cfg.Browser.LocateTimeout, zl)
	} else {
		zl.Infow("analysis channel disabled, fallback synthesis only")
	}

	p, err := pipeline.New(pipeline.Deps{
		Resolver:    resolver,
		API:         api,
		Classifier:  classifier.New(zl),
		Analyzer:    analyzer,
		Synthesizer: synthesizer.New(10),
		Writer:      output.NewWriter(cfg.Pipeline.OutputDir, zl),
		Logger:      zl,
	}, cfg.Pipeline)
	if err != nil {
		zl.Errorw("failed to build pipeline", "error", err)
		return 1
	}

	results, err := p.Run(ctx, refs)
	if err != nil {
		zl.Errorw("run aborted", "error", err)
		return 1
	}

	var documented, fallback, failed int
	for _, result := range results {
		switch result.Outcome {
		case model.OutcomeDocumented:
			documented++
		case model.OutcomeFallback:
			fallback++
		default:
			failed++
		}
	}
	zl.Infow("run complete",
		"documented", documented, "fallback", fallback, "failed", failed)

	if documented+fallback == 0 {
		return 1
	}
	return 0
}
