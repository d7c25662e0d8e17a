// serve.go implements "greenroom serve": the HTTP service hosting the
// follow-up and summarization collaborators and the session store.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/greenroom-hq/greenroom/internal/anthropic"
	"github.com/greenroom-hq/greenroom/internal/config"
	"github.com/greenroom-hq/greenroom/internal/domain"
	"github.com/greenroom-hq/greenroom/internal/followup"
	"github.com/greenroom-hq/greenroom/internal/metrics"
	"github.com/greenroom-hq/greenroom/internal/server"
	"github.com/greenroom-hq/greenroom/internal/storage/sqldb"
	"github.com/greenroom-hq/greenroom/internal/summarize"
	"github.com/greenroom-hq/greenroom/internal/telemetry"
	"github.com/greenroom-hq/greenroom/internal/tokens"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interview collaborator API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	shutdownTracer, err := telemetry.InitTracer("greenroom", logger)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	if dir := filepath.Dir(cfg.DB.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}
	store, err := sqldb.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	var generator domain.FollowupGenerator
	if cfg.Anthropic.APIKey != "" {
		genOpts := []followup.GeneratorOption{
			followup.WithModel(cfg.Anthropic.Model),
			followup.WithMaxTokens(cfg.Anthropic.MaxTokens),
			followup.WithAnswerBudget(cfg.Followups.AnswerBudgetTokens),
		}
		if truncator, err := tokens.NewTruncator(); err != nil {
			logger.Warn("tokenizer unavailable, skipping answer budgeting", slog.String("error", err.Error()))
		} else {
			genOpts = append(genOpts, followup.WithTruncator(truncator))
		}
		generator = followup.NewGenerator(anthropic.NewClient(cfg.Anthropic.APIKey), genOpts...)
	} else {
		logger.Warn("anthropic.api_key not set, follow-up generation disabled")
	}

	recorder := metrics.New()
	handler := server.NewHandler(generator, summarize.New(), store, recorder)

	srv := server.New(cfg.Server.Port, time.Duration(cfg.Server.TimeoutSec)*time.Second, logger)
	handler.Register(srv.Router)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
