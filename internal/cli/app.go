package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moltcourt/moltcourt/internal/arena"
	"github.com/moltcourt/moltcourt/internal/bus"
	"github.com/moltcourt/moltcourt/internal/config"
	"github.com/moltcourt/moltcourt/internal/jury"
	"github.com/moltcourt/moltcourt/internal/provider"
	"github.com/moltcourt/moltcourt/internal/store"
)

// loadConfig reads configuration and installs the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.Log, logOutput))
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	path, err := config.ExpandHome(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, store.Options{
		Driver: cfg.Database.Driver,
		Path:   path,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func newJury(ctx context.Context, cfg *config.Config) (*jury.Client, error) {
	llm, err := provider.Resolve(ctx, cfg.Oracle)
	if err != nil {
		return nil, err
	}
	return jury.New(llm, jury.Options{
		MaxTokens:     cfg.Oracle.MaxTokens,
		Temperature:   cfg.Oracle.Temperature,
		MaxConcurrent: cfg.Oracle.MaxConcurrent,
	}), nil
}

// offlineOracle backs read-only commands that never judge.
var offlineOracle = arena.OracleFunc(func(context.Context, *arena.ScoreRequest) (*arena.Verdict, error) {
	return nil, arena.NewError(arena.KindOracleUnavailable, "jury not configured", nil)
})

// openReadOnly opens the store behind a service with no jury attached.
func openReadOnly(ctx context.Context) (*arena.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return arena.NewService(st, offlineOracle), func() { st.Close() }, nil
}

// startBus runs eb until the returned stop func is called. Stop waits for
// queued events to be flushed.
func startBus(eb *bus.EventBus) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eb.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
