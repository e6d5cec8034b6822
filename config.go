package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"mindcanvas/internal/config"
	"mindcanvas/internal/editor"
	"mindcanvas/internal/keyboard"
	"mindcanvas/internal/logging"
	"mindcanvas/internal/storage"
)

// loadConfig reads the config file named by --config. --ephemeral swaps
// the storage for an in-memory backend.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if ephemeral {
		cfg.Storage.Driver = string(storage.DriverMemory)
	}
	return cfg, nil
}

// cliLogger logs to w, which is fine for the subcommands.
func cliLogger(cfg *config.Config, w io.Writer) *log.Logger {
	return logging.New(w, logLevel(cfg))
}

// tuiLogger logs to the configured file because the terminal belongs to
// the canvas. The closer is nil when nothing was opened.
func tuiLogger(cfg *config.Config) (*log.Logger, io.Closer, error) {
	if cfg.Log.File == "" {
		return logging.Discard(), nil, nil
	}
	logger, closer, err := logging.OpenFile(cfg.Log.File, logLevel(cfg))
	if err != nil {
		return logging.Discard(), nil, err
	}
	return logger, closer, nil
}

func logLevel(cfg *config.Config) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return cfg.LogLevel()
}

// openEditor opens the configured storage and the map stored in it.
func openEditor(ctx context.Context, cfg *config.Config, logger *log.Logger, ui keyboard.UI, sched keyboard.Scheduler) (*editor.Editor, error) {
	kv, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	repo := storage.NewRepository(kv, logger.WithPrefix("storage"))
	ed, err := editor.New(ctx, editor.Options{
		Repository:       repo,
		UI:               ui,
		Scheduler:        sched,
		Logger:           logger,
		MapSize:          cfg.MapSize(),
		Margin:           cfg.Canvas.Margin,
		MinSpacing:       cfg.Canvas.MinSpacing,
		AutosaveDebounce: cfg.Autosave.Debounce,
	})
	if err != nil {
		repo.Close()
		return nil, err
	}
	return ed, nil
}
