package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lehigh-university-libraries/preprints/internal/app"
	"github.com/lehigh-university-libraries/preprints/internal/config"
)

// loadConfig reads and validates settings and installs the default logger.
// When logToFile is set, logs go to the state dir so they do not draw over
// the TUI.
func loadConfig(opts *rootOptions, logToFile bool) (*config.Config, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	level := parseLevel(cfg.LogLevel)
	if opts.verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if logToFile {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath()), 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create state dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, closer, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// withApp builds the application, runs fn and releases local state.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app.App) error) error {
	cfg, logs, err := loadConfig(opts, false)
	if err != nil {
		return err
	}
	defer logs.Close()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("Unable to close local state", "err", err)
		}
	}()
	return fn(a)
}

// withSession is withApp for commands that show catalog content.
func withSession(ctx context.Context, opts *rootOptions, fn func(*app.App) error) error {
	return withApp(ctx, opts, func(a *app.App) error {
		if err := a.RequireSession(ctx); err != nil {
			return err
		}
		return fn(a)
	})
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid preprint id %q", s)
	}
	return id, nil
}
