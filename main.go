package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/sadopc/streakr/internal/app"
	"github.com/sadopc/streakr/internal/cli"
	"github.com/sadopc/streakr/internal/config"
	"github.com/sadopc/streakr/internal/marker"
	"github.com/sadopc/streakr/internal/timeutil"
	"github.com/sadopc/streakr/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file.
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.Level()}))

	clock := timeutil.SystemClock{}
	a, err := app.Init(ctx, app.Options{
		DBPath:       cfg.DBPath,
		Markers:      marker.NewFile(cfg.StatePath),
		Policy:       cfg.XP,
		Clock:        clock,
		Logger:       logger,
		TickInterval: cfg.TickInterval,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	root := cli.NewRootCmd(&cli.App{
		Engine:   a.Engine,
		Markers:  a.Markers,
		Config:   cfg,
		Clock:    clock,
		Rollover: a.Rollover,
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
		RunTUI: func(ctx context.Context) error {
			return tui.Run(ctx, a.Engine, clock)
		},
	})
	return root.ExecuteContext(ctx)
}
