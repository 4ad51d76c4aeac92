// Package app wires the record store, rollover and timer engine together and
// drives the periodic tick.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/streakr/internal/marker"
	"github.com/sadopc/streakr/internal/rollover"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timer"
	"github.com/sadopc/streakr/internal/timeutil"
	"github.com/sadopc/streakr/internal/xp"
)

type Options struct {
	DBPath  string
	Markers marker.Store
	Policy  xp.Policy
	Clock   timeutil.Clock
	Logger  *slog.Logger
	// TickInterval of zero disables the ticker; one-shot CLI commands do not
	// need it.
	TickInterval time.Duration
}

type App struct {
	Store    *store.Store
	Markers  marker.Store
	Engine   *timer.Engine
	Rollover rollover.Result

	logger *slog.Logger
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// Init opens the store, runs the daily rollover, restores the engine state
// and arms the ticker. Only a store that cannot be opened is fatal; rollover
// and hydration failures are logged and the app starts with what it has.
func Init(ctx context.Context, opts Options) (*App, error) {
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Markers == nil {
		opts.Markers = marker.NewMemory()
	}
	logger := opts.Logger

	s, err := store.New(opts.DBPath, store.WithClock(opts.Clock))
	if err != nil {
		logger.ErrorContext(ctx, "store_open_failed", "path", opts.DBPath, "error", err)
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{
		Store:   s,
		Markers: opts.Markers,
		logger:  logger,
		stop:    make(chan struct{}),
	}

	ro := rollover.New(s, opts.Markers, opts.Clock, logger)
	if a.Rollover, err = ro.Run(ctx); err != nil {
		logger.WarnContext(ctx, "rollover_failed", "error", err)
	}

	a.Engine = timer.New(timer.Options{
		Store:   s,
		Markers: opts.Markers,
		Policy:  opts.Policy,
		Clock:   opts.Clock,
		Logger:  logger,
	})
	if err := a.Engine.Hydrate(ctx); err != nil {
		logger.ErrorContext(ctx, "hydrate_failed", "error", err)
	}

	if opts.TickInterval > 0 {
		a.wg.Add(1)
		go a.tick(opts.TickInterval)
	}
	return a, nil
}

func (a *App) tick(every time.Duration) {
	defer a.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-t.C:
			a.Engine.Tick()
		}
	}
}

// Close stops the ticker and closes the store. It is safe to call more than
// once.
func (a *App) Close() error {
	var err error
	a.once.Do(func() {
		close(a.stop)
		a.wg.Wait()
		err = a.Store.Close()
	})
	return err
}
