// Package rollover flags incomplete tasks left over from earlier days, at most
// once per calendar day.
package rollover

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sadopc/streakr/internal/marker"
	"github.com/sadopc/streakr/internal/timeutil"
)

// Repository is the part of the task store the engine needs.
type Repository interface {
	MarkRollovers(ctx context.Context) (int, error)
}

type Result struct {
	Ran     bool
	Date    string
	Flagged int
}

type Engine struct {
	tasks   Repository
	markers marker.Store
	clock   timeutil.Clock
	logger  *slog.Logger
}

func New(tasks Repository, markers marker.Store, clock timeutil.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{tasks: tasks, markers: markers, clock: clock, logger: logger}
}

// ShouldRun reports whether rollover has not yet run today. A missing marker
// counts as not run.
func (e *Engine) ShouldRun() (bool, error) {
	last, err := e.markers.LastRollover()
	if err != nil {
		return false, fmt.Errorf("read rollover marker: %w", err)
	}
	return last != timeutil.TodayKey(e.clock), nil
}

// Run flags carried-over tasks and then records today as processed. The
// marker is written only after the scan succeeds, so a failed scan is retried
// on the next run.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	today := timeutil.TodayKey(e.clock)
	ok, err := e.ShouldRun()
	if err != nil {
		return Result{Date: today}, err
	}
	if !ok {
		e.logger.DebugContext(ctx, "rollover_skipped", "date", today)
		return Result{Date: today}, nil
	}

	n, err := e.tasks.MarkRollovers(ctx)
	if err != nil {
		return Result{Date: today}, fmt.Errorf("mark rollovers: %w", err)
	}
	if err := e.markers.SetLastRollover(today); err != nil {
		return Result{Date: today, Flagged: n}, fmt.Errorf("write rollover marker: %w", err)
	}

	e.logger.InfoContext(ctx, "rollover_done", "date", today, "flagged", n)
	return Result{Ran: true, Date: today, Flagged: n}, nil
}
