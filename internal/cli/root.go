// Package cli implements the streakr command line. Commands call engine
// operations and print results; they hold no task state of their own.
package cli

import (
	"context"
	"time"

	"github.com/sadopc/streakr/internal/config"
	"github.com/sadopc/streakr/internal/marker"
	"github.com/sadopc/streakr/internal/rollover"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timer"
	"github.com/sadopc/streakr/internal/timeutil"
	"github.com/spf13/cobra"
)

// App holds what the commands need. Engine is required; the rest is optional.
type App struct {
	Engine  *timer.Engine
	Markers marker.Store
	Config  *config.Config
	Clock   timeutil.Clock
	// Rollover is the outcome of the rollover run at startup.
	Rollover rollover.Result

	IsInteractive func() bool
	RunTUI        func(ctx context.Context) error
}

// NewRootCmd creates the top-level "streakr" command and registers all
// subcommands against app. Without arguments it opens the dashboard on a
// terminal and prints the current status otherwise.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "streakr",
		Short:         "Task timer with daily streaks and XP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.RunTUI != nil && app.IsInteractive != nil && app.IsInteractive() {
				return app.RunTUI(cmd.Context())
			}
			return printStatus(cmd, app)
		},
	}

	root.AddCommand(
		newTaskCmd(app),
		newStartCmd(app),
		newPauseCmd(app),
		newResumeCmd(app),
		newCompleteCmd(app),
		newStatusCmd(app),
		newStatsCmd(app),
		newExportCmd(app),
		newRolloverCmd(app),
		newConfigCmd(app),
	)

	return root
}

func (a *App) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock.Now()
}

func (a *App) store() *store.Store { return a.Engine.Store() }
