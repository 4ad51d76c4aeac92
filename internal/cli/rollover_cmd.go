package cli

import (
	"fmt"

	"github.com/sadopc/streakr/internal/rollover"
	"github.com/sadopc/streakr/internal/timeutil"
	"github.com/spf13/cobra"
)

func newRolloverCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Flag unfinished tasks from earlier days",
		Long: "Rollover runs automatically once per day at startup. This command\n" +
			"reports today's run, or repeats it with --force.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := app.Rollover
			if force || res.Date == "" {
				if app.Markers == nil {
					return fmt.Errorf("rollover needs a marker store")
				}
				if force {
					if err := app.Markers.SetLastRollover(""); err != nil {
						return fmt.Errorf("reset rollover marker: %w", err)
					}
				}
				clock := app.Clock
				if clock == nil {
					clock = timeutil.SystemClock{}
				}
				var err error
				res, err = rollover.New(app.store(), app.Markers, clock, nil).Run(cmd.Context())
				if err != nil {
					return err
				}
				app.Rollover = res
			}

			out := cmd.OutOrStdout()
			if !res.Ran {
				fmt.Fprintf(out, "Rollover already ran for %s.\n", res.Date)
				return nil
			}
			fmt.Fprintf(out, "Rollover for %s flagged %d task(s).\n", res.Date, res.Flagged)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run again even if today was already processed")

	return cmd
}
