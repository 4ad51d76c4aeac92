package cli

import (
	"fmt"
	"time"

	"github.com/sadopc/streakr/internal/export"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timeutil"
	"github.com/spf13/cobra"
)

func newExportCmd(app *App) *cobra.Command {
	var format, outPath, from, to string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export time logs as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q: use csv or json", format)
			}
			if outPath == "" {
				outPath = "streakr-export-" + timeutil.DayKey(app.now()) + "." + format
			}

			logs, err := loadLogs(cmd, app, from, to)
			if err != nil {
				return err
			}
			tasks := export.Index(app.Engine.Tasks())

			if format == "csv" {
				err = export.ToCSV(logs, tasks, outPath)
			} else {
				err = export.ToJSON(logs, tasks, outPath)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(logs), outPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "csv", "csv or json")
	f.StringVarP(&outPath, "output", "o", "", "Output file (default streakr-export-<date>.<format>)")
	f.StringVar(&from, "from", "", "First day to include (YYYY-MM-DD)")
	f.StringVar(&to, "to", "", "Last day to include (YYYY-MM-DD)")

	return cmd
}

// loadLogs returns every time log, or those starting within the inclusive
// day range when either bound is set.
func loadLogs(cmd *cobra.Command, app *App, from, to string) ([]store.TimeLog, error) {
	if from == "" && to == "" {
		return app.store().AllTimeLogs(cmd.Context())
	}

	start := time.Time{}
	if from != "" {
		t, err := timeutil.ParseDayKey(from)
		if err != nil {
			return nil, fmt.Errorf("invalid --from %q: use YYYY-MM-DD", from)
		}
		start = t
	}
	end := timeutil.StartOfDay(app.now()).AddDate(0, 0, 1)
	if to != "" {
		t, err := timeutil.ParseDayKey(to)
		if err != nil {
			return nil, fmt.Errorf("invalid --to %q: use YYYY-MM-DD", to)
		}
		end = t.AddDate(0, 0, 1)
	}
	return app.store().TimeLogsInRange(cmd.Context(), start, end)
}
