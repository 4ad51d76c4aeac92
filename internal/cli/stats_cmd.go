package cli

import (
	"fmt"
	"strconv"

	"github.com/sadopc/streakr/internal/cli/formatter"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timeutil"
	"github.com/spf13/cobra"
)

func newStatsCmd(app *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show today's and this week's progress and the streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := app.store()
			now := app.now()

			today, err := s.GetOrCreateDaily(ctx, timeutil.DayKey(now))
			if err != nil {
				return err
			}
			week, err := s.GetOrCreateWeekly(ctx, timeutil.WeekKey(now))
			if err != nil {
				return err
			}
			streak, err := s.GetStreak(ctx)
			if err != nil {
				return err
			}
			settings, err := s.GetSettings(ctx)
			if err != nil {
				return err
			}
			goals := settings.Gamification

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.RenderBox("Today "+today.Key, formatter.KeyValues([][2]string{
				{"Tasks", formatter.ProgressBar(today.TasksCompleted, goals.DailyGoalTasks, 20)},
				{"Focus", formatter.ProgressBar(today.FocusTimeMinutes, goals.DailyGoalFocusMinutes, 20) + " min"},
				{"Breaks", formatter.FormatMinutes(today.BreakTimeMinutes)},
				{"XP", strconv.Itoa(today.TotalXPEarned)},
			})))
			fmt.Fprintln(out, formatter.RenderBox("Week "+week.Key, formatter.KeyValues([][2]string{
				{"Tasks", strconv.Itoa(week.TasksCompleted)},
				{"Focus", formatter.FormatMinutes(week.FocusTimeMinutes)},
				{"Breaks", formatter.FormatMinutes(week.BreakTimeMinutes)},
				{"XP", strconv.Itoa(week.TotalXPEarned)},
			})))
			fmt.Fprintln(out, formatter.RenderBox("Streak", formatter.KeyValues([][2]string{
				{"Current", fmt.Sprintf("%d day(s)", streak.CurrentStreak)},
				{"Longest", fmt.Sprintf("%d day(s)", streak.LongestStreak)},
				{"Days active", strconv.Itoa(streak.TotalDaysActive)},
				{"Last completion", orDash(streak.LastCompletionDate)},
			})))

			if days <= 0 {
				return nil
			}
			from := timeutil.DayKey(now.AddDate(0, 0, -(days - 1)))
			history, err := s.ListStats(ctx, store.Daily, from, today.Key)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(history))
			for _, h := range history {
				rows = append(rows, []string{
					h.Key,
					strconv.Itoa(h.TasksCompleted),
					formatter.FormatMinutes(h.FocusTimeMinutes),
					formatter.FormatMinutes(h.BreakTimeMinutes),
					strconv.Itoa(h.TotalXPEarned),
				})
			}
			fmt.Fprintln(out, formatter.RenderBox(fmt.Sprintf("Last %d days", days),
				formatter.RenderTable([]string{"DATE", "DONE", "FOCUS", "BREAK", "XP"}, rows)))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Also list daily totals for the last N days")

	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
