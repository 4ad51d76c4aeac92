package cli

import (
	"fmt"

	"github.com/sadopc/streakr/internal/cli/formatter"
	"github.com/sadopc/streakr/internal/timeutil"
	"github.com/spf13/cobra"
)

func newStartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start <task>",
		Short: "Start the timer on a task, pausing any other",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveTaskID(app, args[0])
			if err != nil {
				return err
			}
			prev := app.Engine.Active()
			if err := app.Engine.StartTimer(cmd.Context(), id); err != nil {
				return err
			}
			t, _ := app.Engine.Task(id)
			out := cmd.OutOrStdout()
			if prev != nil && prev.TaskID != id {
				p, _ := app.Engine.Task(prev.TaskID)
				fmt.Fprintf(out, "Paused %s\n", p.Title)
			}
			fmt.Fprintf(out, "%s Working on %s\n", formatter.StyleGreen.Render("●"), t.Title)
			return nil
		},
	}
}

func newPauseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the running timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := app.Engine.Active()
			if err := app.Engine.PauseTimer(cmd.Context()); err != nil {
				return err
			}
			t, _ := app.Engine.Task(s.TaskID)
			fmt.Fprintf(cmd.OutOrStdout(), "Paused %s after %s (%s total)\n",
				t.Title, formatter.FormatMinutes(timeutil.ElapsedMinutes(s.StartTime, app.now())), formatter.FormatMinutes(t.ActualMinutes))
			return nil
		},
	}
}

func newResumeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <task>",
		Short: "Resume a paused task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveTaskID(app, args[0])
			if err != nil {
				return err
			}
			if err := app.Engine.ResumeTimer(cmd.Context(), id); err != nil {
				return err
			}
			t, _ := app.Engine.Task(id)
			fmt.Fprintf(cmd.OutOrStdout(), "%s Resumed %s\n", formatter.StyleGreen.Render("●"), t.Title)
			return nil
		},
	}
}

func newCompleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "complete <task>",
		Aliases: []string{"done"},
		Short:   "Complete a task and collect XP",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveTaskID(app, args[0])
			if err != nil {
				return err
			}
			c, err := app.Engine.CompleteTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			t, _ := app.Engine.Task(id)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Completed %s in %s\n", formatter.StyleGreen.Render("✓"), t.Title, formatter.FormatMinutes(c.FinalMinutes))
			fmt.Fprintf(out, "  %s  streak %d day(s)\n", formatter.StyleYellow.Render(fmt.Sprintf("+%d XP", c.XP)), c.Streak.CurrentStreak)
			if c.FirstCompletionToday {
				fmt.Fprintln(out, formatter.Dim("  first completion today"))
			}
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running timer and today's progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd, app)
		},
	}
}

func printStatus(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	now := app.now()

	if s := app.Engine.Active(); s != nil {
		t, _ := app.Engine.Task(s.TaskID)
		elapsed := timeutil.ElapsedMinutes(s.StartTime, now)
		fmt.Fprintf(out, "%s %s  %s this session, %s total\n",
			formatter.StyleGreen.Render("●"), formatter.Bold(t.Title),
			formatter.FormatMinutes(elapsed), formatter.FormatMinutes(t.ActualMinutes+elapsed))
	} else {
		fmt.Fprintln(out, formatter.Dim("No timer running."))
	}

	today, err := app.store().GetOrCreateDaily(ctx, timeutil.DayKey(now))
	if err != nil {
		return err
	}
	streak, err := app.store().GetStreak(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Today: %d done, %s focus, %d XP, streak %d\n",
		today.TasksCompleted, formatter.FormatMinutes(today.FocusTimeMinutes), today.TotalXPEarned, streak.CurrentStreak)
	return nil
}
