package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sadopc/streakr/internal/cli/formatter"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timeutil"
	"github.com/spf13/cobra"
)

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage tasks",
	}

	cmd.AddCommand(
		newTaskAddCmd(app),
		newTaskListCmd(app),
		newTaskShowCmd(app),
		newTaskEditCmd(app),
		newTaskRemoveCmd(app),
	)

	return cmd
}

func newTaskAddCmd(app *App) *cobra.Command {
	var in store.TaskInput
	var priority string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = strings.Join(args, " ")
			in.Priority = store.Priority(priority)
			if err := validDate(in.ScheduledDate); err != nil {
				return err
			}

			t, err := app.Engine.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d %s (%s)\n", taskNumbers(app)[t.ID], t.Title, t.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&in.Description, "description", "d", "", "Task description")
	f.IntVarP(&in.EstimatedMinutes, "estimate", "e", 0, "Estimated minutes")
	f.StringVarP(&priority, "priority", "p", string(store.PriorityMedium), "low, medium, high or urgent")
	f.StringSliceVarP(&in.Categories, "category", "c", nil, "Category (repeatable)")
	f.StringSliceVarP(&in.Tags, "tag", "t", nil, "Tag (repeatable)")
	f.StringVar(&in.ScheduledDate, "date", "", "Scheduled date (YYYY-MM-DD)")
	f.StringVar(&in.ScheduledTimeBlock, "block", "", "Scheduled time block, e.g. 09:00-10:30")

	return cmd
}

func newTaskListCmd(app *App) *cobra.Command {
	var filter store.TaskFilter
	var status, priority string
	var today bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = store.Status(status)
			filter.Priority = store.Priority(priority)
			if filter.Status != "" && !filter.Status.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			if filter.Priority != "" && !filter.Priority.Valid() {
				return fmt.Errorf("unknown priority %q", priority)
			}
			if today {
				filter.ScheduledDate = timeutil.DayKey(app.now())
			}

			tasks, err := app.store().ListTasks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks found.")
				return nil
			}

			nums := taskNumbers(app)
			headers := []string{"#", "ID", "TITLE", "STATUS", "PRIORITY", "TIME", "CATEGORIES"}
			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				title := t.Title
				if t.PendingFromYesterday && t.Status != store.StatusCompleted {
					title += formatter.StyleYellow.Render(" ↻")
				}
				spent := formatter.FormatMinutes(t.ActualMinutes)
				if t.EstimatedMinutes > 0 {
					spent += " / " + formatter.FormatMinutes(t.EstimatedMinutes)
				}
				rows = append(rows, []string{
					strconv.Itoa(nums[t.ID]),
					formatter.TruncID(t.ID),
					title,
					formatter.StatusPill(t.Status),
					formatter.PriorityLabel(t.Priority),
					spent,
					formatter.Dim(strings.Join(t.Categories, ", ")),
				})
			}

			fmt.Fprintln(out, formatter.RenderBox("Tasks", formatter.RenderTable(headers, rows)))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&status, "status", "", "Filter by status (not_started, in_progress, paused, completed)")
	f.StringVar(&priority, "priority", "", "Filter by priority")
	f.StringVar(&filter.Category, "category", "", "Filter by category")
	f.StringVar(&filter.ScheduledDate, "date", "", "Filter by scheduled date (YYYY-MM-DD)")
	f.BoolVar(&today, "today", false, "Only tasks scheduled for today")

	return cmd
}

func newTaskShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task>",
		Short: "Show a task and its time logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveTaskID(app, args[0])
			if err != nil {
				return err
			}
			t, err := app.store().GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			logs, err := app.store().TimeLogsByTask(cmd.Context(), id)
			if err != nil {
				return err
			}

			pairs := [][2]string{
				{"ID", t.ID},
				{"Status", formatter.StatusPill(t.Status)},
				{"Priority", formatter.PriorityLabel(t.Priority)},
				{"Estimate", formatter.FormatMinutes(t.EstimatedMinutes)},
				{"Actual", formatter.FormatMinutes(t.ActualMinutes)},
			}
			if t.Description != "" {
				pairs = append(pairs, [2]string{"Description", t.Description})
			}
			if len(t.Categories) > 0 {
				pairs = append(pairs, [2]string{"Categories", strings.Join(t.Categories, ", ")})
			}
			if len(t.Tags) > 0 {
				pairs = append(pairs, [2]string{"Tags", strings.Join(t.Tags, ", ")})
			}
			if t.ScheduledDate != "" {
				pairs = append(pairs, [2]string{"Scheduled", strings.TrimSpace(t.ScheduledDate + " " + t.ScheduledTimeBlock)})
			}
			if t.PendingFromYesterday {
				pairs = append(pairs, [2]string{"Carried over", "yes"})
			}

			body := formatter.KeyValues(pairs)
			if len(logs) > 0 {
				rows := make([][]string, 0, len(logs))
				for _, l := range logs {
					rows = append(rows, []string{
						l.StartTime.Local().Format("2006-01-02 15:04"),
						l.EndTime.Local().Format("15:04"),
						formatter.FormatMinutes(l.DurationMinutes),
					})
				}
				body += "\n" + formatter.RenderTable([]string{"START", "END", "DURATION"}, rows)
			}

			fmt.Fprintln(cmd.OutOrStdout(), formatter.RenderBox(t.Title, body))
			return nil
		},
	}
}

func newTaskEditCmd(app *App) *cobra.Command {
	var title, description, priority, date, block string
	var estimate int
	var categories, tags []string

	cmd := &cobra.Command{
		Use:   "edit <task>",
		Short: "Edit task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveTaskID(app, args[0])
			if err != nil {
				return err
			}

			var patch store.TaskPatch
			changed := cmd.Flags().Changed
			if changed("title") {
				patch.Title = &title
			}
			if changed("description") {
				patch.Description = &description
			}
			if changed("estimate") {
				patch.EstimatedMinutes = &estimate
			}
			if changed("priority") {
				p := store.Priority(priority)
				patch.Priority = &p
			}
			if changed("category") {
				patch.Categories = &categories
			}
			if changed("tag") {
				patch.Tags = &tags
			}
			if changed("date") {
				if err := validDate(date); err != nil {
					return err
				}
				patch.ScheduledDate = &date
			}
			if changed("block") {
				patch.ScheduledTimeBlock = &block
			}
			if patch == (store.TaskPatch{}) {
				return fmt.Errorf("nothing to change; pass at least one flag")
			}

			t, err := app.Engine.UpdateTask(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", t.Title)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&title, "title", "", "New title")
	f.StringVarP(&description, "description", "d", "", "New description")
	f.IntVarP(&estimate, "estimate", "e", 0, "Estimated minutes")
	f.StringVarP(&priority, "priority", "p", "", "low, medium, high or urgent")
	f.StringSliceVarP(&categories, "category", "c", nil, "Replace categories")
	f.StringSliceVarP(&tags, "tag", "t", nil, "Replace tags")
	f.StringVar(&date, "date", "", "Scheduled date (YYYY-MM-DD, empty to clear)")
	f.StringVar(&block, "block", "", "Scheduled time block")

	return cmd
}

func newTaskRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a task and its time logs",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveTaskID(app, args[0])
			if err != nil {
				return err
			}
			t, _ := app.Engine.Task(id)
			if err := app.Engine.DeleteTask(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", t.Title)
			return nil
		},
	}
}

func validDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := timeutil.ParseDayKey(s); err != nil {
		return fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return nil
}
