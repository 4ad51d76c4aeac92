package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timer"
	"github.com/sadopc/streakr/internal/timeutil"
)

type dashboardModel struct {
	engine *timer.Engine
	clock  timeutil.Clock
	width  int
	height int

	tasks   []store.Task
	active  *timer.Session
	lastSeq uint64
	cursor  int

	today    store.Stats
	week     store.Stats
	streak   store.Streak
	goals    store.GamificationSettings
	lastDone *timer.Completion

	form taskForm
}

func newDashboardModel(e *timer.Engine, clock timeutil.Clock) dashboardModel {
	d := dashboardModel{
		engine: e,
		clock:  clock,
		form:   newTaskForm(e),
	}
	d.applySnapshot(e.Snapshot())
	return d
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadStats()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) formActive() bool { return d.form.active }

// selected returns the task under the cursor.
func (d dashboardModel) selected() (store.Task, bool) {
	if d.cursor < 0 || d.cursor >= len(d.tasks) {
		return store.Task{}, false
	}
	return d.tasks[d.cursor], true
}

func (d dashboardModel) activeTask() (store.Task, bool) {
	if d.active == nil {
		return store.Task{}, false
	}
	for _, t := range d.tasks {
		if t.ID == d.active.TaskID {
			return t, true
		}
	}
	return store.Task{}, false
}

// applySnapshot reports whether s was newer than the state already shown.
func (d *dashboardModel) applySnapshot(s timer.Snapshot) bool {
	if s.Seq <= d.lastSeq {
		return false
	}
	d.lastSeq = s.Seq
	d.tasks = s.Tasks
	d.active = s.Active
	if s.Completion != nil {
		d.lastDone = s.Completion
	}
	if d.cursor >= len(d.tasks) {
		d.cursor = max(0, len(d.tasks)-1)
	}
	return true
}

type statsDataMsg struct {
	today  store.Stats
	week   store.Stats
	streak store.Streak
	goals  store.GamificationSettings
}

func (d dashboardModel) loadStats() tea.Cmd {
	s, now := d.engine.Store(), d.clock.Now()
	return func() tea.Msg {
		ctx := context.Background()
		var msg statsDataMsg
		if st, err := s.GetOrCreateDaily(ctx, timeutil.DayKey(now)); err == nil {
			msg.today = *st
		}
		if st, err := s.GetOrCreateWeekly(ctx, timeutil.WeekKey(now)); err == nil {
			msg.week = *st
		}
		if st, err := s.GetStreak(ctx); err == nil {
			msg.streak = *st
		}
		if set, err := s.GetSettings(ctx); err == nil {
			msg.goals = set.Gamification
		}
		return msg
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		if !d.applySnapshot(msg.snap) || msg.snap.Event == timer.EventTick {
			return d, nil
		}
		return d, d.loadStats()

	case statsDataMsg:
		d.today = msg.today
		d.week = msg.week
		d.streak = msg.streak
		d.goals = msg.goals
		return d, nil
	}

	if d.form.active {
		var cmd tea.Cmd
		d.form, cmd = d.form.update(msg)
		return d, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if d.cursor > 0 {
				d.cursor--
			}
		case key.Matches(msg, keys.Down):
			if d.cursor < len(d.tasks)-1 {
				d.cursor++
			}
		case key.Matches(msg, keys.Start), key.Matches(msg, keys.Enter):
			return d, d.startSelected()
		case key.Matches(msg, keys.Pause):
			return d, d.togglePause()
		case key.Matches(msg, keys.Complete):
			return d, d.completeSelected()
		case key.Matches(msg, keys.Delete):
			return d, d.deleteSelected()
		case key.Matches(msg, keys.New):
			var cmd tea.Cmd
			d.form, cmd = d.form.openNew()
			return d, cmd
		case key.Matches(msg, keys.Edit):
			if t, ok := d.selected(); ok {
				var cmd tea.Cmd
				d.form, cmd = d.form.openEdit(t)
				return d, cmd
			}
		}
	}
	return d, nil
}

func (d dashboardModel) startSelected() tea.Cmd {
	t, ok := d.selected()
	if !ok {
		return statusCmd("No tasks yet. Press n to add one.", true)
	}
	e := d.engine
	return func() tea.Msg {
		if err := e.StartTimer(context.Background(), t.ID); err != nil {
			return errStatus("Start failed", err)
		}
		return statusMsg{text: "Working on " + t.Title}
	}
}

// togglePause pauses the running timer, or resumes the selected task when
// nothing runs.
func (d dashboardModel) togglePause() tea.Cmd {
	e := d.engine
	if d.active == nil {
		t, ok := d.selected()
		if !ok || t.Status != store.StatusPaused {
			return nil
		}
		return func() tea.Msg {
			if err := e.ResumeTimer(context.Background(), t.ID); err != nil {
				return errStatus("Resume failed", err)
			}
			return statusMsg{text: "Resumed " + t.Title}
		}
	}
	return func() tea.Msg {
		if err := e.PauseTimer(context.Background()); err != nil {
			return errStatus("Pause failed", err)
		}
		return statusMsg{text: "Timer paused"}
	}
}

func (d dashboardModel) completeSelected() tea.Cmd {
	t, ok := d.selected()
	if !ok {
		return nil
	}
	e := d.engine
	return func() tea.Msg {
		c, err := e.CompleteTask(context.Background(), t.ID)
		if err != nil {
			return errStatus("Complete failed", err)
		}
		return statusMsg{text: fmt.Sprintf("Completed %s  +%d XP  streak %d", t.Title, c.XP, c.Streak.CurrentStreak)}
	}
}

func (d dashboardModel) deleteSelected() tea.Cmd {
	t, ok := d.selected()
	if !ok {
		return nil
	}
	e := d.engine
	return func() tea.Msg {
		err := e.DeleteTask(context.Background(), t.ID)
		if errors.Is(err, timer.ErrTaskActive) {
			return statusMsg{text: "Pause the timer before deleting this task", isError: true}
		}
		if err != nil {
			return errStatus("Delete failed", err)
		}
		return statusMsg{text: "Deleted " + t.Title}
	}
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	w := d.width - 4

	if d.form.active {
		return d.form.view(w)
	}

	timerPanel := d.renderTimerPanel(w)
	statsPanel := d.renderStatsPanel(w)
	taskPanel := d.renderTaskPanel(w)
	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, statsPanel, taskPanel)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	if t, ok := d.activeTask(); ok {
		elapsed := d.clock.Now().Sub(d.active.StartTime)
		content := lipgloss.JoinVertical(lipgloss.Center,
			timerRunningStyle.Width(w-6).Render(formatDuration(elapsed)),
			successStyle.Render("●  RUNNING"),
			highlightStyle.Render(t.Title)+mutedStyle.Render(fmt.Sprintf("  %s logged", formatMinutes(t.ActualMinutes))),
		)
		return activePanelStyle.Width(w).Render(content)
	}

	hint := "Press s to start the selected task"
	if d.lastDone != nil {
		hint = fmt.Sprintf("Last completion: +%d XP", d.lastDone.XP)
	}
	content := lipgloss.JoinVertical(lipgloss.Center,
		timerStyle.Width(w-6).Render("00:00:00"),
		mutedStyle.Render("■  IDLE"),
		mutedStyle.Render(hint),
	)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderStatsPanel(w int) string {
	flame := streakStyle.Render(fmt.Sprintf("🔥 %d day streak", d.streak.CurrentStreak))
	best := mutedStyle.Render(fmt.Sprintf("best %d  active days %d", d.streak.LongestStreak, d.streak.TotalDaysActive))

	today := fmt.Sprintf("%s  %s done  %s focus  %s",
		titleStyle.Render("Today"),
		goalProgress(d.today.TasksCompleted, d.goals.DailyGoalTasks),
		formatMinutes(d.today.FocusTimeMinutes),
		xpStyle.Render(fmt.Sprintf("%d XP", d.today.TotalXPEarned)),
	)
	week := fmt.Sprintf("%s   %d done  %s focus  %s",
		titleStyle.Render("Week"),
		d.week.TasksCompleted,
		formatMinutes(d.week.FocusTimeMinutes),
		xpStyle.Render(fmt.Sprintf("%d XP", d.week.TotalXPEarned)),
	)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		flame+"  "+best, today, week,
	))
}

func goalProgress(done, goal int) string {
	if goal <= 0 {
		return fmt.Sprintf("%d", done)
	}
	s := fmt.Sprintf("%d/%d", done, goal)
	if done >= goal {
		return successStyle.Render(s)
	}
	return s
}

func (d dashboardModel) renderTaskPanel(w int) string {
	title := titleStyle.Render("Tasks")
	if len(d.tasks) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No tasks yet. Press n to create one."),
		))
	}

	rows := []string{title}
	for i, t := range d.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == d.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		if t.Status == store.StatusCompleted {
			style = doneItemStyle
		}

		estimate := formatMinutes(t.ActualMinutes)
		if t.EstimatedMinutes > 0 {
			estimate += "/" + formatMinutes(t.EstimatedMinutes)
		}
		var flags []string
		if t.PendingFromYesterday && t.Status != store.StatusCompleted {
			flags = append(flags, warningStyle.Render("↻ carried over"))
		}
		if len(t.Categories) > 0 {
			flags = append(flags, mutedStyle.Render("["+strings.Join(t.Categories, ", ")+"]"))
		}

		prio := priorityStyles[t.Priority].Render(string(t.Priority))
		line := fmt.Sprintf("%s%s %-32s", cursor, statusIcons[t.Status], truncate(t.Title, 32))
		rows = append(rows, style.Render(line)+" "+prio+"  "+mutedStyle.Render(estimate)+"  "+strings.Join(flags, " "))
	}
	rows = append(rows, "", mutedStyle.Render("  s: start  space: pause/resume  c: complete  n: new  E: edit  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
