package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/streakr/internal/store"
)

// settingsValues mirrors store.Settings as form strings.
type settingsValues struct {
	work, shortBreak, longBreak, sessions string
	autoBreaks                            bool
	notify, sound                         bool
	reminder                              string
	gamification                          bool
	goalTasks, goalFocus                  string
	theme                                 string
}

type settingsModel struct {
	store  *store.Store
	width  int
	height int

	settings   store.Settings
	loaded     bool
	formActive bool
	form       *huh.Form
	values     *settingsValues
}

func newSettingsModel(s *store.Store) settingsModel {
	return settingsModel{
		store:    s,
		settings: store.DefaultSettings(),
		values:   &settingsValues{},
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings store.Settings
}

func (s settingsModel) refresh() tea.Cmd {
	st := s.store
	return func() tea.Msg {
		set, err := st.GetSettings(context.Background())
		if err != nil {
			return errStatus("Settings", err)
		}
		return settingsDataMsg{settings: *set}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(settingsDataMsg); ok {
		s.settings = msg.settings
		s.loaded = true
		return s, nil
	}
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	cur := s.settings
	*s.values = settingsValues{
		work:         strconv.Itoa(cur.Pomodoro.WorkMinutes),
		shortBreak:   strconv.Itoa(cur.Pomodoro.ShortBreakMinutes),
		longBreak:    strconv.Itoa(cur.Pomodoro.LongBreakMinutes),
		sessions:     strconv.Itoa(cur.Pomodoro.SessionsBeforeLongBreak),
		autoBreaks:   cur.Pomodoro.AutoStartBreaks,
		notify:       cur.Notifications.Enabled,
		sound:        cur.Notifications.Sound,
		reminder:     strconv.Itoa(cur.Notifications.ReminderMinutes),
		gamification: cur.Gamification.Enabled,
		goalTasks:    strconv.Itoa(cur.Gamification.DailyGoalTasks),
		goalFocus:    strconv.Itoa(cur.Gamification.DailyGoalFocusMinutes),
		theme:        cur.Theme,
	}
	v := s.values

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Work (min)").Value(&v.work).Validate(positiveInt),
			huh.NewInput().Title("Short break (min)").Value(&v.shortBreak).Validate(positiveInt),
			huh.NewInput().Title("Long break (min)").Value(&v.longBreak).Validate(positiveInt),
			huh.NewInput().Title("Pomodoros before long break").Value(&v.sessions).Validate(positiveInt),
			huh.NewConfirm().Title("Auto-start breaks").Value(&v.autoBreaks),
		).Title("Pomodoro"),
		huh.NewGroup(
			huh.NewConfirm().Title("Notifications").Value(&v.notify),
			huh.NewConfirm().Title("Sound").Value(&v.sound),
			huh.NewInput().Title("Reminder (min)").Value(&v.reminder).Validate(nonNegativeInt),
		).Title("Notifications"),
		huh.NewGroup(
			huh.NewConfirm().Title("Gamification").Value(&v.gamification),
			huh.NewInput().Title("Daily goal (tasks)").Value(&v.goalTasks).Validate(nonNegativeInt),
			huh.NewInput().Title("Daily goal (focus min)").Value(&v.goalFocus).Validate(nonNegativeInt),
			huh.NewSelect[string]().Title("Theme").
				Options(
					huh.NewOption("Dark", "dark"),
					huh.NewOption("Light", "light"),
				).Value(&v.theme),
		).Title("General"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		s.formActive = false
		s.form = nil
		return s, nil
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	switch s.form.State {
	case huh.StateCompleted:
		s.formActive = false
		return s, s.save(s.values.apply(s.settings))
	case huh.StateAborted:
		s.formActive = false
		return s, nil
	}
	return s, cmd
}

func (s settingsModel) save(next store.Settings) tea.Cmd {
	st := s.store
	return func() tea.Msg {
		saved, err := st.SaveSettings(context.Background(), next)
		if err != nil {
			return errStatus("Settings not saved", err)
		}
		return settingsDataMsg{settings: *saved}
	}
}

// apply overlays the form values on base. Fields that fail to parse keep
// their previous value.
func (v settingsValues) apply(base store.Settings) store.Settings {
	out := base
	out.Pomodoro.WorkMinutes = atoiOr(v.work, base.Pomodoro.WorkMinutes)
	out.Pomodoro.ShortBreakMinutes = atoiOr(v.shortBreak, base.Pomodoro.ShortBreakMinutes)
	out.Pomodoro.LongBreakMinutes = atoiOr(v.longBreak, base.Pomodoro.LongBreakMinutes)
	out.Pomodoro.SessionsBeforeLongBreak = atoiOr(v.sessions, base.Pomodoro.SessionsBeforeLongBreak)
	out.Pomodoro.AutoStartBreaks = v.autoBreaks
	out.Notifications.Enabled = v.notify
	out.Notifications.Sound = v.sound
	out.Notifications.ReminderMinutes = atoiOr(v.reminder, base.Notifications.ReminderMinutes)
	out.Gamification.Enabled = v.gamification
	out.Gamification.DailyGoalTasks = atoiOr(v.goalTasks, base.Gamification.DailyGoalTasks)
	out.Gamification.DailyGoalFocusMinutes = atoiOr(v.goalFocus, base.Gamification.DailyGoalFocusMinutes)
	if v.theme != "" {
		out.Theme = v.theme
	}
	return out
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	cur := s.settings
	rows := []string{title, ""}
	for _, kv := range [][2]string{
		{"Pomodoro work", fmt.Sprintf("%d min", cur.Pomodoro.WorkMinutes)},
		{"Short break", fmt.Sprintf("%d min", cur.Pomodoro.ShortBreakMinutes)},
		{"Long break", fmt.Sprintf("%d min", cur.Pomodoro.LongBreakMinutes)},
		{"Long break every", fmt.Sprintf("%d pomodoros", cur.Pomodoro.SessionsBeforeLongBreak)},
		{"Notifications", onOff(cur.Notifications.Enabled)},
		{"Sound", onOff(cur.Notifications.Sound)},
		{"Gamification", onOff(cur.Gamification.Enabled)},
		{"Daily goal", fmt.Sprintf("%d tasks, %s focus", cur.Gamification.DailyGoalTasks, formatMinutes(cur.Gamification.DailyGoalFocusMinutes))},
		{"Theme", cur.Theme},
	} {
		label := lipgloss.NewStyle().Width(24).Render(kv[0])
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(kv[1])))
	}
	rows = append(rows, "", mutedStyle.Render("Press enter to edit settings"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func atoiOr(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return fallback
}

func positiveInt(s string) error {
	if n, err := strconv.Atoi(s); err != nil || n <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}

func nonNegativeInt(s string) error {
	if n, err := strconv.Atoi(s); err != nil || n < 0 {
		return errors.New("must be zero or more")
	}
	return nil
}
