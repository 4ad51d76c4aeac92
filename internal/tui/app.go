// Package tui is the Bubble Tea front end. It renders engine snapshots and
// calls engine operations from commands; it never changes task state itself.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/streakr/internal/export"
	"github.com/sadopc/streakr/internal/timer"
	"github.com/sadopc/streakr/internal/timeutil"
)

// App is the root Bubble Tea model.
type App struct {
	engine    *timer.Engine
	clock     timeutil.Clock
	exportDir string
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	dashboard dashboardModel
	reports   reportsModel
	pomodoro  pomodoroModel
	settings  settingsModel

	help     help.Model
	status   string
	statusOK bool
}

func NewApp(e *timer.Engine, clock timeutil.Clock) App {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	h := help.New()
	h.ShowAll = false

	home, _ := os.UserHomeDir()
	return App{
		engine:     e,
		clock:      clock,
		exportDir:  home,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(e, clock),
		reports:    newReportsModel(e.Store(), clock),
		pomodoro:   newPomodoroModel(e, clock),
		settings:   newSettingsModel(e.Store()),
		help:       h,
	}
}

// Run starts the program and forwards engine snapshots into it until the user
// quits or ctx is cancelled.
func Run(ctx context.Context, e *timer.Engine, clock timeutil.Clock, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewApp(e, clock), opts...)

	unsubscribe := e.Subscribe(timer.ObserverFunc(func(s timer.Snapshot) {
		p.Send(snapshotMsg{snap: s})
	}))
	defer unsubscribe()

	_, err := p.Run()
	return err
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		a.settings.refresh(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.pomodoro.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// A child form captures every key.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewDashboard)
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewReports)
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewPomodoro)
		case key.Matches(msg, keys.Tab4):
			return a.switchView(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
		case a.activeView == viewPomodoro && key.Matches(msg, keys.Start):
			if a.pomodoro.running() {
				return a, nil
			}
			t, ok := a.dashboard.selected()
			if !ok {
				return a, statusCmd("Create a task on the dashboard first", true)
			}
			var cmd tea.Cmd
			a.pomodoro, cmd = a.pomodoro.startSession(t)
			return a, cmd
		}

	case snapshotMsg:
		// Snapshots always go to the dashboard so the footer timer and the
		// pomodoro task picker stay current on every view.
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd

	case statsDataMsg:
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.update(msg)
		return a, cmd

	case tickMsg:
		var cmd tea.Cmd
		a.pomodoro, cmd = a.pomodoro.update(msg)
		return a, tea.Batch(tickCmd(), cmd)

	case reportsDataMsg:
		var cmd tea.Cmd
		a.reports, cmd = a.reports.update(msg)
		return a, cmd

	case settingsDataMsg:
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		a.dashboard.goals = msg.settings.Gamification
		if !a.pomodoro.running() {
			a.pomodoro.applySettings(msg.settings.Pomodoro)
		}
		return a, cmd

	case statusMsg:
		a.status = msg.text
		a.statusOK = !msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusOK = true
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewPomodoro:
		a.pomodoro, cmd = a.pomodoro.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.formActive()
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.loadStats()
	case viewReports:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view()
	case viewReports:
		content = a.reports.view()
	case viewPomodoro:
		content = a.pomodoro.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := max(a.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("streakr")
	streak := ""
	if n := a.dashboard.streak.CurrentStreak; n > 0 {
		streak = streakStyle.Render(fmt.Sprintf(" 🔥%d", n))
	}
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(streak)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, streak, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := errorStyle
		if a.statusOK {
			style = mutedStyle
		}
		status = style.Render(" " + a.status)
	}

	timerInfo := ""
	if s := a.dashboard.active; s != nil {
		timerInfo = successStyle.Render(" ● " + formatDuration(a.clock.Now().Sub(s.StartTime)))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Time Logs")
	formats := []string{"CSV", "JSON"}
	rows := []string{title, ""}
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	e, dir, now := a.engine, a.exportDir, a.clock.Now()
	return func() tea.Msg {
		logs, err := e.Store().AllTimeLogs(context.Background())
		if err != nil {
			return errStatus("Export error", err)
		}
		tasks := export.Index(e.Tasks())

		base := filepath.Join(dir, "streakr-export-"+timeutil.DayKey(now))
		var path string
		if format == 0 {
			path = base + ".csv"
			err = export.ToCSV(logs, tasks, path)
		} else {
			path = base + ".json"
			err = export.ToJSON(logs, tasks, path)
		}
		if err != nil {
			return errStatus("Export error", err)
		}
		return exportDoneMsg{path: path}
	}
}
