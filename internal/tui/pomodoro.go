package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timer"
	"github.com/sadopc/streakr/internal/timeutil"
)

type pomodoroPhase int

const (
	pomodoroIdle pomodoroPhase = iota
	pomodoroWork
	pomodoroShortBreak
	pomodoroLongBreak
	pomodoroCompleted
)

var phaseNames = map[pomodoroPhase]string{
	pomodoroIdle:       "IDLE",
	pomodoroWork:       "WORK",
	pomodoroShortBreak: "SHORT BREAK",
	pomodoroLongBreak:  "LONG BREAK",
	pomodoroCompleted:  "COMPLETED",
}

// pomodoroModel cycles work and break phases. Work phases run the engine
// timer on the chosen task; finished breaks are added to today's break time.
type pomodoroModel struct {
	engine *timer.Engine
	clock  timeutil.Clock
	width  int
	height int

	phase          pomodoroPhase
	completedCount int
	targetCount    int
	// Short breaks separate pomodoros; every longEvery-th one earns a long
	// break.
	longEvery int

	remaining  time.Duration
	phaseStart time.Time
	phaseEnd   time.Time

	workDuration      time.Duration
	breakDuration     time.Duration
	longBreakDuration time.Duration

	taskID    string
	taskTitle string
}

func newPomodoroModel(e *timer.Engine, clock timeutil.Clock) pomodoroModel {
	m := pomodoroModel{
		engine: e,
		clock:  clock,
		phase:  pomodoroIdle,
	}
	m.applySettings(store.DefaultSettings().Pomodoro)
	m.loadSettings()
	return m
}

func (p *pomodoroModel) loadSettings() {
	set, err := p.engine.Store().GetSettings(context.Background())
	if err != nil {
		return
	}
	p.applySettings(set.Pomodoro)
}

func (p *pomodoroModel) applySettings(s store.PomodoroSettings) {
	p.workDuration = time.Duration(s.WorkMinutes) * time.Minute
	p.breakDuration = time.Duration(s.ShortBreakMinutes) * time.Minute
	p.longBreakDuration = time.Duration(s.LongBreakMinutes) * time.Minute
	p.longEvery = max(s.SessionsBeforeLongBreak, 1)
	p.targetCount = p.longEvery
}

func (p *pomodoroModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p pomodoroModel) running() bool {
	return p.phase == pomodoroWork || p.phase == pomodoroShortBreak || p.phase == pomodoroLongBreak
}

func (p pomodoroModel) update(msg tea.Msg) (pomodoroModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if p.running() {
			p.remaining = p.phaseEnd.Sub(p.clock.Now())
			if p.remaining <= 0 {
				return p.advancePhase()
			}
		}
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Delete):
			if p.phase != pomodoroIdle {
				return p.cancelSession()
			}
		case key.Matches(msg, keys.Pause):
			// Skip break
			if p.phase == pomodoroShortBreak || p.phase == pomodoroLongBreak {
				return p.endBreak()
			}
		}
	}
	return p, nil
}

// startSession begins a cycle on t. The App passes the task selected on the
// dashboard.
func (p pomodoroModel) startSession(t store.Task) (pomodoroModel, tea.Cmd) {
	if t.Status == store.StatusCompleted {
		return p, statusCmd("Pick an unfinished task on the dashboard first", true)
	}
	p.loadSettings()
	p.completedCount = 0
	p.taskID = t.ID
	p.taskTitle = t.Title
	return p.startWorkPhase()
}

func (p pomodoroModel) startWorkPhase() (pomodoroModel, tea.Cmd) {
	p.setPhase(pomodoroWork, p.workDuration)
	e, id := p.engine, p.taskID
	return p, func() tea.Msg {
		if err := e.StartTimer(context.Background(), id); err != nil {
			return errStatus("Pomodoro start failed", err)
		}
		return nil
	}
}

func (p *pomodoroModel) setPhase(ph pomodoroPhase, d time.Duration) {
	p.phase = ph
	p.phaseStart = p.clock.Now()
	p.phaseEnd = p.phaseStart.Add(d)
	p.remaining = d
}

func (p pomodoroModel) advancePhase() (pomodoroModel, tea.Cmd) {
	switch p.phase {
	case pomodoroWork:
		p.completedCount++
		if p.completedCount%p.longEvery == 0 {
			p.setPhase(pomodoroLongBreak, p.longBreakDuration)
		} else {
			p.setPhase(pomodoroShortBreak, p.breakDuration)
		}
		return p, tea.Batch(p.pauseTimer(), statusCmd("Break time! \a", false))

	case pomodoroShortBreak, pomodoroLongBreak:
		return p.endBreak()
	}
	return p, nil
}

// endBreak records the break actually taken, then starts the next work phase
// or closes the cycle after its last pomodoro.
func (p pomodoroModel) endBreak() (pomodoroModel, tea.Cmd) {
	mins := timeutil.ElapsedMinutes(p.phaseStart, p.clock.Now())
	e := p.engine
	record := func() tea.Msg {
		if mins <= 0 {
			return nil
		}
		if err := e.RecordBreak(context.Background(), mins); err != nil {
			return errStatus("Break not recorded", err)
		}
		return nil
	}

	if p.completedCount >= p.targetCount {
		p.phase = pomodoroCompleted
		p.remaining = 0
		return p, tea.Sequence(record, statusCmd("Pomodoro session complete! \a", false))
	}
	p, start := p.startWorkPhase()
	return p, tea.Sequence(record, start)
}

func (p pomodoroModel) pauseTimer() tea.Cmd {
	e, id := p.engine, p.taskID
	return func() tea.Msg {
		// The user may have switched tasks from the dashboard mid-phase.
		if _, err := e.PauseIfActive(context.Background(), id); err != nil {
			return errStatus("Pomodoro pause failed", err)
		}
		return nil
	}
}

func (p pomodoroModel) cancelSession() (pomodoroModel, tea.Cmd) {
	var cmd tea.Cmd
	if p.phase == pomodoroWork {
		cmd = p.pauseTimer()
	}
	p.phase = pomodoroIdle
	p.remaining = 0
	return p, tea.Batch(cmd, statusCmd("Pomodoro cancelled", false))
}

func (p pomodoroModel) view() string {
	w := p.width - 4

	title := titleStyle.Render("Pomodoro Timer")
	if p.taskTitle != "" && p.phase != pomodoroIdle {
		title += mutedStyle.Render("  " + p.taskTitle)
	}

	var timeDisplay, phaseLabel, indicator string
	switch p.phase {
	case pomodoroIdle:
		timeDisplay = timerStyle.Width(w - 6).Render(formatPomodoroTime(p.workDuration))
		phaseLabel = mutedStyle.Render("Ready to start")
		indicator = mutedStyle.Render("Select a task on the dashboard, then press s here")
	case pomodoroWork:
		timeDisplay = accentStyle.Bold(true).Width(w - 6).Align(lipgloss.Center).Render(formatPomodoroTime(p.remaining))
		phaseLabel = accentStyle.Bold(true).Render(phaseNames[p.phase])
		indicator = p.renderProgress()
	case pomodoroShortBreak:
		timeDisplay = successStyle.Bold(true).Width(w - 6).Align(lipgloss.Center).Render(formatPomodoroTime(p.remaining))
		phaseLabel = successStyle.Bold(true).Render(phaseNames[p.phase])
		indicator = p.renderProgress()
	case pomodoroLongBreak:
		timeDisplay = highlightStyle.Bold(true).Width(w - 6).Align(lipgloss.Center).Render(formatPomodoroTime(p.remaining))
		phaseLabel = highlightStyle.Bold(true).Render(phaseNames[p.phase])
		indicator = p.renderProgress()
	case pomodoroCompleted:
		timeDisplay = successStyle.Bold(true).Width(w - 6).Align(lipgloss.Center).Render("Done!")
		phaseLabel = successStyle.Bold(true).Render("SESSION COMPLETE")
		indicator = p.renderProgress()
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		title, "", timeDisplay, phaseLabel, "", indicator,
	)

	var controls string
	switch p.phase {
	case pomodoroIdle, pomodoroCompleted:
		controls = mutedStyle.Render("s: start  q: quit")
	case pomodoroWork:
		controls = mutedStyle.Render("d: cancel")
	case pomodoroShortBreak, pomodoroLongBreak:
		controls = mutedStyle.Render("space: skip break  d: cancel")
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", controls),
	)
}

func (p pomodoroModel) renderProgress() string {
	var parts []string
	for i := 0; i < p.targetCount; i++ {
		switch {
		case i < p.completedCount:
			parts = append(parts, successStyle.Render("●"))
		case i == p.completedCount && p.phase == pomodoroWork:
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	counter := mutedStyle.Render(fmt.Sprintf("  %d/%d", p.completedCount, p.targetCount))
	return strings.Join(parts, " ") + counter
}

func formatPomodoroTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
