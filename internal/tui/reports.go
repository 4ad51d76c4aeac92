package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timeutil"
)

type reportMode int

const (
	reportDaily reportMode = iota
	reportWeekly
)

// Bars per page.
const (
	reportDays  = 7
	reportWeeks = 8
)

type reportsModel struct {
	store  *store.Store
	clock  timeutil.Clock
	width  int
	height int

	mode   reportMode
	stats  []store.Stats
	offset int // pages back from the current one

	chart barchart.Model
}

func newReportsModel(s *store.Store, clock timeutil.Clock) reportsModel {
	return reportsModel{
		store: s,
		clock: clock,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	stats []store.Stats
}

func (r reportsModel) refresh() tea.Cmd {
	keys := r.bucketKeys()
	period := store.Daily
	if r.mode == reportWeekly {
		period = store.Weekly
	}
	s := r.store
	return func() tea.Msg {
		stats, err := s.ListStats(context.Background(), period, keys[0], keys[len(keys)-1])
		if err != nil {
			return errStatus("Reports", err)
		}
		return reportsDataMsg{stats: stats}
	}
}

// bucketKeys returns the day or week keys shown on the current page, oldest
// first.
func (r reportsModel) bucketKeys() []string {
	today := timeutil.StartOfDay(r.clock.Now())
	if r.mode == reportWeekly {
		end := today.AddDate(0, 0, -7*reportWeeks*r.offset)
		keys := make([]string, 0, reportWeeks)
		for i := reportWeeks - 1; i >= 0; i-- {
			keys = append(keys, timeutil.WeekKey(end.AddDate(0, 0, -7*i)))
		}
		return keys
	}
	end := today.AddDate(0, 0, -reportDays*r.offset)
	keys := make([]string, 0, reportDays)
	for i := reportDays - 1; i >= 0; i-- {
		keys = append(keys, timeutil.DayKey(end.AddDate(0, 0, -i)))
	}
	return keys
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.stats = msg.stats
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		case key.Matches(msg, keys.Enter):
			if r.mode == reportDaily {
				r.mode = reportWeekly
			} else {
				r.mode = reportDaily
			}
			r.offset = 0
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r reportsModel) byKey() map[string]store.Stats {
	m := make(map[string]store.Stats, len(r.stats))
	for _, s := range r.stats {
		m[s.Key] = s
	}
	return m
}

func (r *reportsModel) buildChart() {
	chartWidth := max(r.width-8, 20)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}
	r.chart = barchart.New(chartWidth, chartHeight)

	focus := lipgloss.NewStyle().Foreground(colorPrimary)
	rest := lipgloss.NewStyle().Foreground(colorSecondary)
	empty := lipgloss.NewStyle().Foreground(colorSubtle)

	byKey := r.byKey()
	var bars []barchart.BarData
	for _, k := range r.bucketKeys() {
		s := byKey[k]
		values := []barchart.BarValue{
			{Name: "Focus", Value: float64(s.FocusTimeMinutes) / 60, Style: focus},
			{Name: "Break", Value: float64(s.BreakTimeMinutes) / 60, Style: rest},
		}
		if s.FocusTimeMinutes == 0 && s.BreakTimeMinutes == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: empty}}
		}
		bars = append(bars, barchart.BarData{Label: r.label(k), Values: values})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) label(k string) string {
	if r.mode == reportWeekly {
		if i := strings.Index(k, "-"); i >= 0 {
			return k[i+1:]
		}
		return k
	}
	if t, err := timeutil.ParseDayKey(k); err == nil {
		return t.Format("Mon 02")
	}
	return k
}

func (r reportsModel) view() string {
	w := r.width - 4

	dailyTab := inactiveTabStyle.Render("Daily")
	weeklyTab := inactiveTabStyle.Render("Weekly")
	if r.mode == reportDaily {
		dailyTab = activeTabStyle.Render("Daily")
	} else {
		weeklyTab = activeTabStyle.Render("Weekly")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, dailyTab, weeklyTab)

	keys := r.bucketKeys()
	rangeLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", keys[0], keys[len(keys)-1]))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", modeTabs, "  ", rangeLabel,
	)
	legend := "  " + lipgloss.NewStyle().Foreground(colorPrimary).Render("● focus") +
		"  " + lipgloss.NewStyle().Foreground(colorSecondary).Render("● break") +
		mutedStyle.Render("  (hours)")
	nav := mutedStyle.Render("  ←/→: navigate  enter: daily/weekly")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), legend, "", r.renderSummaryTable(w), "", nav,
		),
	)
}

func (r reportsModel) renderSummaryTable(w int) string {
	if len(r.stats) == 0 {
		return mutedStyle.Render("  No data for this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %6s %8s %8s %6s", "Period", "Done", "Focus", "Break", "XP")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 46))))

	var done, focus, brk, xp int
	for _, s := range r.stats {
		rows = append(rows, fmt.Sprintf("  %-12s %6d %8s %8s %6d",
			s.Key, s.TasksCompleted, formatMinutes(s.FocusTimeMinutes), formatMinutes(s.BreakTimeMinutes), s.TotalXPEarned,
		))
		done += s.TasksCompleted
		focus += s.FocusTimeMinutes
		brk += s.BreakTimeMinutes
		xp += s.TotalXPEarned
	}
	rows = append(rows, titleStyle.Render(fmt.Sprintf("  %-12s %6d %8s %8s %6d",
		"Total", done, formatMinutes(focus), formatMinutes(brk), xp)))

	return strings.Join(rows, "\n")
}
