package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timer"
	"github.com/sadopc/streakr/internal/timeutil"
)

var taskPriorities = []store.Priority{store.PriorityLow, store.PriorityMedium, store.PriorityHigh, store.PriorityUrgent}

// taskValues holds form field values behind pointers so they survive the
// value copies Bubble Tea makes of the model.
type taskValues struct {
	title       string
	description string
	estimate    string
	priority    store.Priority
	categories  string
	tags        string
	date        string
	timeBlock   string
}

type taskForm struct {
	engine *timer.Engine

	active    bool
	form      *huh.Form
	editingID string // empty when creating
	values    *taskValues
}

func newTaskForm(e *timer.Engine) taskForm {
	return taskForm{engine: e, values: &taskValues{priority: store.PriorityMedium}}
}

func (f taskForm) openNew() (taskForm, tea.Cmd) {
	*f.values = taskValues{priority: store.PriorityMedium}
	f.editingID = ""
	return f.open()
}

func (f taskForm) openEdit(t store.Task) (taskForm, tea.Cmd) {
	*f.values = taskValues{
		title:       t.Title,
		description: t.Description,
		estimate:    strconv.Itoa(t.EstimatedMinutes),
		priority:    t.Priority,
		categories:  strings.Join(t.Categories, ", "),
		tags:        strings.Join(t.Tags, ", "),
		date:        t.ScheduledDate,
		timeBlock:   t.ScheduledTimeBlock,
	}
	f.editingID = t.ID
	return f.open()
}

func (f taskForm) open() (taskForm, tea.Cmd) {
	v := f.values
	prioOptions := make([]huh.Option[store.Priority], len(taskPriorities))
	for i, p := range taskPriorities {
		prioOptions[i] = huh.NewOption(string(p), p)
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&v.title).Validate(requireText),
			huh.NewText().Title("Description").Value(&v.description),
			huh.NewInput().Title("Estimate (min)").Value(&v.estimate).Validate(validMinutes),
			huh.NewSelect[store.Priority]().Title("Priority").Options(prioOptions...).Value(&v.priority),
		),
		huh.NewGroup(
			huh.NewInput().Title("Categories (comma-separated)").Value(&v.categories),
			huh.NewInput().Title("Tags (comma-separated)").Value(&v.tags),
			huh.NewInput().Title("Scheduled date (YYYY-MM-DD)").Value(&v.date).Validate(validDate),
			huh.NewInput().Title("Time block (e.g. 09:00-10:30)").Value(&v.timeBlock),
		),
	).WithShowHelp(true).WithShowErrors(true)

	f.active = true
	return f, f.form.Init()
}

func (f taskForm) update(msg tea.Msg) (taskForm, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		f.active = false
		f.form = nil
		return f, nil
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	switch f.form.State {
	case huh.StateCompleted:
		f.active = false
		return f, f.submit()
	case huh.StateAborted:
		f.active = false
		return f, nil
	}
	return f, cmd
}

// submit copies the values so the command does not race the next form.
func (f taskForm) submit() tea.Cmd {
	v := *f.values
	e, id := f.engine, f.editingID
	est, _ := strconv.Atoi(strings.TrimSpace(v.estimate))
	cats, tags := splitList(v.categories), splitList(v.tags)

	return func() tea.Msg {
		ctx := context.Background()
		if id == "" {
			t, err := e.CreateTask(ctx, store.TaskInput{
				Title:              strings.TrimSpace(v.title),
				Description:        v.description,
				EstimatedMinutes:   est,
				Priority:           v.priority,
				Categories:         cats,
				Tags:               tags,
				ScheduledDate:      v.date,
				ScheduledTimeBlock: v.timeBlock,
			})
			if err != nil {
				return errStatus("Create failed", err)
			}
			return statusMsg{text: "Created " + t.Title}
		}

		title := strings.TrimSpace(v.title)
		t, err := e.UpdateTask(ctx, id, store.TaskPatch{
			Title:              &title,
			Description:        &v.description,
			EstimatedMinutes:   &est,
			Priority:           &v.priority,
			Categories:         &cats,
			Tags:               &tags,
			ScheduledDate:      &v.date,
			ScheduledTimeBlock: &v.timeBlock,
		})
		if err != nil {
			return errStatus("Update failed", err)
		}
		return statusMsg{text: "Updated " + t.Title}
	}
}

func (f taskForm) view(w int) string {
	title := titleStyle.Render("New Task")
	if f.editingID != "" {
		title = titleStyle.Render("Edit Task")
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", f.form.View()))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requireText(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validMinutes(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return errors.New("enter a whole number of minutes")
	}
	return nil
}

func validDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := timeutil.ParseDayKey(s); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}
