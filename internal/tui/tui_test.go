package tui

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/streakr/internal/marker"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timer"
	"github.com/sadopc/streakr/internal/timeutil"
	"github.com/sadopc/streakr/internal/xp"
)

func newTestEngine(t *testing.T) (*timer.Engine, *timeutil.ManualClock) {
	t.Helper()
	clock := timeutil.NewManualClock(time.Date(2026, 4, 14, 9, 0, 0, 0, time.Local))
	s, err := store.NewMemory(store.WithClock(clock))
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	e := timer.New(timer.Options{
		Store:   s,
		Markers: marker.NewMemory(),
		Policy:  xp.Weighted{Base: 10},
		Clock:   clock,
	})
	if err := e.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	return e, clock
}

func createTask(t *testing.T, e *timer.Engine, title string) *store.Task {
	t.Helper()
	task, err := e.CreateTask(context.Background(), store.TaskInput{Title: title})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

var cmdType = reflect.TypeOf((*tea.Cmd)(nil)).Elem()

// drain runs cmd and every command nested in batches or sequences, returning
// the leaf messages in order.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if msg == nil {
		return nil
	}
	v := reflect.ValueOf(msg)
	if v.Kind() == reflect.Slice && v.Type().Elem() == cmdType {
		var out []tea.Msg
		for i := 0; i < v.Len(); i++ {
			c, _ := v.Index(i).Interface().(tea.Cmd)
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func statuses(msgs []tea.Msg) []statusMsg {
	var out []statusMsg
	for _, m := range msgs {
		if s, ok := m.(statusMsg); ok {
			out = append(out, s)
		}
	}
	return out
}

func keyRune(r string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)} }

var (
	keySpace = tea.KeyMsg{Type: tea.KeySpace}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
)

// ============================================================
// Dashboard model
// ============================================================

func TestDashboardInitialSnapshot(t *testing.T) {
	e, clock := newTestEngine(t)
	createTask(t, e, "Write report")

	d := newDashboardModel(e, clock)
	if len(d.tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(d.tasks))
	}
	if d.active != nil {
		t.Fatal("no session should be active")
	}
	if d.lastSeq == 0 {
		t.Fatal("lastSeq should be set from the initial snapshot")
	}
}

func TestDashboardDropsStaleSnapshot(t *testing.T) {
	e, clock := newTestEngine(t)
	d := newDashboardModel(e, clock)

	older := e.Snapshot()
	createTask(t, e, "A")
	newer := e.Snapshot()

	d, cmd := d.update(snapshotMsg{snap: newer})
	if cmd == nil {
		t.Fatal("a fresh snapshot should reload stats")
	}
	if len(d.tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(d.tasks))
	}

	d, cmd = d.update(snapshotMsg{snap: older})
	if cmd != nil {
		t.Fatal("a stale snapshot should be ignored")
	}
	if len(d.tasks) != 1 {
		t.Fatal("a stale snapshot must not replace newer state")
	}
}

func TestDashboardTickSnapshotSkipsStats(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "A")
	if err := e.StartTimer(context.Background(), task.ID); err != nil {
		t.Fatal(err)
	}
	d := newDashboardModel(e, clock)

	var tick timer.Snapshot
	unsubscribe := e.Subscribe(timer.ObserverFunc(func(s timer.Snapshot) { tick = s }))
	clock.Advance(2 * time.Minute)
	e.Tick()
	unsubscribe()

	d, cmd := d.update(snapshotMsg{snap: tick})
	if cmd != nil {
		t.Fatal("tick snapshots should not reload stats")
	}
	if d.active == nil || d.active.ElapsedMinutes != 2 {
		t.Fatalf("expected 2 elapsed minutes, got %+v", d.active)
	}
}

func TestDashboardCursor(t *testing.T) {
	e, clock := newTestEngine(t)
	createTask(t, e, "A")
	createTask(t, e, "B")
	d := newDashboardModel(e, clock)

	d, _ = d.update(keyUp)
	if d.cursor != 0 {
		t.Fatal("cursor should not go above the first task")
	}
	d, _ = d.update(keyDown)
	d, _ = d.update(keyDown)
	if d.cursor != 1 {
		t.Fatalf("cursor should stop at the last task, got %d", d.cursor)
	}
	sel, ok := d.selected()
	if !ok || sel.Title != "B" {
		t.Fatalf("expected B selected, got %+v", sel)
	}
}

func TestDashboardStartPauseComplete(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "Deep work")
	d := newDashboardModel(e, clock)

	_, cmd := d.update(keyRune("s"))
	st := statuses(drain(cmd))
	if len(st) != 1 || st[0].isError || !strings.Contains(st[0].text, "Deep work") {
		t.Fatalf("unexpected start status: %+v", st)
	}
	if a := e.Active(); a == nil || a.TaskID != task.ID {
		t.Fatal("engine should run the selected task")
	}

	clock.Advance(5 * time.Minute)
	d.applySnapshot(e.Snapshot())
	_, cmd = d.update(keySpace)
	drain(cmd)
	if e.Active() != nil {
		t.Fatal("space should pause the running timer")
	}
	got, _ := e.Task(task.ID)
	if got.Status != store.StatusPaused || got.ActualMinutes != 5 {
		t.Fatalf("expected paused with 5 minutes, got %s/%d", got.Status, got.ActualMinutes)
	}

	d.applySnapshot(e.Snapshot())
	_, cmd = d.update(keyRune("c"))
	st = statuses(drain(cmd))
	if len(st) != 1 || st[0].isError || !strings.Contains(st[0].text, "XP") {
		t.Fatalf("unexpected complete status: %+v", st)
	}
	got, _ = e.Task(task.ID)
	if got.Status != store.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestDashboardSpaceResumesPausedTask(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "A")
	ctx := context.Background()
	if err := e.StartTimer(ctx, task.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.PauseTimer(ctx); err != nil {
		t.Fatal(err)
	}

	d := newDashboardModel(e, clock)
	_, cmd := d.update(keySpace)
	st := statuses(drain(cmd))
	if len(st) != 1 || !strings.HasPrefix(st[0].text, "Resumed") {
		t.Fatalf("unexpected status: %+v", st)
	}
	if a := e.Active(); a == nil || a.TaskID != task.ID {
		t.Fatal("space should resume the selected paused task")
	}
}

func TestDashboardSpaceIgnoresUnstartedTask(t *testing.T) {
	e, clock := newTestEngine(t)
	createTask(t, e, "A")
	d := newDashboardModel(e, clock)

	_, cmd := d.update(keySpace)
	if cmd != nil {
		t.Fatal("space on a not-started task should do nothing")
	}
}

func TestDashboardDeleteActiveTaskShowsHint(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "A")
	if err := e.StartTimer(context.Background(), task.ID); err != nil {
		t.Fatal(err)
	}
	d := newDashboardModel(e, clock)

	_, cmd := d.update(keyRune("d"))
	st := statuses(drain(cmd))
	if len(st) != 1 || !st[0].isError || !strings.Contains(st[0].text, "Pause the timer") {
		t.Fatalf("unexpected status: %+v", st)
	}
	if _, ok := e.Task(task.ID); !ok {
		t.Fatal("active task must not be deleted")
	}
}

func TestDashboardDeleteTask(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "A")
	d := newDashboardModel(e, clock)

	_, cmd := d.update(keyRune("d"))
	drain(cmd)
	if _, ok := e.Task(task.ID); ok {
		t.Fatal("task should be deleted")
	}
}

func TestDashboardStartWithoutTasks(t *testing.T) {
	e, clock := newTestEngine(t)
	d := newDashboardModel(e, clock)

	_, cmd := d.update(keyRune("s"))
	st := statuses(drain(cmd))
	if len(st) != 1 || !st[0].isError {
		t.Fatalf("expected an error status, got %+v", st)
	}
}

func TestDashboardLoadStats(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "A")
	if _, err := e.CompleteTask(context.Background(), task.ID); err != nil {
		t.Fatal(err)
	}

	d := newDashboardModel(e, clock)
	msgs := drain(d.loadStats())
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	data, ok := msgs[0].(statsDataMsg)
	if !ok {
		t.Fatalf("expected statsDataMsg, got %T", msgs[0])
	}
	if data.today.TasksCompleted != 1 || data.week.TasksCompleted != 1 {
		t.Fatalf("expected one completion today and this week, got %d/%d", data.today.TasksCompleted, data.week.TasksCompleted)
	}
	if data.streak.CurrentStreak != 1 {
		t.Fatalf("expected streak 1, got %d", data.streak.CurrentStreak)
	}
	if data.goals.DailyGoalTasks != 5 {
		t.Fatalf("expected default goal 5, got %d", data.goals.DailyGoalTasks)
	}

	d, _ = d.update(data)
	if d.today.TasksCompleted != 1 {
		t.Fatal("stats should be applied")
	}
}

func TestDashboardSnapshotReachesDashboardWhileFormOpen(t *testing.T) {
	e, clock := newTestEngine(t)
	d := newDashboardModel(e, clock)
	d.form.active = true

	createTask(t, e, "A")
	d, _ = d.update(snapshotMsg{snap: e.Snapshot()})
	if len(d.tasks) != 1 {
		t.Fatal("snapshots must apply while the form is open")
	}
}

func TestDashboardView(t *testing.T) {
	e, clock := newTestEngine(t)
	createTask(t, e, "Write report")
	d := newDashboardModel(e, clock)
	d.setSize(120, 40)

	v := d.view()
	if !strings.Contains(v, "Write report") {
		t.Fatal("view should list tasks")
	}

	d.setSize(10, 10)
	if d.view() != "Terminal too small" {
		t.Fatal("expected the small-terminal message")
	}
}

// ============================================================
// Task form
// ============================================================

func TestTaskFormSubmitCreates(t *testing.T) {
	e, _ := newTestEngine(t)
	f := newTaskForm(e)
	*f.values = taskValues{
		title:      "  Write tests ",
		estimate:   "30",
		priority:   store.PriorityHigh,
		categories: "work, deep ,",
		date:       "2026-04-15",
	}

	st := statuses(drain(f.submit()))
	if len(st) != 1 || st[0].isError {
		t.Fatalf("unexpected status: %+v", st)
	}

	tasks := e.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.Title != "Write tests" || got.EstimatedMinutes != 30 || got.Priority != store.PriorityHigh {
		t.Fatalf("unexpected task: %+v", got)
	}
	if !reflect.DeepEqual(got.Categories, []string{"work", "deep"}) {
		t.Fatalf("unexpected categories: %v", got.Categories)
	}
	if got.ScheduledDate != "2026-04-15" {
		t.Fatalf("unexpected date: %q", got.ScheduledDate)
	}
}

func TestTaskFormSubmitEdits(t *testing.T) {
	e, _ := newTestEngine(t)
	task := createTask(t, e, "Old")

	f := newTaskForm(e)
	f.editingID = task.ID
	*f.values = taskValues{title: "New", estimate: "15", priority: store.PriorityLow, tags: "a,b"}

	st := statuses(drain(f.submit()))
	if len(st) != 1 || st[0].text != "Updated New" {
		t.Fatalf("unexpected status: %+v", st)
	}
	got, _ := e.Task(task.ID)
	if got.Title != "New" || got.EstimatedMinutes != 15 || len(got.Tags) != 2 {
		t.Fatalf("unexpected task: %+v", got)
	}
}

func TestTaskFormOpenEditPrefills(t *testing.T) {
	e, _ := newTestEngine(t)
	f := newTaskForm(e)
	f, _ = f.openEdit(store.Task{ID: "x", Title: "T", EstimatedMinutes: 20, Categories: []string{"a", "b"}})

	if !f.active || f.editingID != "x" {
		t.Fatal("form should open in edit mode")
	}
	if f.values.estimate != "20" || f.values.categories != "a, b" {
		t.Fatalf("unexpected values: %+v", *f.values)
	}
}

func TestTaskFormValidators(t *testing.T) {
	if requireText("   ") == nil {
		t.Fatal("blank title should fail")
	}
	if validMinutes("") != nil || validMinutes("45") != nil {
		t.Fatal("empty and whole minutes are valid")
	}
	if validMinutes("-1") == nil || validMinutes("abc") == nil {
		t.Fatal("negative and non-numeric minutes are invalid")
	}
	if validDate("") != nil || validDate("2026-04-14") != nil {
		t.Fatal("empty and ISO dates are valid")
	}
	if validDate("14/04/2026") == nil {
		t.Fatal("non-ISO dates are invalid")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b ,,c ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ============================================================
// Pomodoro model
// ============================================================

func TestPomodoroInit(t *testing.T) {
	e, clock := newTestEngine(t)
	pm := newPomodoroModel(e, clock)

	if pm.phase != pomodoroIdle {
		t.Fatalf("expected idle phase, got %d", pm.phase)
	}
	if pm.workDuration != 25*time.Minute {
		t.Fatalf("expected 25min work, got %v", pm.workDuration)
	}
	if pm.breakDuration != 5*time.Minute {
		t.Fatalf("expected 5min break, got %v", pm.breakDuration)
	}
	if pm.longBreakDuration != 15*time.Minute {
		t.Fatalf("expected 15min long break, got %v", pm.longBreakDuration)
	}
	if pm.targetCount != 4 || pm.longEvery != 4 {
		t.Fatalf("expected 4 target, got %d", pm.targetCount)
	}
}

func TestPomodoroRejectsCompletedTask(t *testing.T) {
	e, clock := newTestEngine(t)
	pm := newPomodoroModel(e, clock)

	pm, cmd := pm.startSession(store.Task{ID: "x", Status: store.StatusCompleted})
	if pm.phase != pomodoroIdle {
		t.Fatal("completed tasks cannot start a pomodoro")
	}
	st := statuses(drain(cmd))
	if len(st) != 1 || !st[0].isError {
		t.Fatalf("expected an error status, got %+v", st)
	}
}

func TestPomodoroStartSessionStartsTimer(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "Focus")
	pm := newPomodoroModel(e, clock)

	pm, cmd := pm.startSession(*task)
	drain(cmd)
	if pm.phase != pomodoroWork {
		t.Fatal("should be in work phase after start")
	}
	if pm.remaining != 25*time.Minute {
		t.Fatalf("expected a full work phase, got %v", pm.remaining)
	}
	if a := e.Active(); a == nil || a.TaskID != task.ID {
		t.Fatal("work phase should run the engine timer")
	}
}

func TestPomodoroFullCycle(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	set := store.DefaultSettings()
	set.Pomodoro = store.PomodoroSettings{WorkMinutes: 10, ShortBreakMinutes: 2, LongBreakMinutes: 6, SessionsBeforeLongBreak: 2}
	if _, err := e.Store().SaveSettings(ctx, set); err != nil {
		t.Fatal(err)
	}
	task := createTask(t, e, "Focus")
	pm := newPomodoroModel(e, clock)

	pm, cmd := pm.startSession(*task)
	drain(cmd)

	// Work 1 -> short break
	clock.Advance(10 * time.Minute)
	pm, cmd = pm.update(tickMsg(clock.Now()))
	drain(cmd)
	if pm.phase != pomodoroShortBreak || pm.completedCount != 1 {
		t.Fatalf("expected short break after 1, got %s/%d", phaseNames[pm.phase], pm.completedCount)
	}
	if e.Active() != nil {
		t.Fatal("breaks pause the engine timer")
	}
	got, _ := e.Task(task.ID)
	if got.ActualMinutes != 10 {
		t.Fatalf("expected 10 focus minutes, got %d", got.ActualMinutes)
	}

	// Short break -> work 2
	clock.Advance(2 * time.Minute)
	pm, cmd = pm.update(tickMsg(clock.Now()))
	drain(cmd)
	if pm.phase != pomodoroWork {
		t.Fatalf("expected work, got %s", phaseNames[pm.phase])
	}
	if e.Active() == nil {
		t.Fatal("work phase should resume the engine timer")
	}

	// Work 2 -> long break
	clock.Advance(10 * time.Minute)
	pm, cmd = pm.update(tickMsg(clock.Now()))
	drain(cmd)
	if pm.phase != pomodoroLongBreak || pm.completedCount != 2 {
		t.Fatalf("expected long break after 2, got %s/%d", phaseNames[pm.phase], pm.completedCount)
	}

	// Long break -> completed
	clock.Advance(6 * time.Minute)
	pm, cmd = pm.update(tickMsg(clock.Now()))
	st := statuses(drain(cmd))
	if pm.phase != pomodoroCompleted {
		t.Fatalf("expected completed, got %s", phaseNames[pm.phase])
	}
	if len(st) != 1 || !strings.Contains(st[0].text, "complete") {
		t.Fatalf("unexpected status: %+v", st)
	}

	today, err := e.Store().GetOrCreateDaily(ctx, timeutil.DayKey(clock.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if today.BreakTimeMinutes != 8 {
		t.Fatalf("expected 8 break minutes, got %d", today.BreakTimeMinutes)
	}
	if today.FocusTimeMinutes != 20 {
		t.Fatalf("expected 20 focus minutes, got %d", today.FocusTimeMinutes)
	}
}

func TestPomodoroSkipBreakRecordsElapsed(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "Focus")
	pm := newPomodoroModel(e, clock)
	pm, cmd := pm.startSession(*task)
	drain(cmd)

	clock.Advance(25 * time.Minute)
	pm, cmd = pm.update(tickMsg(clock.Now()))
	drain(cmd)

	clock.Advance(3 * time.Minute)
	pm, cmd = pm.update(keySpace)
	drain(cmd)
	if pm.phase != pomodoroWork {
		t.Fatalf("skipping a break should start work, got %s", phaseNames[pm.phase])
	}

	today, _ := e.Store().GetOrCreateDaily(context.Background(), timeutil.DayKey(clock.Now()))
	if today.BreakTimeMinutes != 3 {
		t.Fatalf("expected the 3 minutes actually taken, got %d", today.BreakTimeMinutes)
	}
}

func TestPomodoroTickBeforeEndOnlyCountsDown(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "Focus")
	pm := newPomodoroModel(e, clock)
	pm, cmd := pm.startSession(*task)
	drain(cmd)

	clock.Advance(90 * time.Second)
	pm, cmd = pm.update(tickMsg(clock.Now()))
	if cmd != nil || pm.phase != pomodoroWork {
		t.Fatal("phase should continue")
	}
	if pm.remaining != 25*time.Minute-90*time.Second {
		t.Fatalf("unexpected remaining %v", pm.remaining)
	}
}

func TestPomodoroCancelPausesTimer(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "Focus")
	pm := newPomodoroModel(e, clock)
	pm, cmd := pm.startSession(*task)
	drain(cmd)

	pm, cmd = pm.update(keyRune("d"))
	drain(cmd)
	if pm.phase != pomodoroIdle {
		t.Fatal("should be idle after cancel")
	}
	if e.Active() != nil {
		t.Fatal("cancel should pause the engine timer")
	}
}

func TestPomodoroBreakLeavesOtherTaskRunning(t *testing.T) {
	e, clock := newTestEngine(t)
	a := createTask(t, e, "A")
	b := createTask(t, e, "B")
	pm := newPomodoroModel(e, clock)
	pm, cmd := pm.startSession(*a)
	drain(cmd)

	// The user switches to B from the dashboard mid-phase.
	if err := e.StartTimer(context.Background(), b.ID); err != nil {
		t.Fatal(err)
	}
	clock.Advance(25 * time.Minute)
	_, cmd = pm.update(tickMsg(clock.Now()))
	drain(cmd)

	if s := e.Active(); s == nil || s.TaskID != b.ID {
		t.Fatal("the break must not pause a different task")
	}
}

func TestPomodoroPhaseNames(t *testing.T) {
	for _, ph := range []pomodoroPhase{pomodoroIdle, pomodoroWork, pomodoroShortBreak, pomodoroLongBreak, pomodoroCompleted} {
		if phaseNames[ph] == "" {
			t.Errorf("phase %d has no name", ph)
		}
	}
}

func TestFormatPomodoroTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{90 * time.Second, "01:30"},
		{25 * time.Minute, "25:00"},
	}
	for _, tt := range tests {
		if got := formatPomodoroTime(tt.d); got != tt.want {
			t.Errorf("formatPomodoroTime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// ============================================================
// Reports model
// ============================================================

func TestReportsBucketKeys(t *testing.T) {
	e, clock := newTestEngine(t)
	r := newReportsModel(e.Store(), clock)

	keys := r.bucketKeys()
	if len(keys) != reportDays {
		t.Fatalf("expected %d keys, got %d", reportDays, len(keys))
	}
	if keys[0] != "2026-04-08" || keys[len(keys)-1] != "2026-04-14" {
		t.Fatalf("unexpected range %s..%s", keys[0], keys[len(keys)-1])
	}

	r.offset = 1
	keys = r.bucketKeys()
	if keys[len(keys)-1] != "2026-04-07" {
		t.Fatalf("previous page should end 2026-04-07, got %s", keys[len(keys)-1])
	}

	r.offset = 0
	r.mode = reportWeekly
	keys = r.bucketKeys()
	if len(keys) != reportWeeks {
		t.Fatalf("expected %d week keys, got %d", reportWeeks, len(keys))
	}
	if keys[len(keys)-1] != timeutil.WeekKey(clock.Now()) {
		t.Fatalf("last week key should be the current week, got %s", keys[len(keys)-1])
	}
}

func TestReportsRefreshLoadsStats(t *testing.T) {
	e, clock := newTestEngine(t)
	task := createTask(t, e, "A")
	ctx := context.Background()
	if err := e.StartTimer(ctx, task.ID); err != nil {
		t.Fatal(err)
	}
	clock.Advance(90 * time.Minute)
	if _, err := e.CompleteTask(ctx, task.ID); err != nil {
		t.Fatal(err)
	}

	r := newReportsModel(e.Store(), clock)
	r.setSize(100, 40)
	msgs := drain(r.refresh())
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	r, _ = r.update(msgs[0])
	if len(r.stats) != 1 || r.stats[0].FocusTimeMinutes != 90 {
		t.Fatalf("unexpected stats: %+v", r.stats)
	}

	v := r.view()
	if !strings.Contains(v, "Total") || !strings.Contains(v, "1h30m") {
		t.Fatal("summary table should show totals")
	}
}

func TestReportsNavigation(t *testing.T) {
	e, clock := newTestEngine(t)
	r := newReportsModel(e.Store(), clock)

	r, _ = r.update(keyRune("h"))
	if r.offset != 1 {
		t.Fatal("left should page back")
	}
	r, _ = r.update(keyRune("l"))
	r, _ = r.update(keyRune("l"))
	if r.offset != 0 {
		t.Fatal("right should not page past the present")
	}
	r, _ = r.update(keyEnter)
	if r.mode != reportWeekly {
		t.Fatal("enter should toggle weekly mode")
	}
}

func TestReportsEmptyView(t *testing.T) {
	e, clock := newTestEngine(t)
	r := newReportsModel(e.Store(), clock)
	r.setSize(100, 40)
	r.buildChart()

	if !strings.Contains(r.view(), "No data") {
		t.Fatal("empty reports should say so")
	}
}

// ============================================================
// Settings model
// ============================================================

func TestSettingsApplyValues(t *testing.T) {
	base := store.DefaultSettings()
	v := settingsValues{
		work:       "50",
		shortBreak: "10",
		longBreak:  "oops",
		sessions:   "3",
		goalTasks:  "8",
		goalFocus:  "300",
		reminder:   "0",
		theme:      "light",
	}

	got := v.apply(base)
	if got.Pomodoro.WorkMinutes != 50 || got.Pomodoro.ShortBreakMinutes != 10 {
		t.Fatalf("unexpected pomodoro settings: %+v", got.Pomodoro)
	}
	if got.Pomodoro.LongBreakMinutes != base.Pomodoro.LongBreakMinutes {
		t.Fatal("unparseable values should keep the previous setting")
	}
	if got.Gamification.DailyGoalTasks != 8 || got.Gamification.DailyGoalFocusMinutes != 300 {
		t.Fatalf("unexpected goals: %+v", got.Gamification)
	}
	if got.Theme != "light" {
		t.Fatalf("unexpected theme %q", got.Theme)
	}
	if got.Language != base.Language {
		t.Fatal("fields outside the form must be preserved")
	}
}

func TestSettingsSave(t *testing.T) {
	e, clock := newTestEngine(t)
	s := newSettingsModel(e.Store())

	next := store.DefaultSettings()
	next.Pomodoro.WorkMinutes = 45
	msgs := drain(s.save(next))
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	s, _ = s.update(msgs[0])
	if !s.loaded || s.settings.Pomodoro.WorkMinutes != 45 {
		t.Fatal("saved settings should be applied")
	}

	pm := newPomodoroModel(e, clock)
	if pm.workDuration != 45*time.Minute {
		t.Fatalf("pomodoro should read saved settings, got %v", pm.workDuration)
	}
}

func TestSettingsSaveRejectsInvalid(t *testing.T) {
	e, _ := newTestEngine(t)
	s := newSettingsModel(e.Store())

	next := store.DefaultSettings()
	next.Pomodoro.WorkMinutes = 0
	st := statuses(drain(s.save(next)))
	if len(st) != 1 || !st[0].isError {
		t.Fatalf("expected an error status, got %+v", st)
	}
}

func TestSettingsValidators(t *testing.T) {
	if positiveInt("1") != nil || positiveInt("0") == nil || positiveInt("x") == nil {
		t.Fatal("positiveInt misbehaves")
	}
	if nonNegativeInt("0") != nil || nonNegativeInt("-1") == nil {
		t.Fatal("nonNegativeInt misbehaves")
	}
	if atoiOr("7", 1) != 7 || atoiOr("", 1) != 1 {
		t.Fatal("atoiOr misbehaves")
	}
	if onOff(true) != "on" || onOff(false) != "off" {
		t.Fatal("onOff misbehaves")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-5 * time.Second, "00:00:00"},
		{61 * time.Second, "00:01:01"},
		{3*time.Hour + 25*time.Minute + 7*time.Second, "03:25:07"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		mins int
		want string
	}{
		{0, "0m"},
		{45, "45m"},
		{60, "1h00m"},
		{125, "2h05m"},
	}
	for _, tt := range tests {
		if got := formatMinutes(tt.mins); got != tt.want {
			t.Errorf("formatMinutes(%d) = %q, want %q", tt.mins, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if truncate("short", 10) != "short" {
		t.Fatal("short strings are unchanged")
	}
	if got := truncate("streakr rocks", 8); got != "streakr…" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("çğüşö", 3); got != "çğ…" {
		t.Fatalf("truncate should count runes, got %q", got)
	}
}

func TestViewNames(t *testing.T) {
	expected := []string{"Dashboard", "Reports", "Pomodoro", "Settings"}
	if !reflect.DeepEqual(viewNames, expected) {
		t.Fatalf("unexpected view names %v", viewNames)
	}
	if int(viewSettings) != len(viewNames)-1 {
		t.Fatal("view constants and names out of sync")
	}
}

// ============================================================
// App model
// ============================================================

func newTestApp(t *testing.T) (App, *timer.Engine, *timeutil.ManualClock) {
	t.Helper()
	e, clock := newTestEngine(t)
	a := NewApp(e, clock)
	a.exportDir = t.TempDir()
	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(App), e, clock
}

func TestAppLoadingState(t *testing.T) {
	e, clock := newTestEngine(t)
	a := NewApp(e, clock)
	if a.View() != "Loading..." {
		t.Fatal("expected the loading view before the first resize")
	}
}

func TestAppSwitchViews(t *testing.T) {
	a, _, _ := newTestApp(t)

	for i, k := range []string{"2", "3", "4", "1"} {
		m, _ := a.Update(keyRune(k))
		a = m.(App)
		want := []viewState{viewReports, viewPomodoro, viewSettings, viewDashboard}[i]
		if a.activeView != want {
			t.Fatalf("key %s: expected view %d, got %d", k, want, a.activeView)
		}
	}

	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.(App).activeView != viewReports {
		t.Fatal("tab should cycle to the next view")
	}
}

func TestAppRoutesSnapshotsToDashboard(t *testing.T) {
	a, e, _ := newTestApp(t)
	m, _ := a.Update(keyRune("2"))
	a = m.(App)

	createTask(t, e, "A")
	m, _ = a.Update(snapshotMsg{snap: e.Snapshot()})
	a = m.(App)
	if len(a.dashboard.tasks) != 1 {
		t.Fatal("snapshots reach the dashboard from any view")
	}
}

func TestAppPomodoroStartUsesSelectedTask(t *testing.T) {
	a, e, _ := newTestApp(t)
	task := createTask(t, e, "Focus")
	m, _ := a.Update(snapshotMsg{snap: e.Snapshot()})
	a = m.(App)

	m, _ = a.Update(keyRune("3"))
	a = m.(App)
	m, cmd := a.Update(keyRune("s"))
	a = m.(App)
	drain(cmd)

	if a.pomodoro.phase != pomodoroWork || a.pomodoro.taskID != task.ID {
		t.Fatal("pomodoro should start on the selected task")
	}
	if s := e.Active(); s == nil || s.TaskID != task.ID {
		t.Fatal("engine timer should run")
	}
}

func TestAppPomodoroStartWithoutTasks(t *testing.T) {
	a, _, _ := newTestApp(t)
	m, _ := a.Update(keyRune("3"))
	a = m.(App)

	_, cmd := a.Update(keyRune("s"))
	st := statuses(drain(cmd))
	if len(st) != 1 || !st[0].isError {
		t.Fatalf("expected an error status, got %+v", st)
	}
}

func TestAppStatusMessage(t *testing.T) {
	a, _, _ := newTestApp(t)
	m, _ := a.Update(statusMsg{text: "boom", isError: true})
	a = m.(App)

	if a.status != "boom" || a.statusOK {
		t.Fatal("status should be recorded as an error")
	}
	if !strings.Contains(a.renderFooter(), "boom") {
		t.Fatal("footer should show the status")
	}
}

func TestAppHeaderAndFooter(t *testing.T) {
	a, e, _ := newTestApp(t)

	header := a.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
	if !strings.Contains(header, "streakr") {
		t.Fatal("header should show the title")
	}

	task := createTask(t, e, "A")
	if err := e.StartTimer(context.Background(), task.ID); err != nil {
		t.Fatal(err)
	}
	m, _ := a.Update(snapshotMsg{snap: e.Snapshot()})
	a = m.(App)
	if !strings.Contains(a.renderFooter(), "00:00:00") {
		t.Fatal("footer should show the running timer")
	}
}

func TestAppExport(t *testing.T) {
	a, e, clock := newTestApp(t)
	task := createTask(t, e, "A")
	ctx := context.Background()
	if err := e.StartTimer(ctx, task.ID); err != nil {
		t.Fatal(err)
	}
	clock.Advance(10 * time.Minute)
	if err := e.PauseTimer(ctx); err != nil {
		t.Fatal(err)
	}

	m, _ := a.Update(keyRune("e"))
	a = m.(App)
	if !a.exportPicking {
		t.Fatal("e should open the export picker")
	}
	if !strings.Contains(a.View(), "Export Time Logs") {
		t.Fatal("picker should render")
	}

	m, _ = a.Update(keyDown)
	a = m.(App)
	m, cmd := a.Update(keyEnter)
	a = m.(App)
	msgs := drain(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	done, ok := msgs[0].(exportDoneMsg)
	if !ok {
		t.Fatalf("expected exportDoneMsg, got %#v", msgs[0])
	}
	want := filepath.Join(a.exportDir, "streakr-export-2026-04-14.json")
	if done.path != want {
		t.Fatalf("expected %s, got %s", want, done.path)
	}
	data, err := os.ReadFile(done.path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"task": "A"`) {
		t.Fatalf("export should name the task, got %s", data)
	}

	m, _ = a.Update(done)
	if !strings.Contains(m.(App).status, "Exported") {
		t.Fatal("status should report the export")
	}
}

func TestAppExportPickerCancel(t *testing.T) {
	a, _, _ := newTestApp(t)
	m, _ := a.Update(keyRune("e"))
	m, _ = m.(App).Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.(App).exportPicking {
		t.Fatal("esc should close the picker")
	}
}

func TestAppQuit(t *testing.T) {
	a, _, _ := newTestApp(t)
	_, cmd := a.Update(keyRune("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected QuitMsg")
	}
}

func TestAppHelpToggle(t *testing.T) {
	a, _, _ := newTestApp(t)
	m, _ := a.Update(keyRune("?"))
	if !m.(App).showHelp {
		t.Fatal("? should show full help")
	}
}

func TestAppSettingsUpdateGoalsAndPomodoro(t *testing.T) {
	a, _, _ := newTestApp(t)
	set := store.DefaultSettings()
	set.Gamification.DailyGoalTasks = 9
	set.Pomodoro.WorkMinutes = 40

	m, _ := a.Update(settingsDataMsg{settings: set})
	a = m.(App)
	if a.dashboard.goals.DailyGoalTasks != 9 {
		t.Fatal("dashboard goals should follow saved settings")
	}
	if a.pomodoro.workDuration != 40*time.Minute {
		t.Fatal("idle pomodoro should pick up new durations")
	}
}

func TestAppEveryViewRenders(t *testing.T) {
	a, e, _ := newTestApp(t)
	createTask(t, e, "A")
	for _, v := range []viewState{viewDashboard, viewReports, viewPomodoro, viewSettings} {
		a.activeView = v
		if out := a.View(); out == "" {
			t.Fatalf("view %d rendered nothing", v)
		}
	}
}

// ============================================================
// Keys and styles
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should not be empty")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should not be empty")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("help group %d is empty", i)
		}
	}
}

func TestStylesRender(t *testing.T) {
	for name, s := range map[string]string{
		"title":  titleStyle.Render("x"),
		"streak": streakStyle.Render("x"),
		"xp":     xpStyle.Render("x"),
		"done":   doneItemStyle.Render("x"),
	} {
		if !strings.Contains(s, "x") {
			t.Errorf("%s style dropped its content", name)
		}
	}
	for _, p := range taskPriorities {
		if _, ok := priorityStyles[p]; !ok {
			t.Errorf("no style for priority %s", p)
		}
	}
	for _, st := range []store.Status{store.StatusNotStarted, store.StatusInProgress, store.StatusPaused, store.StatusCompleted} {
		if statusIcons[st] == "" {
			t.Errorf("no icon for status %s", st)
		}
	}
}
