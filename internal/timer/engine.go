// Package timer owns the single active timer session and every task status
// transition. All mutating operations are serialized; each one persists its
// writes in a single transaction before the in-memory view changes, and only
// then broadcasts a snapshot to observers.
package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sadopc/streakr/internal/marker"
	"github.com/sadopc/streakr/internal/store"
	"github.com/sadopc/streakr/internal/timeutil"
	"github.com/sadopc/streakr/internal/xp"
)

var (
	ErrNoActiveSession = fmt.Errorf("%w: no active timer session", store.ErrInvariant)
	ErrTaskActive      = fmt.Errorf("%w: task has a running timer", store.ErrInvariant)
	ErrTaskCompleted   = fmt.Errorf("%w: task is already completed", store.ErrInvariant)
	ErrManagedField    = fmt.Errorf("%w: field is managed by the timer", store.ErrInvariant)

	errOtherSession = errors.New("running session belongs to another task")
)

// Session is the running timer.
type Session struct {
	TaskID         string
	StartTime      time.Time
	ElapsedMinutes int
}

type Options struct {
	Store   *store.Store
	Markers marker.Store
	Policy  xp.Policy
	Clock   timeutil.Clock
	Logger  *slog.Logger
}

type Engine struct {
	store   *store.Store
	markers marker.Store
	policy  xp.Policy
	clock   timeutil.Clock
	logger  *slog.Logger

	// mu serializes mutating operations, including their persistence.
	mu sync.Mutex

	// stateMu guards the in-memory view for readers that must not wait on
	// persistence (Tick, Snapshot).
	stateMu sync.RWMutex
	tasks   map[string]*store.Task
	order   []string
	active  *Session

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
	seq       atomic.Uint64
	displayed atomic.Int64
}

func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Policy == nil {
		opts.Policy = xp.Weighted{}
	}
	return &Engine{
		store:     opts.Store,
		markers:   opts.Markers,
		policy:    xp.Clamp(opts.Policy),
		clock:     opts.Clock,
		logger:    opts.Logger,
		tasks:     make(map[string]*store.Task),
		observers: make(map[int]Observer),
	}
}

// Hydrate loads every persisted task and restores the session marker when it
// still points at an in-progress task. Stale markers are discarded, and tasks
// left in progress without a valid session are demoted to paused.
func (e *Engine) Hydrate(ctx context.Context) error {
	snap, err := e.hydrate(ctx)
	if err != nil {
		return err
	}
	e.publish(snap)
	return nil
}

func (e *Engine) hydrate(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	started := e.clock.Now()

	list, err := e.store.ListTasks(ctx, store.TaskFilter{})
	if err != nil {
		e.observe(ctx, "hydrate", started, err)
		return Snapshot{}, fmt.Errorf("load tasks: %w", err)
	}

	tasks := make(map[string]*store.Task, len(list))
	order := make([]string, 0, len(list))
	for i := range list {
		t := list[i]
		tasks[t.ID] = &t
		order = append(order, t.ID)
	}

	var active *Session
	sess, err := e.markers.Session()
	if err != nil {
		// Without the marker an in-progress task may still own a live
		// session. Show it paused but leave the store for the next hydrate.
		e.logger.WarnContext(ctx, "session_marker_unreadable", "error", err)
		paused := store.StatusPaused
		for _, t := range tasks {
			if t.Status == store.StatusInProgress {
				t.Status = paused
			}
		}
		e.stateMu.Lock()
		e.tasks = tasks
		e.order = order
		e.active = nil
		e.displayed.Store(0)
		e.stateMu.Unlock()
		e.observe(ctx, "hydrate", started, nil, "tasks", len(order), "restored_session", false, "marker_unreadable", true)
		return e.snapshot(EventHydrated, ""), nil
	}
	if sess != nil {
		if t, ok := tasks[sess.TaskID]; ok && t.Status == store.StatusInProgress {
			active = &Session{TaskID: sess.TaskID, StartTime: sess.StartTime}
		} else {
			e.logger.InfoContext(ctx, "session_marker_discarded", "task_id", sess.TaskID)
			if err := e.markers.ClearSession(); err != nil {
				e.logger.WarnContext(ctx, "session_marker_clear_failed", "error", err)
			}
		}
	}

	paused := store.StatusPaused
	for _, id := range order {
		t := tasks[id]
		if t.Status != store.StatusInProgress || (active != nil && active.TaskID == id) {
			continue
		}
		updated, err := e.store.UpdateTask(ctx, id, store.TaskPatch{Status: &paused})
		if err != nil {
			e.logger.WarnContext(ctx, "orphan_demote_failed", "task_id", id, "error", err)
			continue
		}
		tasks[id] = updated
	}

	e.stateMu.Lock()
	e.tasks = tasks
	e.order = order
	e.active = active
	e.displayed.Store(0)
	e.stateMu.Unlock()

	e.observe(ctx, "hydrate", started, nil, "tasks", len(order), "restored_session", active != nil)
	return e.snapshot(EventHydrated, ""), nil
}

// CreateTask persists a new task and adds it to the in-memory list.
func (e *Engine) CreateTask(ctx context.Context, in store.TaskInput) (*store.Task, error) {
	e.mu.Lock()
	started := e.clock.Now()
	t, err := e.store.CreateTask(ctx, in)
	if err != nil {
		e.mu.Unlock()
		e.observe(ctx, "create_task", started, err)
		return nil, err
	}
	e.stateMu.Lock()
	e.tasks[t.ID] = t
	e.order = append(e.order, t.ID)
	e.stateMu.Unlock()
	snap := e.snapshot(EventTaskCreated, t.ID)
	e.mu.Unlock()

	e.observe(ctx, "create_task", started, nil, "task_id", t.ID)
	e.publish(snap)
	out := t.Clone()
	return &out, nil
}

// UpdateTask edits user-owned task fields. Status, actual minutes and the
// start/completion dates belong to the timer and are rejected here.
func (e *Engine) UpdateTask(ctx context.Context, id string, p store.TaskPatch) (*store.Task, error) {
	if p.Status != nil || p.ActualMinutes != nil || p.StartedAt != nil || p.CompletedAt != nil {
		return nil, ErrManagedField
	}

	e.mu.Lock()
	started := e.clock.Now()
	if _, ok := e.tasks[id]; !ok {
		e.mu.Unlock()
		return nil, notFound(id)
	}
	t, err := e.store.UpdateTask(ctx, id, p)
	if err != nil {
		e.mu.Unlock()
		e.observe(ctx, "update_task", started, err, "task_id", id)
		return nil, err
	}
	e.setTask(t)
	snap := e.snapshot(EventTaskUpdated, id)
	e.mu.Unlock()

	e.observe(ctx, "update_task", started, nil, "task_id", id)
	e.publish(snap)
	out := t.Clone()
	return &out, nil
}

// StartTimer makes id the active task. Starting the already active task is a
// no-op; starting while another task runs pauses that task first.
func (e *Engine) StartTimer(ctx context.Context, id string) error {
	snaps, err := e.start(ctx, id)
	for _, s := range snaps {
		e.publish(s)
	}
	return err
}

// ResumeTimer is StartTimer for a paused task.
func (e *Engine) ResumeTimer(ctx context.Context, id string) error {
	return e.StartTimer(ctx, id)
}

func (e *Engine) start(ctx context.Context, id string) ([]Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	started := e.clock.Now()

	if e.active != nil && e.active.TaskID == id {
		return nil, nil
	}
	t, ok := e.tasks[id]
	if !ok {
		return nil, notFound(id)
	}
	if t.Status == store.StatusCompleted {
		return nil, fmt.Errorf("start task %s: %w", id, ErrTaskCompleted)
	}

	var prev *Session
	if e.active != nil {
		s := *e.active
		prev = &s
	}

	// The marker goes first: if it cannot be written nothing else changes.
	now := e.clock.Now()
	if err := e.markers.SetSession(marker.Session{TaskID: id, StartTime: now}); err != nil {
		err = &store.PersistenceError{Op: "write session marker", Err: err}
		e.observe(ctx, "start_timer", started, err, "task_id", id)
		return nil, err
	}

	inProgress := store.StatusInProgress
	patch := store.TaskPatch{Status: &inProgress}
	if t.StartedAt == nil {
		patch.StartedAt = &now
	}
	var paused, updated *store.Task
	err := e.store.WithinTx(ctx, func(tx *store.Store) error {
		if prev != nil {
			var err error
			if paused, _, err = commitInterval(ctx, tx, *prev, now, store.StatusPaused); err != nil {
				return fmt.Errorf("auto-pause task %s: %w", prev.TaskID, err)
			}
		}
		var err error
		updated, err = tx.UpdateTask(ctx, id, patch)
		return err
	})
	if err != nil {
		e.restoreMarker(ctx, prev)
		e.observe(ctx, "start_timer", started, err, "task_id", id)
		return nil, err
	}

	var snaps []Snapshot
	if prev != nil {
		e.stateMu.Lock()
		e.tasks[prev.TaskID] = paused
		e.active = nil
		e.displayed.Store(0)
		e.stateMu.Unlock()
		snaps = append(snaps, e.snapshot(EventPaused, prev.TaskID))
	}

	e.stateMu.Lock()
	e.tasks[id] = updated
	e.active = &Session{TaskID: id, StartTime: now}
	e.displayed.Store(0)
	e.stateMu.Unlock()

	if prev != nil {
		e.observe(ctx, "start_timer", started, nil, "task_id", id, "auto_paused", prev.TaskID)
	} else {
		e.observe(ctx, "start_timer", started, nil, "task_id", id)
	}
	return append(snaps, e.snapshot(EventStarted, id)), nil
}

// restoreMarker puts back the marker of prev, or clears it when no session was
// running.
func (e *Engine) restoreMarker(ctx context.Context, prev *Session) {
	var err error
	if prev != nil {
		err = e.markers.SetSession(marker.Session{TaskID: prev.TaskID, StartTime: prev.StartTime})
	} else {
		err = e.markers.ClearSession()
	}
	if err != nil {
		e.logger.WarnContext(ctx, "session_marker_restore_failed", "error", err)
	}
}

// PauseTimer commits the running interval: it appends a time log, adds the
// elapsed minutes to the task and to today's focus time, and clears the
// session.
func (e *Engine) PauseTimer(ctx context.Context) error {
	snap, err := e.pause(ctx, "")
	if err != nil {
		return err
	}
	e.publish(snap)
	return nil
}

// PauseIfActive pauses the running timer only when it belongs to id. It
// reports whether a pause happened.
func (e *Engine) PauseIfActive(ctx context.Context, id string) (bool, error) {
	snap, err := e.pause(ctx, id)
	if errors.Is(err, errOtherSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	e.publish(snap)
	return true, nil
}

// pause commits the running interval. A non-empty id restricts it to that
// task's session.
func (e *Engine) pause(ctx context.Context, only string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	started := e.clock.Now()

	if e.active == nil {
		if only != "" {
			return Snapshot{}, errOtherSession
		}
		return Snapshot{}, ErrNoActiveSession
	}
	id := e.active.TaskID
	if only != "" && only != id {
		return Snapshot{}, errOtherSession
	}
	mins, err := e.pauseLocked(ctx)
	if err != nil {
		e.observe(ctx, "pause_timer", started, err, "task_id", id)
		return Snapshot{}, err
	}
	e.observe(ctx, "pause_timer", started, nil, "task_id", id, "minutes", mins)
	return e.snapshot(EventPaused, id), nil
}

// pauseLocked requires e.mu and a non-nil active session.
func (e *Engine) pauseLocked(ctx context.Context) (int, error) {
	sess := *e.active
	now := e.clock.Now()

	var updated *store.Task
	var mins int
	err := e.store.WithinTx(ctx, func(tx *store.Store) error {
		var err error
		updated, mins, err = commitInterval(ctx, tx, sess, now, store.StatusPaused)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.clearMarker(ctx)

	e.stateMu.Lock()
	e.tasks[sess.TaskID] = updated
	e.active = nil
	e.displayed.Store(0)
	e.stateMu.Unlock()
	return mins, nil
}

// commitInterval writes the time log, task minutes/status and focus time for
// one finished interval.
func commitInterval(ctx context.Context, tx *store.Store, sess Session, end time.Time, status store.Status) (*store.Task, int, error) {
	mins := timeutil.ElapsedMinutes(sess.StartTime, end)
	if _, err := tx.CreateTimeLog(ctx, sess.TaskID, sess.StartTime, end, mins); err != nil {
		return nil, 0, err
	}
	cur, err := tx.GetTask(ctx, sess.TaskID)
	if err != nil {
		return nil, 0, err
	}
	actual := cur.ActualMinutes + mins
	updated, err := tx.UpdateTask(ctx, sess.TaskID, store.TaskPatch{ActualMinutes: &actual, Status: &status})
	if err != nil {
		return nil, 0, err
	}
	if _, err := tx.IncrementFocusTime(ctx, end, mins); err != nil {
		return nil, 0, err
	}
	return updated, mins, nil
}

// CompleteTask finishes a task. A running timer on it is committed first.
// Completion bumps today's task count, the streak and today's XP.
func (e *Engine) CompleteTask(ctx context.Context, id string) (*Completion, error) {
	snap, c, err := e.complete(ctx, id)
	if err != nil {
		return nil, err
	}
	e.publish(snap)
	return c, nil
}

func (e *Engine) complete(ctx context.Context, id string) (Snapshot, *Completion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	started := e.clock.Now()

	t, ok := e.tasks[id]
	if !ok {
		return Snapshot{}, nil, notFound(id)
	}
	if t.Status == store.StatusCompleted {
		return Snapshot{}, nil, fmt.Errorf("complete task %s: %w", id, ErrTaskCompleted)
	}

	wasActive := e.active != nil && e.active.TaskID == id
	now := e.clock.Now()

	var updated *store.Task
	c := &Completion{TaskID: id}
	err := e.store.WithinTx(ctx, func(tx *store.Store) error {
		if wasActive {
			var err error
			if _, c.FinalMinutes, err = commitInterval(ctx, tx, *e.active, now, store.StatusPaused); err != nil {
				return err
			}
		}

		done := store.StatusCompleted
		var err error
		updated, err = tx.UpdateTask(ctx, id, store.TaskPatch{Status: &done, CompletedAt: &now})
		if err != nil {
			return err
		}
		if _, err := tx.IncrementTaskCount(ctx, now, 1); err != nil {
			return err
		}

		up, err := tx.UpdateStreak(ctx, now)
		if err != nil {
			return err
		}
		c.Streak = up.Streak
		c.FirstCompletionToday = up.FirstCompletionToday

		c.XP = e.policy.Compute(xp.Input{
			FocusMinutes:         updated.ActualMinutes,
			StreakLength:         up.CurrentStreak,
			EstimatedMinutes:     updated.EstimatedMinutes,
			ActualMinutes:        updated.ActualMinutes,
			FirstCompletionToday: up.FirstCompletionToday,
		})
		if c.XP > 0 {
			if _, err := tx.IncrementXP(ctx, now, c.XP); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		e.observe(ctx, "complete_task", started, err, "task_id", id)
		return Snapshot{}, nil, err
	}
	if wasActive {
		e.clearMarker(ctx)
	}

	e.stateMu.Lock()
	e.tasks[id] = updated
	if wasActive {
		e.active = nil
		e.displayed.Store(0)
	}
	e.stateMu.Unlock()

	e.observe(ctx, "complete_task", started, nil, "task_id", id, "xp", c.XP, "streak", c.Streak.CurrentStreak)
	snap := e.snapshot(EventCompleted, id)
	cc := *c
	snap.Completion = &cc
	return snap, c, nil
}

// DeleteTask removes a task and its time logs. The active task cannot be
// deleted.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	snap, err := e.delete(ctx, id)
	if err != nil {
		return err
	}
	e.publish(snap)
	return nil
}

func (e *Engine) delete(ctx context.Context, id string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	started := e.clock.Now()

	if e.active != nil && e.active.TaskID == id {
		return Snapshot{}, fmt.Errorf("delete task %s: %w", id, ErrTaskActive)
	}
	if _, ok := e.tasks[id]; !ok {
		return Snapshot{}, notFound(id)
	}

	var logs int
	err := e.store.WithinTx(ctx, func(tx *store.Store) error {
		var err error
		if logs, err = tx.DeleteTimeLogsByTask(ctx, id); err != nil {
			return err
		}
		return tx.DeleteTask(ctx, id)
	})
	if err != nil {
		e.observe(ctx, "delete_task", started, err, "task_id", id)
		return Snapshot{}, err
	}

	e.stateMu.Lock()
	delete(e.tasks, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i:i], e.order[i+1:]...)
			break
		}
	}
	e.stateMu.Unlock()

	e.observe(ctx, "delete_task", started, nil, "task_id", id, "time_logs", logs)
	return e.snapshot(EventDeleted, id), nil
}

// RecordBreak adds break minutes to today's stats.
func (e *Engine) RecordBreak(ctx context.Context, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: break minutes must be positive", store.ErrInvariant)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.store.IncrementBreakTime(ctx, e.clock.Now(), minutes)
	return err
}

// Tick refreshes the displayed elapsed time of the running session and
// broadcasts it. It never writes to the store. It returns nil when no timer
// is running.
func (e *Engine) Tick() *Session {
	// displayed is only written under stateMu so a tick cannot carry a
	// finished session's minutes into the next one.
	e.stateMu.Lock()
	if e.active == nil {
		e.stateMu.Unlock()
		return nil
	}
	s := *e.active
	s.ElapsedMinutes = timeutil.ElapsedMinutes(s.StartTime, e.clock.Now())
	e.displayed.Store(int64(s.ElapsedMinutes))
	e.stateMu.Unlock()

	e.publish(e.snapshot(EventTick, s.TaskID))
	return &s
}

// Active returns a copy of the running session, or nil.
func (e *Engine) Active() *Session {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.activeCopy()
}

// Tasks returns copies of all tasks in insertion order.
func (e *Engine) Tasks() []store.Task {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.taskList()
}

func (e *Engine) Task(id string) (store.Task, bool) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	t, ok := e.tasks[id]
	if !ok {
		return store.Task{}, false
	}
	return t.Clone(), true
}

// Store exposes the record store for read-only queries by hosts.
func (e *Engine) Store() *store.Store { return e.store }

func (e *Engine) setTask(t *store.Task) {
	e.stateMu.Lock()
	e.tasks[t.ID] = t
	e.stateMu.Unlock()
}

func (e *Engine) clearMarker(ctx context.Context) {
	// The interval is already committed; a leftover marker now points at a
	// paused or completed task and is discarded on the next hydrate.
	if err := e.markers.ClearSession(); err != nil {
		e.logger.WarnContext(ctx, "session_marker_clear_failed", "error", err)
	}
}

func (e *Engine) activeCopy() *Session {
	if e.active == nil {
		return nil
	}
	s := *e.active
	s.ElapsedMinutes = int(e.displayed.Load())
	return &s
}

func (e *Engine) taskList() []store.Task {
	out := make([]store.Task, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.tasks[id].Clone())
	}
	return out
}

func (e *Engine) observe(ctx context.Context, name string, started time.Time, err error, fields ...any) {
	attrs := append([]any{"use_case", name, "duration_ms", e.clock.Now().Sub(started).Milliseconds()}, fields...)
	if err != nil {
		e.logger.WarnContext(ctx, "timer_op", append(attrs, "error", err.Error())...)
		return
	}
	e.logger.DebugContext(ctx, "timer_op", attrs...)
}

func notFound(id string) error {
	return fmt.Errorf("task %s: %w", id, store.ErrNotFound)
}
