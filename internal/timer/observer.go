package timer

import "github.com/sadopc/streakr/internal/store"

type EventKind string

const (
	EventHydrated    EventKind = "hydrated"
	EventTaskCreated EventKind = "task_created"
	EventTaskUpdated EventKind = "task_updated"
	EventStarted     EventKind = "started"
	EventPaused      EventKind = "paused"
	EventCompleted   EventKind = "completed"
	EventDeleted     EventKind = "deleted"
	EventTick        EventKind = "tick"
)

// Completion describes the rewards of one CompleteTask call.
type Completion struct {
	TaskID               string
	FinalMinutes         int
	XP                   int
	Streak               store.Streak
	FirstCompletionToday bool
}

// Snapshot is the state broadcast after every successful operation. Seq
// increases monotonically so observers can drop stale snapshots.
type Snapshot struct {
	Seq        uint64
	Event      EventKind
	TaskID     string
	Tasks      []store.Task
	Active     *Session
	Completion *Completion
}

// Observer receives snapshots. Observe runs on the goroutine of the operation
// that produced the snapshot, after the engine has released its locks.
type Observer interface {
	Observe(Snapshot)
}

type ObserverFunc func(Snapshot)

func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// Subscribe registers o and returns a function that removes it.
func (e *Engine) Subscribe(o Observer) func() {
	e.obsMu.Lock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = o
	e.obsMu.Unlock()

	return func() {
		e.obsMu.Lock()
		delete(e.observers, id)
		e.obsMu.Unlock()
	}
}

// Snapshot returns the current state without broadcasting it.
func (e *Engine) Snapshot() Snapshot {
	return e.snapshot("", "")
}

func (e *Engine) snapshot(kind EventKind, taskID string) Snapshot {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return Snapshot{
		Seq:    e.seq.Add(1),
		Event:  kind,
		TaskID: taskID,
		Tasks:  e.taskList(),
		Active: e.activeCopy(),
	}
}

func (e *Engine) publish(s Snapshot) {
	e.obsMu.Lock()
	obs := make([]Observer, 0, len(e.observers))
	for _, o := range e.observers {
		obs = append(obs, o)
	}
	e.obsMu.Unlock()

	for _, o := range obs {
		o.Observe(s)
	}
}
