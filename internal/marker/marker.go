// Package marker keeps the two small pieces of state that must survive a
// restart without the record store being open: the active timer session and
// the date of the last rollover.
package marker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Session is the persisted form of the running timer.
type Session struct {
	TaskID    string    `yaml:"task_id"`
	StartTime time.Time `yaml:"start_time"`
}

type Store interface {
	// Session returns nil when no session marker is stored.
	Session() (*Session, error)
	SetSession(Session) error
	ClearSession() error
	// LastRollover returns "" when rollover has never run.
	LastRollover() (string, error)
	SetLastRollover(date string) error
}

type state struct {
	ActiveSession    *Session `yaml:"active_session,omitempty"`
	LastRolloverDate string   `yaml:"last_rollover_date,omitempty"`
}

// File stores markers in a YAML document. Every write replaces the file
// atomically via rename.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Session() (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.read()
	if err != nil {
		return nil, err
	}
	return st.ActiveSession, nil
}

func (f *File) SetSession(s Session) error {
	return f.update(func(st *state) { st.ActiveSession = &s })
}

func (f *File) ClearSession() error {
	return f.update(func(st *state) { st.ActiveSession = nil })
}

func (f *File) LastRollover() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.read()
	if err != nil {
		return "", err
	}
	return st.LastRolloverDate, nil
}

func (f *File) SetLastRollover(date string) error {
	return f.update(func(st *state) { st.LastRolloverDate = date })
}

func (f *File) update(fn func(*state)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.read()
	if err != nil {
		return err
	}
	fn(&st)
	return f.write(st)
}

func (f *File) read() (state, error) {
	var st state
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read marker file: %w", err)
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse marker file: %w", err)
	}
	return st, nil
}

func (f *File) write(st state) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode markers: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write marker file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace marker file: %w", err)
	}
	return nil
}

// Memory is an in-process Store for tests. Setting FailWrites makes every
// write return that error; FailReads does the same for reads.
type Memory struct {
	mu         sync.Mutex
	st         state
	FailWrites error
	FailReads  error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Session() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads != nil {
		return nil, m.FailReads
	}
	if m.st.ActiveSession == nil {
		return nil, nil
	}
	s := *m.st.ActiveSession
	return &s, nil
}

func (m *Memory) SetSession(s Session) error {
	return m.update(func(st *state) { st.ActiveSession = &s })
}

func (m *Memory) ClearSession() error {
	return m.update(func(st *state) { st.ActiveSession = nil })
}

func (m *Memory) LastRollover() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads != nil {
		return "", m.FailReads
	}
	return m.st.LastRolloverDate, nil
}

func (m *Memory) SetLastRollover(date string) error {
	return m.update(func(st *state) { st.LastRolloverDate = date })
}

func (m *Memory) update(fn func(*state)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	fn(&m.st)
	return nil
}
