package store

import (
	"context"
	"encoding/json"
	"fmt"
)

const settingsID = 1

// GetSettings returns the singleton settings record, creating it with
// DefaultSettings on first access.
func (s *Store) GetSettings(ctx context.Context) (*Settings, error) {
	def := DefaultSettings()
	data, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	if _, err := s.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (id, data, updated_at) VALUES (?, ?, ?)`,
		settingsID, string(data), formatTime(s.clock.Now()),
	); err != nil {
		return nil, persistErr("create settings", err)
	}

	var raw, updatedAt string
	err = s.q.QueryRowContext(ctx, `SELECT data, updated_at FROM settings WHERE id = ?`, settingsID).
		Scan(&raw, &updatedAt)
	if err != nil {
		return nil, rowErr("get settings", err)
	}

	// Decode over defaults so fields added later keep sensible values.
	out := DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	out.UpdatedAt = parseTime(updatedAt)
	return &out, nil
}

func (s *Store) SaveSettings(ctx context.Context, in Settings) (*Settings, error) {
	if in.Pomodoro.WorkMinutes <= 0 || in.Pomodoro.ShortBreakMinutes < 0 || in.Pomodoro.LongBreakMinutes < 0 {
		return nil, invariantf("pomodoro durations must be positive")
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	in.UpdatedAt = s.clock.Now()
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO settings (id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		settingsID, string(data), formatTime(in.UpdatedAt),
	)
	if err != nil {
		return nil, persistErr("save settings", err)
	}
	return &in, nil
}
