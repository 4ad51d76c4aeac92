package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadopc/streakr/internal/timeutil"
)

const statsColumns = `key, tasks_completed, focus_minutes, break_minutes, xp, achievements, created_at, updated_at`

// GetOrCreateStats returns the aggregate for key, creating an all-zero row on
// first access.
func (s *Store) GetOrCreateStats(ctx context.Context, p Period, key string) (*Stats, error) {
	now := formatTime(s.clock.Now())
	_, err := s.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO `+p.table()+` (key, created_at, updated_at) VALUES (?, ?, ?)`,
		key, now, now,
	)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("create %s stats %s", p, key), err)
	}
	return s.getStats(ctx, p, key)
}

func (s *Store) GetOrCreateDaily(ctx context.Context, date string) (*Stats, error) {
	return s.GetOrCreateStats(ctx, Daily, date)
}

func (s *Store) GetOrCreateWeekly(ctx context.Context, week string) (*Stats, error) {
	return s.GetOrCreateStats(ctx, Weekly, week)
}

// IncrementStats adds delta to one counter of the aggregate for key and
// returns the new value.
func (s *Store) IncrementStats(ctx context.Context, p Period, key string, field StatField, delta int) (int, error) {
	if !field.valid() {
		return 0, invariantf("unknown stats field %q", field)
	}
	cur, err := s.GetOrCreateStats(ctx, p, key)
	if err != nil {
		return 0, err
	}
	next := cur.value(field) + delta
	if next < 0 {
		return 0, invariantf("%s %s of %s would become negative", p, field, key)
	}
	_, err = s.q.ExecContext(ctx,
		`UPDATE `+p.table()+` SET `+string(field)+` = ?, updated_at = ? WHERE key = ?`,
		next, formatTime(s.clock.Now()), key,
	)
	if err != nil {
		return 0, persistErr(fmt.Sprintf("increment %s %s of %s", p, field, key), err)
	}
	return next, nil
}

// incrementDay applies delta to the daily row of at and to the weekly row of
// the week containing at, all inside one transaction. It returns the new
// daily value.
func (s *Store) incrementDay(ctx context.Context, at time.Time, field StatField, delta int) (int, error) {
	var daily int
	err := s.WithinTx(ctx, func(tx *Store) error {
		var err error
		if daily, err = tx.IncrementStats(ctx, Daily, timeutil.DayKey(at), field, delta); err != nil {
			return err
		}
		_, err = tx.IncrementStats(ctx, Weekly, timeutil.WeekKey(at), field, delta)
		return err
	})
	return daily, err
}

func (s *Store) IncrementTaskCount(ctx context.Context, at time.Time, delta int) (int, error) {
	return s.incrementDay(ctx, at, FieldTasksCompleted, delta)
}

func (s *Store) IncrementFocusTime(ctx context.Context, at time.Time, minutes int) (int, error) {
	return s.incrementDay(ctx, at, FieldFocusMinutes, minutes)
}

func (s *Store) IncrementBreakTime(ctx context.Context, at time.Time, minutes int) (int, error) {
	return s.incrementDay(ctx, at, FieldBreakMinutes, minutes)
}

func (s *Store) IncrementXP(ctx context.Context, at time.Time, xp int) (int, error) {
	return s.incrementDay(ctx, at, FieldXP, xp)
}

// UnlockAchievement adds id to the achievement set of the aggregate. It
// reports whether the id was new.
func (s *Store) UnlockAchievement(ctx context.Context, p Period, key, id string) (bool, error) {
	cur, err := s.GetOrCreateStats(ctx, p, key)
	if err != nil {
		return false, err
	}
	for _, a := range cur.AchievementsUnlocked {
		if a == id {
			return false, nil
		}
	}
	_, err = s.q.ExecContext(ctx,
		`UPDATE `+p.table()+` SET achievements = ?, updated_at = ? WHERE key = ?`,
		encodeSet(append(cur.AchievementsUnlocked, id)), formatTime(s.clock.Now()), key,
	)
	if err != nil {
		return false, persistErr(fmt.Sprintf("unlock achievement %s", id), err)
	}
	return true, nil
}

// ResetStats zeroes every counter of the aggregate for key.
func (s *Store) ResetStats(ctx context.Context, p Period, key string) error {
	if _, err := s.GetOrCreateStats(ctx, p, key); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx,
		`UPDATE `+p.table()+` SET tasks_completed = 0, focus_minutes = 0, break_minutes = 0, xp = 0,
			achievements = '[]', updated_at = ? WHERE key = ?`,
		formatTime(s.clock.Now()), key,
	)
	if err != nil {
		return persistErr(fmt.Sprintf("reset %s stats %s", p, key), err)
	}
	return nil
}

// ListStats returns existing aggregates with from <= key <= to, ordered by key.
func (s *Store) ListStats(ctx context.Context, p Period, from, to string) ([]Stats, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+statsColumns+` FROM `+p.table()+` WHERE key >= ? AND key <= ? ORDER BY key`, from, to)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("list %s stats", p), err)
	}
	defer rows.Close()

	var out []Stats
	for rows.Next() {
		st, err := scanStats(rows, p)
		if err != nil {
			return nil, persistErr("scan stats", err)
		}
		out = append(out, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(fmt.Sprintf("list %s stats", p), err)
	}
	return out, nil
}

func (s *Store) getStats(ctx context.Context, p Period, key string) (*Stats, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+statsColumns+` FROM `+p.table()+` WHERE key = ?`, key)
	st, err := scanStats(row, p)
	if err != nil {
		return nil, rowErr(fmt.Sprintf("get %s stats %s", p, key), err)
	}
	return st, nil
}

func scanStats(row rowScanner, p Period) (*Stats, error) {
	st := &Stats{Period: p}
	var achievements, createdAt, updatedAt string
	if err := row.Scan(&st.Key, &st.TasksCompleted, &st.FocusTimeMinutes, &st.BreakTimeMinutes,
		&st.TotalXPEarned, &achievements, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(achievements), &st.AchievementsUnlocked); err != nil {
		return nil, fmt.Errorf("decode achievements: %w", err)
	}
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)
	return st, nil
}

func (st *Stats) value(f StatField) int {
	switch f {
	case FieldTasksCompleted:
		return st.TasksCompleted
	case FieldFocusMinutes:
		return st.FocusTimeMinutes
	case FieldBreakMinutes:
		return st.BreakTimeMinutes
	case FieldXP:
		return st.TotalXPEarned
	}
	return 0
}
