package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sadopc/streakr/internal/timeutil"
)

const streakID = 1

// GetStreak returns the singleton streak record, creating it on first access.
func (s *Store) GetStreak(ctx context.Context) (*Streak, error) {
	if _, err := s.q.ExecContext(ctx, `INSERT OR IGNORE INTO streak (id) VALUES (?)`, streakID); err != nil {
		return nil, persistErr("create streak", err)
	}

	st := &Streak{}
	var last sql.NullString
	err := s.q.QueryRowContext(ctx,
		`SELECT current_streak, longest_streak, last_completion_date, total_days_active FROM streak WHERE id = ?`,
		streakID,
	).Scan(&st.CurrentStreak, &st.LongestStreak, &last, &st.TotalDaysActive)
	if err != nil {
		return nil, rowErr("get streak", err)
	}
	st.LastCompletionDate = last.String
	return st, nil
}

// UpdateStreak records a completion on the calendar day of today.
//
// A completion the day after the last one extends the streak; a completion
// after a gap restarts it at 1; further completions on the same day leave it
// unchanged. TotalDaysActive advances only on the first completion of a day.
func (s *Store) UpdateStreak(ctx context.Context, today time.Time) (*StreakUpdate, error) {
	var out *StreakUpdate
	err := s.WithinTx(ctx, func(tx *Store) error {
		st, err := tx.GetStreak(ctx)
		if err != nil {
			return err
		}
		out = applyStreak(*st, timeutil.DayKey(today), timeutil.DayKey(today.AddDate(0, 0, -1)))

		_, err = tx.q.ExecContext(ctx,
			`UPDATE streak SET current_streak = ?, longest_streak = ?, last_completion_date = ?, total_days_active = ?
			 WHERE id = ?`,
			out.CurrentStreak, out.LongestStreak, out.LastCompletionDate, out.TotalDaysActive, streakID,
		)
		if err != nil {
			return persistErr("update streak", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyStreak(st Streak, today, yesterday string) *StreakUpdate {
	last := st.LastCompletionDate
	switch {
	case last == yesterday:
		st.CurrentStreak++
	case last != today:
		st.CurrentStreak = 1
	}
	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}
	first := last != today
	if first {
		st.TotalDaysActive++
	}
	st.LastCompletionDate = today
	return &StreakUpdate{Streak: st, FirstCompletionToday: first}
}
