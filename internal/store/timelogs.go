package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const timeLogColumns = `id, task_id, start_time, end_time, duration_minutes, created_at`

// CreateTimeLog appends an immutable entry for one committed timer interval.
func (s *Store) CreateTimeLog(ctx context.Context, taskID string, start, end time.Time, minutes int) (*TimeLog, error) {
	if minutes < 0 {
		return nil, invariantf("time log duration must not be negative")
	}
	l := &TimeLog{
		ID:              uuid.New().String(),
		TaskID:          taskID,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: minutes,
		CreatedAt:       s.clock.Now(),
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO time_logs (`+timeLogColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.TaskID, formatTime(l.StartTime), formatTime(l.EndTime), l.DurationMinutes, formatTime(l.CreatedAt),
	)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("insert time log for task %s", taskID), err)
	}
	return l, nil
}

func (s *Store) TimeLogsByTask(ctx context.Context, taskID string) ([]TimeLog, error) {
	return s.listTimeLogs(ctx,
		`SELECT `+timeLogColumns+` FROM time_logs WHERE task_id = ? ORDER BY start_time, rowid`, taskID)
}

// TimeLogsInRange returns entries whose start time falls in [from, to).
func (s *Store) TimeLogsInRange(ctx context.Context, from, to time.Time) ([]TimeLog, error) {
	return s.listTimeLogs(ctx,
		`SELECT `+timeLogColumns+` FROM time_logs WHERE start_time >= ? AND start_time < ? ORDER BY start_time, rowid`,
		formatTime(from), formatTime(to))
}

func (s *Store) AllTimeLogs(ctx context.Context) ([]TimeLog, error) {
	return s.listTimeLogs(ctx, `SELECT `+timeLogColumns+` FROM time_logs ORDER BY start_time, rowid`)
}

// DeleteTimeLogsByTask removes every entry of a task and returns how many
// were removed.
func (s *Store) DeleteTimeLogsByTask(ctx context.Context, taskID string) (int, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM time_logs WHERE task_id = ?`, taskID)
	if err != nil {
		return 0, persistErr(fmt.Sprintf("delete time logs of task %s", taskID), err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SumTimeLogMinutes totals the logged minutes of a task.
func (s *Store) SumTimeLogMinutes(ctx context.Context, taskID string) (int, error) {
	var total int
	err := s.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration_minutes), 0) FROM time_logs WHERE task_id = ?`, taskID,
	).Scan(&total)
	if err != nil {
		return 0, persistErr(fmt.Sprintf("sum time logs of task %s", taskID), err)
	}
	return total, nil
}

func (s *Store) listTimeLogs(ctx context.Context, query string, args ...any) ([]TimeLog, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list time logs", err)
	}
	defer rows.Close()

	var logs []TimeLog
	for rows.Next() {
		var l TimeLog
		var start, end, createdAt string
		if err := rows.Scan(&l.ID, &l.TaskID, &start, &end, &l.DurationMinutes, &createdAt); err != nil {
			return nil, persistErr("scan time log", err)
		}
		l.StartTime = parseTime(start)
		l.EndTime = parseTime(end)
		l.CreatedAt = parseTime(createdAt)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list time logs", err)
	}
	return logs, nil
}
