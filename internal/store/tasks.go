package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/streakr/internal/timeutil"
)

const taskColumns = `id, title, description, estimated_minutes, actual_minutes, priority,
	categories, tags, status, created_at, started_at, completed_at,
	pending_from_yesterday, scheduled_date, scheduled_time_block, updated_at`

func (s *Store) CreateTask(ctx context.Context, in TaskInput) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invariantf("task title is required")
	}
	if in.EstimatedMinutes < 0 {
		return nil, invariantf("estimated minutes must not be negative")
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, invariantf("unknown priority %q", priority)
	}

	now := s.clock.Now()
	t := &Task{
		ID:                 uuid.New().String(),
		Title:              title,
		Description:        in.Description,
		EstimatedMinutes:   in.EstimatedMinutes,
		Priority:           priority,
		Categories:         normalizeSet(in.Categories),
		Tags:               normalizeSet(in.Tags),
		Status:             StatusNotStarted,
		CreatedAt:          now,
		ScheduledDate:      in.ScheduledDate,
		ScheduledTimeBlock: in.ScheduledTimeBlock,
		UpdatedAt:          now,
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		taskArgs(t)...,
	)
	if err != nil {
		return nil, persistErr("insert task", err)
	}
	return s.GetTask(ctx, t.ID)
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, rowErr(fmt.Sprintf("get task %s", id), err)
	}
	return t, nil
}

// ListTasks returns the tasks matching f in insertion order.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(f.Priority))
	}
	if f.Category != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(tasks.categories) WHERE json_each.value = ?)`
		args = append(args, f.Category)
	}
	if f.ScheduledDate != "" {
		query += ` AND scheduled_date = ?`
		args = append(args, f.ScheduledDate)
	}
	query += ` ORDER BY rowid`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list tasks", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, persistErr("scan task", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list tasks", err)
	}
	return tasks, nil
}

// UpdateTask merges p into the stored task and stamps UpdatedAt. It returns
// ErrNotFound when id is absent and ErrInvariant when the patch would move
// ActualMinutes backwards or change the status of a completed task.
func (s *Store) UpdateTask(ctx context.Context, id string, p TaskPatch) (*Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, invariantf("task title is required")
		}
		t.Title = title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.EstimatedMinutes != nil {
		if *p.EstimatedMinutes < 0 {
			return nil, invariantf("estimated minutes must not be negative")
		}
		t.EstimatedMinutes = *p.EstimatedMinutes
	}
	if p.ActualMinutes != nil {
		if *p.ActualMinutes < t.ActualMinutes {
			return nil, invariantf("actual minutes of task %s cannot decrease (%d -> %d)", id, t.ActualMinutes, *p.ActualMinutes)
		}
		t.ActualMinutes = *p.ActualMinutes
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, invariantf("unknown priority %q", *p.Priority)
		}
		t.Priority = *p.Priority
	}
	if p.Categories != nil {
		t.Categories = normalizeSet(*p.Categories)
	}
	if p.Tags != nil {
		t.Tags = normalizeSet(*p.Tags)
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, invariantf("unknown status %q", *p.Status)
		}
		if t.Status == StatusCompleted && *p.Status != StatusCompleted {
			return nil, invariantf("task %s is completed", id)
		}
		t.Status = *p.Status
	}
	if p.StartedAt != nil {
		v := *p.StartedAt
		t.StartedAt = &v
	}
	if p.CompletedAt != nil {
		v := *p.CompletedAt
		t.CompletedAt = &v
	}
	if p.PendingFromYesterday != nil {
		t.PendingFromYesterday = *p.PendingFromYesterday
	}
	if p.ScheduledDate != nil {
		t.ScheduledDate = *p.ScheduledDate
	}
	if p.ScheduledTimeBlock != nil {
		t.ScheduledTimeBlock = *p.ScheduledTimeBlock
	}
	t.UpdatedAt = s.clock.Now()

	args := taskArgs(t)
	_, err = s.q.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, estimated_minutes = ?, actual_minutes = ?,
			priority = ?, categories = ?, tags = ?, status = ?, created_at = ?, started_at = ?,
			completed_at = ?, pending_from_yesterday = ?, scheduled_date = ?,
			scheduled_time_block = ?, updated_at = ?
		 WHERE id = ?`,
		append(args[1:], t.ID)...,
	)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("update task %s", id), err)
	}
	return t, nil
}

// DeleteTask removes the task row only. Time logs are removed by the caller.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return persistErr(fmt.Sprintf("delete task %s", id), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkRollovers flags every incomplete task created before today that is not
// already flagged, and returns how many tasks were flagged.
func (s *Store) MarkRollovers(ctx context.Context) (int, error) {
	today := timeutil.TodayKey(s.clock)

	var count int
	err := s.WithinTx(ctx, func(tx *Store) error {
		rows, err := tx.q.QueryContext(ctx,
			`SELECT id, created_at FROM tasks
			 WHERE status != ? AND pending_from_yesterday = 0
			 ORDER BY rowid`, string(StatusCompleted))
		if err != nil {
			return persistErr("scan rollover candidates", err)
		}

		var ids []string
		for rows.Next() {
			var id, createdAt string
			if err := rows.Scan(&id, &createdAt); err != nil {
				rows.Close()
				return persistErr("scan rollover candidate", err)
			}
			if timeutil.DayKey(parseTime(createdAt)) < today {
				ids = append(ids, id)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return persistErr("scan rollover candidates", err)
		}
		rows.Close()

		now := formatTime(tx.clock.Now())
		for _, id := range ids {
			if _, err := tx.q.ExecContext(ctx,
				`UPDATE tasks SET pending_from_yesterday = 1, updated_at = ? WHERE id = ?`, now, id,
			); err != nil {
				return persistErr(fmt.Sprintf("flag task %s", id), err)
			}
		}
		count = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	var priority, status, categories, tags, createdAt, updatedAt string
	var startedAt, completedAt sql.NullString
	var pending int

	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.EstimatedMinutes, &t.ActualMinutes,
		&priority, &categories, &tags, &status, &createdAt, &startedAt, &completedAt,
		&pending, &t.ScheduledDate, &t.ScheduledTimeBlock, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.Priority = Priority(priority)
	t.Status = Status(status)
	t.PendingFromYesterday = pending == 1
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	t.StartedAt = parseNullTime(startedAt)
	t.CompletedAt = parseNullTime(completedAt)
	if err := json.Unmarshal([]byte(categories), &t.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return t, nil
}

func taskArgs(t *Task) []any {
	return []any{
		t.ID, t.Title, t.Description, t.EstimatedMinutes, t.ActualMinutes,
		string(t.Priority), encodeSet(t.Categories), encodeSet(t.Tags), string(t.Status),
		formatTime(t.CreatedAt), formatNullTime(t.StartedAt), formatNullTime(t.CompletedAt),
		boolToInt(t.PendingFromYesterday), t.ScheduledDate, t.ScheduledTimeBlock,
		formatTime(t.UpdatedAt),
	}
}

// normalizeSet trims, drops empties and de-duplicates while keeping the
// first-seen order.
func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func encodeSet(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339, v)
	return t
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t := parseTime(v.String)
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
