// Package export writes time logs to CSV or JSON files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sadopc/streakr/internal/store"
)

var csvHeader = []string{"ID", "Task ID", "Task", "Categories", "Start", "End", "Minutes", "Duration"}

func ToCSV(logs []store.TimeLog, tasks map[string]*store.Task, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, l := range logs {
		title, cats := describe(l.TaskID, tasks)
		row := []string{
			l.ID,
			l.TaskID,
			title,
			strings.Join(cats, ";"),
			l.StartTime.Local().Format(time.RFC3339),
			l.EndTime.Local().Format(time.RFC3339),
			fmt.Sprintf("%d", l.DurationMinutes),
			formatDuration(l.DurationMinutes),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// Index maps tasks by id for the exporters.
func Index(tasks []store.Task) map[string]*store.Task {
	out := make(map[string]*store.Task, len(tasks))
	for i := range tasks {
		out[tasks[i].ID] = &tasks[i]
	}
	return out
}

// Logs from deleted tasks never reach here, but a stale index still gets a
// readable row.
func describe(taskID string, tasks map[string]*store.Task) (string, []string) {
	if t, ok := tasks[taskID]; ok {
		return t.Title, t.Categories
	}
	return "Unknown", nil
}

func formatDuration(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}
