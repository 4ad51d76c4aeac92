package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/streakr/internal/store"
)

type jsonExport struct {
	ExportedAt   string      `json:"exported_at"`
	Count        int         `json:"count"`
	TotalMinutes int         `json:"total_minutes"`
	Entries      []jsonEntry `json:"entries"`
}

type jsonEntry struct {
	ID         string   `json:"id"`
	TaskID     string   `json:"task_id"`
	Task       string   `json:"task"`
	Categories []string `json:"categories,omitempty"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	Minutes    int      `json:"duration_minutes"`
	Duration   string   `json:"duration"`
}

func ToJSON(logs []store.TimeLog, tasks map[string]*store.Task, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(logs),
	}

	for _, l := range logs {
		title, cats := describe(l.TaskID, tasks)
		export.TotalMinutes += l.DurationMinutes
		export.Entries = append(export.Entries, jsonEntry{
			ID:         l.ID,
			TaskID:     l.TaskID,
			Task:       title,
			Categories: cats,
			StartTime:  l.StartTime.Local().Format(time.RFC3339),
			EndTime:    l.EndTime.Local().Format(time.RFC3339),
			Minutes:    l.DurationMinutes,
			Duration:   formatDuration(l.DurationMinutes),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
