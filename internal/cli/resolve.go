package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sadopc/streakr/internal/store"
)

// resolveTaskID resolves a task identifier which can be:
//   - A list number as printed by "task list" (1-based insertion order)
//   - A full task ID
//   - A unique ID prefix
func resolveTaskID(app *App, input string) (string, error) {
	input = strings.TrimSpace(input)
	tasks := app.Engine.Tasks()

	if n, err := strconv.Atoi(input); err == nil && n > 0 && n <= len(tasks) {
		return tasks[n-1].ID, nil
	}

	var matches []string
	for _, t := range tasks {
		if t.ID == input {
			return t.ID, nil
		}
		if input != "" && strings.HasPrefix(t.ID, input) {
			matches = append(matches, t.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("task %q: %w", input, store.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("task %q is ambiguous (%d matches); use more characters", input, len(matches))
}

// taskNumbers maps task IDs to their list numbers.
func taskNumbers(app *App) map[string]int {
	nums := make(map[string]int)
	for i, t := range app.Engine.Tasks() {
		nums[t.ID] = i + 1
	}
	return nums
}
