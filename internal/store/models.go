package store

import "time"

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID                   string
	Title                string
	Description          string
	EstimatedMinutes     int
	ActualMinutes        int
	Priority             Priority
	Categories           []string
	Tags                 []string
	Status               Status
	CreatedAt            time.Time
	StartedAt            *time.Time
	CompletedAt          *time.Time
	PendingFromYesterday bool
	ScheduledDate        string // YYYY-MM-DD, empty when unplanned
	ScheduledTimeBlock   string
	UpdatedAt            time.Time
}

// Clone returns a deep copy safe to hand to observers.
func (t Task) Clone() Task {
	c := t
	c.Categories = append([]string(nil), t.Categories...)
	c.Tags = append([]string(nil), t.Tags...)
	if t.StartedAt != nil {
		v := *t.StartedAt
		c.StartedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	return c
}

// TaskInput holds the user-supplied fields for a new task.
type TaskInput struct {
	Title              string
	Description        string
	EstimatedMinutes   int
	Priority           Priority
	Categories         []string
	Tags               []string
	ScheduledDate      string
	ScheduledTimeBlock string
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title                *string
	Description          *string
	EstimatedMinutes     *int
	ActualMinutes        *int
	Priority             *Priority
	Categories           *[]string
	Tags                 *[]string
	Status               *Status
	StartedAt            *time.Time
	CompletedAt          *time.Time
	PendingFromYesterday *bool
	ScheduledDate        *string
	ScheduledTimeBlock   *string
}

// TaskFilter narrows ListTasks. Zero-valued fields match everything.
type TaskFilter struct {
	Status        Status
	Priority      Priority
	Category      string
	ScheduledDate string
}

type TimeLog struct {
	ID              string
	TaskID          string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	CreatedAt       time.Time
}

// Period selects the granularity of a stats aggregate.
type Period int

const (
	Daily Period = iota
	Weekly
)

func (p Period) String() string {
	if p == Weekly {
		return "weekly"
	}
	return "daily"
}

func (p Period) table() string {
	if p == Weekly {
		return "weekly_stats"
	}
	return "daily_stats"
}

// StatField names an additive counter on a stats aggregate.
type StatField string

const (
	FieldTasksCompleted StatField = "tasks_completed"
	FieldFocusMinutes   StatField = "focus_minutes"
	FieldBreakMinutes   StatField = "break_minutes"
	FieldXP             StatField = "xp"
)

func (f StatField) valid() bool {
	switch f {
	case FieldTasksCompleted, FieldFocusMinutes, FieldBreakMinutes, FieldXP:
		return true
	}
	return false
}

// Stats is a daily (Key = YYYY-MM-DD) or weekly (Key = YYYY-Wnn) aggregate.
type Stats struct {
	Key                  string
	Period               Period
	TasksCompleted       int
	FocusTimeMinutes     int
	BreakTimeMinutes     int
	TotalXPEarned        int
	AchievementsUnlocked []string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type Streak struct {
	CurrentStreak      int
	LongestStreak      int
	LastCompletionDate string // YYYY-MM-DD, empty when never completed
	TotalDaysActive    int
}

// StreakUpdate is the outcome of recording a completion day.
type StreakUpdate struct {
	Streak
	// FirstCompletionToday is true when this call advanced TotalDaysActive.
	FirstCompletionToday bool
}

type NotificationSettings struct {
	Enabled         bool `json:"enabled"`
	Sound           bool `json:"sound"`
	ReminderMinutes int  `json:"reminder_minutes"`
}

type PomodoroSettings struct {
	WorkMinutes             int  `json:"work_minutes"`
	ShortBreakMinutes       int  `json:"short_break_minutes"`
	LongBreakMinutes        int  `json:"long_break_minutes"`
	SessionsBeforeLongBreak int  `json:"sessions_before_long_break"`
	AutoStartBreaks         bool `json:"auto_start_breaks"`
}

type GamificationSettings struct {
	Enabled               bool `json:"enabled"`
	DailyGoalTasks        int  `json:"daily_goal_tasks"`
	DailyGoalFocusMinutes int  `json:"daily_goal_focus_minutes"`
}

type Settings struct {
	Notifications NotificationSettings `json:"notifications"`
	Pomodoro      PomodoroSettings     `json:"pomodoro"`
	Gamification  GamificationSettings `json:"gamification"`
	Theme         string               `json:"theme"`
	Language      string               `json:"language"`
	Timezone      string               `json:"timezone"`
	UpdatedAt     time.Time            `json:"-"`
}

// DefaultSettings is the record created on first access.
func DefaultSettings() Settings {
	return Settings{
		Notifications: NotificationSettings{Enabled: true, Sound: true, ReminderMinutes: 5},
		Pomodoro: PomodoroSettings{
			WorkMinutes:             25,
			ShortBreakMinutes:       5,
			LongBreakMinutes:        15,
			SessionsBeforeLongBreak: 4,
		},
		Gamification: GamificationSettings{Enabled: true, DailyGoalTasks: 5, DailyGoalFocusMinutes: 240},
		Theme:        "dark",
		Language:     "en",
		Timezone:     "Local",
	}
}
