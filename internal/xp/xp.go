// Package xp computes the experience award granted for a task completion.
package xp

// Input carries everything a policy may weigh for one completion.
type Input struct {
	FocusMinutes     int
	StreakLength     int
	EstimatedMinutes int
	ActualMinutes    int
	// FirstCompletionToday is set when this completion started a new active day.
	FirstCompletionToday bool
}

// Policy must be deterministic and never return a negative award.
type Policy interface {
	Compute(Input) int
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func(Input) int

func (f PolicyFunc) Compute(in Input) int { return f(in) }

// Weighted awards a base amount per completion plus configurable bonuses.
// Every weight is supplied by configuration.
type Weighted struct {
	Base int `yaml:"base"`
	// PerFocusMinutes grants one point per this many focus minutes (0 disables).
	PerFocusMinutes int `yaml:"per_focus_minutes"`
	// StreakBonus is added once per streak day, capped at StreakCap days.
	StreakBonus int `yaml:"streak_bonus"`
	StreakCap   int `yaml:"streak_cap"`
	// EstimateBonus is granted when the task finished within its estimate.
	EstimateBonus int `yaml:"estimate_bonus"`
	// DailyBonus is granted for the first completion of a day.
	DailyBonus int `yaml:"daily_bonus"`
}

func (w Weighted) Compute(in Input) int {
	total := w.Base
	if w.PerFocusMinutes > 0 && in.FocusMinutes > 0 {
		total += in.FocusMinutes / w.PerFocusMinutes
	}
	if in.StreakLength > 0 {
		days := in.StreakLength
		if w.StreakCap > 0 && days > w.StreakCap {
			days = w.StreakCap
		}
		total += days * w.StreakBonus
	}
	if in.EstimatedMinutes > 0 && in.ActualMinutes <= in.EstimatedMinutes {
		total += w.EstimateBonus
	}
	if in.FirstCompletionToday {
		total += w.DailyBonus
	}
	if total < 0 {
		return 0
	}
	return total
}

// Clamp wraps p so a misbehaving policy can never lower stored XP.
func Clamp(p Policy) Policy {
	return PolicyFunc(func(in Input) int {
		if v := p.Compute(in); v > 0 {
			return v
		}
		return 0
	})
}
