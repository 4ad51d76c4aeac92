// Package timeutil holds the date and duration arithmetic shared by the
// stats, rollover and timer packages.
package timeutil

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// Clock abstracts the wall clock so tests can drive time explicitly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the runtime clock in local time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a settable clock for tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ElapsedMinutes returns the whole minutes between start and end, rounded to
// the nearest minute. It never returns a negative value.
func ElapsedMinutes(start, end time.Time) int {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int(math.Round(float64(ms) / 60000))
}

// DayKey formats t as a local calendar date (YYYY-MM-DD).
func DayKey(t time.Time) string {
	return t.Local().Format(dayLayout)
}

func TodayKey(c Clock) string {
	return DayKey(c.Now())
}

func YesterdayKey(c Clock) string {
	return DayKey(c.Now().AddDate(0, 0, -1))
}

// ParseDayKey parses a YYYY-MM-DD key as local midnight.
func ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, key, time.Local)
}

// WeekKey returns the week identifier for t as YYYY-Wnn. Weeks start on
// Sunday and week 1 is the week containing January 1st.
func WeekKey(t time.Time) string {
	t = t.Local()
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.Local)
	week := int(math.Ceil(float64(t.YearDay()+int(jan1.Weekday())) / 7))
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

func IsToday(t time.Time, c Clock) bool {
	return DayKey(t) == TodayKey(c)
}

func IsYesterday(t time.Time, c Clock) bool {
	return DayKey(t) == YesterdayKey(c)
}
