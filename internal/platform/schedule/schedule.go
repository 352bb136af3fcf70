// Package schedule models the daily re-verification schedule as a list of
// HH:MM times in a configured timezone.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	// Embed tzdata for environments without zoneinfo.
	_ "time/tzdata"
)

// Time conversion constants.
const (
	minutesPerHour = 60
	maxHour        = 23
	lookbackDays   = 2
)

// Static errors for schedule validation.
var (
	ErrNoTimes        = errors.New("schedule has no times")
	ErrTimeFormat     = errors.New("time must be HH:MM")
	ErrInvalidHour    = errors.New("invalid hour")
	ErrInvalidMinute  = errors.New("invalid minute")
	ErrHourOutOfRange = errors.New("hour out of range")
)

// Schedule defines daily firing times in a timezone.
type Schedule struct {
	Timezone string   `json:"timezone"`
	Times    []string `json:"times"`
}

// Location resolves the schedule timezone or defaults to UTC.
func (s Schedule) Location() (*time.Location, error) {
	if strings.TrimSpace(s.Timezone) == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(strings.TrimSpace(s.Timezone))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	return loc, nil
}

// Validate checks schedule fields for correctness.
func (s Schedule) Validate() error {
	if _, err := s.Location(); err != nil {
		return err
	}

	if len(s.Times) == 0 {
		return ErrNoTimes
	}

	for _, t := range s.Times {
		if _, err := parseTimeHM(t); err != nil {
			return fmt.Errorf("invalid time %q: %w", t, err)
		}
	}

	return nil
}

// PreviousTimeBefore returns the latest scheduled time strictly before the given moment.
func (s Schedule) PreviousTimeBefore(before time.Time) (time.Time, bool, error) {
	loc, err := s.Location()
	if err != nil {
		return time.Time{}, false, err
	}

	minutes, err := s.sortedMinutes()
	if err != nil {
		return time.Time{}, false, err
	}

	if len(minutes) == 0 {
		return time.Time{}, false, nil
	}

	beforeLocal := before.In(loc)
	startDate := dateOnly(beforeLocal)

	for offset := 0; offset <= lookbackDays; offset++ {
		d := startDate.AddDate(0, 0, -offset)

		for i := len(minutes) - 1; i >= 0; i-- {
			t := time.Date(d.Year(), d.Month(), d.Day(), minutes[i]/minutesPerHour, minutes[i]%minutesPerHour, 0, 0, loc)
			if t.Before(beforeLocal) {
				return t, true, nil
			}
		}
	}

	return time.Time{}, false, nil
}

// Due reports whether a scheduled time has passed since the last run.
// A zero lastRun means the scheduler just started; the most recent past slot
// is treated as already handled so startup never triggers an immediate cycle.
func (s Schedule) Due(now, lastRun time.Time) (bool, error) {
	prev, ok, err := s.PreviousTimeBefore(now.Add(time.Second))
	if err != nil || !ok {
		return false, err
	}

	if lastRun.IsZero() {
		return false, nil
	}

	return prev.After(lastRun), nil
}

func (s Schedule) sortedMinutes() ([]int, error) {
	set := make(map[int]struct{}, len(s.Times))

	for _, t := range s.Times {
		m, err := parseTimeHM(t)
		if err != nil {
			return nil, err
		}

		set[m] = struct{}{}
	}

	minutes := make([]int, 0, len(set))
	for m := range set {
		minutes = append(minutes, m)
	}

	sort.Ints(minutes)

	return minutes, nil
}

func parseTimeHM(value string) (int, error) {
	normalized, err := NormalizeTimeHM(value)
	if err != nil {
		return 0, err
	}

	hour, err := strconv.Atoi(normalized[:2])
	if err != nil {
		return 0, ErrInvalidHour
	}

	minute, err := strconv.Atoi(normalized[3:])
	if err != nil {
		return 0, ErrInvalidMinute
	}

	return hour*minutesPerHour + minute, nil
}

// NormalizeTimeHM accepts H:MM or HH:MM and returns HH:MM.
func NormalizeTimeHM(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrTimeFormat
	}

	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return "", ErrTimeFormat
	}

	if len(parts[1]) != 2 {
		return "", ErrTimeFormat
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", ErrInvalidHour
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", ErrInvalidMinute
	}

	if hour > maxHour || hour < 0 {
		return "", ErrHourOutOfRange
	}

	if minute < 0 || minute >= minutesPerHour {
		return "", ErrInvalidMinute
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
