package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

func (d Weekday) Valid() bool {
	return slices.Contains(Weekdays, d)
}

// HoursMode tags which WorkingHours variant is populated.
type HoursMode string

const (
	// HoursUniform: every open day shares AllDays.
	HoursUniform HoursMode = "uniform"
	// HoursPerDay: each open day carries its own range in Days.
	HoursPerDay HoursMode = "per_day"
)

// TimeRange is an opening window in 24h "HH:MM" form. End before Start means
// the window runs past midnight.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r TimeRange) Validate() error {
	start, err := time.Parse("15:04", r.Start)
	if err != nil {
		return fmt.Errorf("invalid start time %q", r.Start)
	}
	end, err := time.Parse("15:04", r.End)
	if err != nil {
		return fmt.Errorf("invalid end time %q", r.End)
	}
	if start.Equal(end) {
		return errors.New("start and end time must differ")
	}
	return nil
}

type WorkingHours struct {
	Mode       HoursMode             `json:"mode"`
	AllDays    *TimeRange            `json:"allDays,omitempty"`
	Days       map[Weekday]TimeRange `json:"days,omitempty"`
	ClosedDays []Weekday             `json:"closedDays,omitempty"`
}

// Validate checks that exactly the fields of the tagged variant are set and
// that no day is both open and closed.
func (w *WorkingHours) Validate() error {
	seen := make(map[Weekday]bool, len(w.ClosedDays))
	for _, d := range w.ClosedDays {
		if !d.Valid() {
			return fmt.Errorf("unknown closed day %q", d)
		}
		if seen[d] {
			return fmt.Errorf("closed day %q listed twice", d)
		}
		seen[d] = true
	}
	if len(seen) == len(Weekdays) {
		return errors.New("at least one day must be open")
	}

	switch w.Mode {
	case HoursUniform:
		if w.AllDays == nil {
			return errors.New("uniform hours require allDays")
		}
		if len(w.Days) > 0 {
			return errors.New("uniform hours cannot carry per-day ranges")
		}
		return w.AllDays.Validate()
	case HoursPerDay:
		if w.AllDays != nil {
			return errors.New("per-day hours cannot carry allDays")
		}
		if len(w.Days) == 0 {
			return errors.New("per-day hours require at least one day")
		}
		for d, r := range w.Days {
			if !d.Valid() {
				return fmt.Errorf("unknown day %q", d)
			}
			if seen[d] {
				return fmt.Errorf("%s is both open and closed", d)
			}
			if err := r.Validate(); err != nil {
				return fmt.Errorf("%s: %w", d, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown hours mode %q", w.Mode)
	}
}

// OpenOn returns the opening window for day, or false when closed.
func (w *WorkingHours) OpenOn(day Weekday) (TimeRange, bool) {
	if slices.Contains(w.ClosedDays, day) {
		return TimeRange{}, false
	}
	if w.Mode == HoursUniform && w.AllDays != nil {
		return *w.AllDays, true
	}
	r, ok := w.Days[day]
	return r, ok
}

// OpenAt reports whether t falls inside an opening window. A window that
// runs past midnight counts toward the day it starts on.
func (w *WorkingHours) OpenAt(t time.Time) bool {
	now := t.Hour()*60 + t.Minute()
	if r, ok := w.OpenOn(Weekday(t.Weekday().String())); ok {
		if start, end, ok := r.minutes(); ok {
			if start < end && now >= start && now < end {
				return true
			}
			if end < start && now >= start {
				return true
			}
		}
	}
	prev := Weekday(t.AddDate(0, 0, -1).Weekday().String())
	if r, ok := w.OpenOn(prev); ok {
		if start, end, ok := r.minutes(); ok && end < start && now < end {
			return true
		}
	}
	return false
}

func (r TimeRange) minutes() (start, end int, ok bool) {
	s, err := time.Parse("15:04", r.Start)
	if err != nil {
		return 0, 0, false
	}
	e, err := time.Parse("15:04", r.End)
	if err != nil {
		return 0, 0, false
	}
	return s.Hour()*60 + s.Minute(), e.Hour()*60 + e.Minute(), true
}

// legacyHours is the shape sent by older dashboard builds.
type legacyHours struct {
	OpenAllDays      bool                  `json:"openAllDays"`
	SameHoursAllDays bool                  `json:"sameHoursAllDays"`
	AllDays          *TimeRange            `json:"allDays"`
	Specific         map[Weekday]TimeRange `json:"specific"`
	ClosedDays       []Weekday             `json:"closedDays"`
}

// ParseWorkingHours decodes and validates a working-hours payload. Payloads
// without a mode are read in the legacy openAllDays/sameHoursAllDays form.
func ParseWorkingHours(raw []byte) (*WorkingHours, error) {
	var head struct {
		Mode HoursMode `json:"mode"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("malformed working hours: %w", err)
	}

	var w WorkingHours
	if head.Mode != "" {
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("malformed working hours: %w", err)
		}
	} else {
		var l legacyHours
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("malformed working hours: %w", err)
		}
		if !l.OpenAllDays {
			w.ClosedDays = l.ClosedDays
		}
		if l.SameHoursAllDays {
			w.Mode = HoursUniform
			w.AllDays = l.AllDays
		} else {
			w.Mode = HoursPerDay
			w.Days = l.Specific
		}
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}
