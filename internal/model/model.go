// Package model holds the event records shared by the expander, the
// projector and the data loaders.
package model

import "time"

// RawEvent is one occurrence on the weekly grid, in hour units relative to
// the grid's start hour. Day is 1-indexed with Monday = 1.
type RawEvent struct {
	Day         int     `yaml:"day" json:"day"`
	StartOffset float64 `yaml:"start_offset" json:"start_offset"`
	Duration    float64 `yaml:"duration" json:"duration"`
	CourseID    string  `yaml:"course_id" json:"course_id"`
	Color       string  `yaml:"color,omitempty" json:"color,omitempty"`

	Title    string `yaml:"title,omitempty" json:"title,omitempty"`
	Section  string `yaml:"section,omitempty" json:"section,omitempty"`
	Location string `yaml:"location,omitempty" json:"location,omitempty"`
}

// EventGroup is a recurring definition that an expander turns into
// RawEvents. Two forms are supported:
//
//   - time slots: Days[i] with StartTimes[i] / EndTimes[i] ("HH:MM") and
//     optionally Locations[i];
//   - rule: an RFC 5545 RRULE anchored at Start lasting Duration. An empty
//     RRule with a non-zero Start is a single occurrence.
type EventGroup struct {
	CourseID string `yaml:"course_id" json:"course_id"`
	Title    string `yaml:"title,omitempty" json:"title,omitempty"`
	Section  string `yaml:"section,omitempty" json:"section,omitempty"`
	Color    string `yaml:"color,omitempty" json:"color,omitempty"`

	Days       []int    `yaml:"days,omitempty" json:"days,omitempty"`
	StartTimes []string `yaml:"start_times,omitempty" json:"start_times,omitempty"`
	EndTimes   []string `yaml:"end_times,omitempty" json:"end_times,omitempty"`
	Locations  []string `yaml:"locations,omitempty" json:"locations,omitempty"`

	RRule    string        `yaml:"rrule,omitempty" json:"rrule,omitempty"`
	Start    time.Time     `yaml:"start,omitempty" json:"start,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`
	ExDates  []time.Time   `yaml:"exdates,omitempty" json:"exdates,omitempty"`
}

// Expansion is what a group expander hands back: the occurrences plus the
// two scroll hints derived from them.
type Expansion struct {
	Events []RawEvent

	// EarliestGridOffset is the minimum StartOffset; meaningful only when
	// HasEarliest is set.
	EarliestGridOffset float64
	HasEarliest        bool

	WeekendEventPresent bool
	// FirstWeekendDay is the smallest weekend day column that has an event,
	// zero when none.
	FirstWeekendDay int
}
