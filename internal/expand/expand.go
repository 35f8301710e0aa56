// Package expand turns recurring event groups into the concrete per-day
// occurrences of one week.
package expand

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"weekgrid/internal/grid"
	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
)

// Expander expands groups over the week containing Week, in Location.
type Expander struct {
	Grid grid.Config

	// Location is the display timezone. Nil means time.Local.
	Location *time.Location

	// Week is any instant inside the week to expand. Zero means now.
	Week time.Time
}

// Expand implements the projector's group-expansion collaborator. Groups or
// slots that cannot be expanded are logged and skipped.
func (e Expander) Expand(groups []model.EventGroup) model.Expansion {
	var out model.Expansion
	out.Events = make([]model.RawEvent, 0, len(groups))

	for gi, g := range groups {
		var (
			events []model.RawEvent
			err    error
		)
		if e.isRuleGroup(g) {
			events, err = e.expandRule(g)
		} else {
			events = e.expandSlots(g)
		}
		if err != nil {
			appLog.Error("expand: skipping event group", err, "index", gi, "course_id", g.CourseID)
			continue
		}
		out.Events = append(out.Events, events...)
	}

	for _, ev := range out.Events {
		if !out.HasEarliest || ev.StartOffset < out.EarliestGridOffset {
			out.EarliestGridOffset = ev.StartOffset
			out.HasEarliest = true
		}
		if grid.IsWeekend(ev.Day) {
			out.WeekendEventPresent = true
			if out.FirstWeekendDay == 0 || ev.Day < out.FirstWeekendDay {
				out.FirstWeekendDay = ev.Day
			}
		}
	}
	return out
}

// WeekStart returns Monday 00:00 of the expansion week.
func (e Expander) WeekStart() time.Time {
	ref := e.Week
	if ref.IsZero() {
		ref = time.Now()
	}
	ref = ref.In(e.location())
	monday := ref.AddDate(0, 0, 1-grid.ISOWeekday(ref))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, monday.Location())
}

func (e Expander) location() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

func (e Expander) isRuleGroup(g model.EventGroup) bool {
	return strings.TrimSpace(g.RRule) != "" || (len(g.Days) == 0 && !g.Start.IsZero())
}

func (e Expander) expandSlots(g model.EventGroup) []model.RawEvent {
	events := make([]model.RawEvent, 0, len(g.Days))
	for i, day := range g.Days {
		if i >= len(g.StartTimes) || i >= len(g.EndTimes) {
			appLog.Warn("expand: slot without start/end time", "course_id", g.CourseID, "slot", i)
			continue
		}
		start, err := ParseClock(g.StartTimes[i])
		if err != nil {
			appLog.Error("expand: bad start time", err, "course_id", g.CourseID, "slot", i)
			continue
		}
		end, err := ParseClock(g.EndTimes[i])
		if err != nil {
			appLog.Error("expand: bad end time", err, "course_id", g.CourseID, "slot", i)
			continue
		}
		if end <= start {
			appLog.Warn("expand: slot ends before it starts", "course_id", g.CourseID, "slot", i)
			continue
		}

		events = append(events, model.RawEvent{
			Day:         day,
			StartOffset: start - float64(e.Grid.StartHour),
			Duration:    end - start,
			CourseID:    g.CourseID,
			Color:       g.Color,
			Title:       g.Title,
			Section:     g.Section,
			Location:    slotLocation(g.Locations, i),
		})
	}
	return events
}

func (e Expander) expandRule(g model.EventGroup) ([]model.RawEvent, error) {
	if g.Start.IsZero() {
		return nil, errors.New("rule group has no start")
	}
	loc := e.location()
	weekStart := e.WeekStart()
	weekEnd := weekStart.AddDate(0, 0, e.Grid.NumOfDays)

	var starts []time.Time
	if strings.TrimSpace(g.RRule) == "" {
		starts = []time.Time{g.Start}
	} else {
		opt, err := rrule.StrToROption(g.RRule)
		if err != nil {
			return nil, fmt.Errorf("parse rrule %q: %w", g.RRule, err)
		}
		opt.Dtstart = g.Start
		rule, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, fmt.Errorf("build rrule %q: %w", g.RRule, err)
		}

		set := &rrule.Set{}
		set.RRule(rule)
		for _, ex := range g.ExDates {
			set.ExDate(ex.In(g.Start.Location()))
		}
		starts = set.Between(weekStart.In(g.Start.Location()), weekEnd.In(g.Start.Location()), true)
	}

	events := make([]model.RawEvent, 0, len(starts))
	for _, s := range starts {
		local := s.In(loc)
		if local.Before(weekStart) || !local.Before(weekEnd) {
			continue
		}
		day := daysBetween(weekStart, local) + 1
		hours := float64(local.Hour()) + float64(local.Minute())/60 + float64(local.Second())/3600

		events = append(events, model.RawEvent{
			Day:         day,
			StartOffset: hours - float64(e.Grid.StartHour),
			Duration:    g.Duration.Hours(),
			CourseID:    g.CourseID,
			Color:       g.Color,
			Title:       g.Title,
			Section:     g.Section,
			Location:    slotLocation(g.Locations, 0),
		})
	}
	return events, nil
}

// ParseClock parses "H:MM" or "HH:MM" into fractional hours. "24:00" is
// accepted as the end of the day.
func ParseClock(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return 24, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return float64(t.Hour()) + float64(t.Minute())/60, nil
}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func slotLocation(locations []string, i int) string {
	if i < len(locations) {
		return locations[i]
	}
	if len(locations) > 0 {
		return locations[0]
	}
	return ""
}
