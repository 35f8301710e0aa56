// Package ics fetches subscribed iCalendar feeds and maps their VEVENTs to
// rule-form event groups.
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
)

// defaultDuration applies to timed events with no usable DTEND.
const defaultDuration = time.Hour

// Parse maps the VEVENTs of one feed to rule-form event groups.
//
// All-day events are dropped since they have no place on an hour grid.
// A VEVENT carrying RECURRENCE-ID becomes its own single-occurrence group
// and the instance it replaces is excluded from the master's rule.
func Parse(src Source, body []byte) ([]model.EventGroup, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	groups := make([]model.EventGroup, 0)
	masters := make(map[string]int)
	var replaced []override

	for _, ve := range cal.Events() {
		g, uid, rid, err := parseVEvent(src, ve)
		if err != nil {
			if !errors.Is(err, errAllDay) {
				appLog.Warn("ics vevent skipped", "id", src.ID, "reason", err)
			}
			continue
		}
		if rid != nil {
			replaced = append(replaced, override{uid: uid, at: *rid})
		} else if g.RRule != "" {
			masters[uid] = len(groups)
		}
		groups = append(groups, g)
	}

	for _, o := range replaced {
		if i, ok := masters[o.uid]; ok {
			groups[i].ExDates = append(groups[i].ExDates, o.at)
		}
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "group_count", len(groups))
	return groups, nil
}

type override struct {
	uid string
	at  time.Time
}

var errAllDay = errors.New("all-day event")

func parseVEvent(src Source, ve *ical.VEvent) (model.EventGroup, string, *time.Time, error) {
	var g model.EventGroup

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return g, "", nil, errors.New("missing UID")
	}
	uid := uidProp.Value

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return g, uid, nil, errors.New("missing DTSTART")
	}
	if isDateValue(dtStart) {
		return g, uid, nil, errAllDay
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return g, uid, nil, err
	}
	duration := defaultDuration
	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		duration = end.Sub(start)
	}

	g.CourseID = src.ID + ":" + uid
	g.Start = start
	g.Duration = duration
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		g.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil && p.Value != "" {
		g.Locations = []string{p.Value}
	}
	if p := ve.GetProperty("COLOR"); p != nil {
		g.Color = p.Value
	}

	var rid *time.Time
	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parseICSTime(p.Value, tzid(p, start.Location())); err == nil {
			rid = &t
		}
	}

	if rid == nil {
		if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
			g.RRule = p.Value
		}
		for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
			loc := tzid(p, start.Location())
			for _, part := range strings.Split(p.Value, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if t, err := parseICSTime(part, loc); err == nil {
					g.ExDates = append(g.ExDates, t)
				}
			}
		}
	}

	return g, uid, rid, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// tzid resolves the TZID parameter of p, falling back to def.
func tzid(p *ical.IANAProperty, def *time.Location) *time.Location {
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if loc, err := time.LoadLocation(tzs[0]); err == nil {
			return loc
		}
	}
	return def
}

// parseICSTime handles the UTC, floating and date-only forms used by EXDATE
// and RECURRENCE-ID.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
