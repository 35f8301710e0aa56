// Package weekday resolves the labels and highlight state of the header
// columns.
package weekday

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"weekgrid/internal/grid"
)

// Abbrevs holds the default column abbreviations, Monday first.
var Abbrevs = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Column is one header cell.
type Column struct {
	DayOfWeek  int    `json:"day_of_week"`
	DayOfMonth int    `json:"day_of_month"`
	Label      string `json:"label"`
	IsCurrent  bool   `json:"is_current"`
}

type strategyKind int

const (
	kindDefault strategyKind = iota
	kindCustom
	kindFixed
)

// LabelStrategy selects how column labels are produced. The zero value is
// the default relative-date formatter.
type LabelStrategy struct {
	kind   strategyKind
	format func(dayOfWeek, dayOfMonth int) string
	labels []string
}

// DefaultLabels formats "<abbrev> <dayOfMonth>" for the current week.
func DefaultLabels() LabelStrategy {
	return LabelStrategy{kind: kindDefault}
}

// CustomLabels formats each column with fn. A nil fn is the default.
func CustomLabels(fn func(dayOfWeek, dayOfMonth int) string) LabelStrategy {
	if fn == nil {
		return DefaultLabels()
	}
	return LabelStrategy{kind: kindCustom, format: fn}
}

// FixedLabels uses labels verbatim by column position. A nil list is the
// default.
func FixedLabels(labels []string) LabelStrategy {
	if labels == nil {
		return DefaultLabels()
	}
	cp := make([]string, len(labels))
	copy(cp, labels)
	return LabelStrategy{kind: kindFixed, labels: cp}
}

// TemplateLabels builds a custom strategy from a text/template with the
// fields .Abbrev, .DayOfWeek and .DayOfMonth, e.g. "{{.DayOfMonth}} {{.Abbrev}}".
func TemplateLabels(text string) (LabelStrategy, error) {
	if strings.TrimSpace(text) == "" {
		return DefaultLabels(), nil
	}
	tmpl, err := template.New("weekday").Option("missingkey=error").Parse(text)
	if err != nil {
		return LabelStrategy{}, fmt.Errorf("weekday: parse label template: %w", err)
	}
	return CustomLabels(func(dayOfWeek, dayOfMonth int) string {
		var b strings.Builder
		data := struct {
			Abbrev     string
			DayOfWeek  int
			DayOfMonth int
		}{abbrev(dayOfWeek), dayOfWeek, dayOfMonth}
		if err := tmpl.Execute(&b, data); err != nil {
			return defaultLabel(dayOfWeek, dayOfMonth)
		}
		return b.String()
	}), nil
}

// Resolve returns the header columns 1..numOfDays for the week containing
// ref. The column matching ref's ISO weekday is current.
func Resolve(numOfDays int, ref time.Time, strategy LabelStrategy) []Column {
	if numOfDays <= 0 {
		return []Column{}
	}

	current := grid.ISOWeekday(ref)
	columns := make([]Column, 0, numOfDays)
	for day := 1; day <= numOfDays; day++ {
		dayOfMonth := ref.AddDate(0, 0, day-current).Day()
		columns = append(columns, Column{
			DayOfWeek:  day,
			DayOfMonth: dayOfMonth,
			Label:      strategy.label(day, dayOfMonth),
			IsCurrent:  day == current,
		})
	}
	return columns
}

func (s LabelStrategy) label(dayOfWeek, dayOfMonth int) string {
	switch s.kind {
	case kindCustom:
		return s.format(dayOfWeek, dayOfMonth)
	case kindFixed:
		if dayOfWeek-1 < len(s.labels) {
			return s.labels[dayOfWeek-1]
		}
		return ""
	default:
		return defaultLabel(dayOfWeek, dayOfMonth)
	}
}

func defaultLabel(dayOfWeek, dayOfMonth int) string {
	return fmt.Sprintf("%s %d", abbrev(dayOfWeek), dayOfMonth)
}

func abbrev(dayOfWeek int) string {
	if dayOfWeek < 1 {
		return ""
	}
	return Abbrevs[(dayOfWeek-1)%7]
}
