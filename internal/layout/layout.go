// Package layout projects timetable events onto the grid: day column, pixel
// rectangle, color and reconciliation key for every occurrence.
package layout

import (
	"fmt"
	"sort"

	"weekgrid/internal/grid"
	"weekgrid/internal/model"
	"weekgrid/internal/scroll"
	"weekgrid/internal/theme"
)

// Expander turns event groups into occurrences and scroll hints. It must be
// deterministic for the projection to stay pure.
type Expander interface {
	Expand(groups []model.EventGroup) model.Expansion
}

// OverlapMode controls what happens to events that share time on one day.
type OverlapMode int

const (
	// OverlapStack draws every event at full column width in input order;
	// later events paint over earlier ones.
	OverlapStack OverlapMode = iota
	// OverlapSplit divides the column between events that overlap in time.
	OverlapSplit
)

// ParseOverlap maps a config value to an OverlapMode.
func ParseOverlap(s string) OverlapMode {
	if s == "split" {
		return OverlapSplit
	}
	return OverlapStack
}

// PositionedEvent is an occurrence ready for presentation. It is rebuilt on
// every projection and carries no identity beyond Key.
type PositionedEvent struct {
	model.RawEvent

	Key   string `json:"key"`
	Index int    `json:"index"`

	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Column and Columns place the event inside its day when overlaps are
	// split; both stay 0 and 1 in stack mode.
	Column  int `json:"column"`
	Columns int `json:"columns"`
}

// Result is the output of one projection pass.
type Result struct {
	Events              []PositionedEvent
	EarliestGridOffset  float64
	WeekendEventPresent bool
	FirstWeekendDay     int
}

// ScrollHints extracts what the scroll coordinator needs.
func (r Result) ScrollHints() scroll.Hints {
	return scroll.Hints{
		EarliestGridOffset:  r.EarliestGridOffset,
		WeekendEventPresent: r.WeekendEventPresent,
		FirstWeekendDay:     r.FirstWeekendDay,
	}
}

// Projector holds the read-only inputs shared by every projection.
type Projector struct {
	Grid     grid.Config
	Palette  []string
	Expander Expander
	Overlap  OverlapMode
}

// Project lays out events, or groups when groups is non-nil. Groups take
// precedence and need an Expander; without one they yield nothing.
func (p Projector) Project(events []model.RawEvent, groups []model.EventGroup) Result {
	res := Result{EarliestGridOffset: float64(p.Grid.NumOfHours)}

	if groups != nil {
		events = nil
		if p.Expander != nil {
			exp := p.Expander.Expand(groups)
			events = exp.Events
			if exp.HasEarliest {
				res.EarliestGridOffset = exp.EarliestGridOffset
			}
			res.WeekendEventPresent = exp.WeekendEventPresent
			res.FirstWeekendDay = exp.FirstWeekendDay
		}
	}

	palette := p.Palette
	if len(palette) == 0 {
		palette = theme.DefaultPalette
	}

	g := grid.Compute(p.Grid)
	res.Events = make([]PositionedEvent, 0, len(events))
	for i, ev := range events {
		if ev.Color == "" {
			ev.Color = palette[i%len(palette)]
		}
		res.Events = append(res.Events, PositionedEvent{
			RawEvent: ev,
			Key:      fmt.Sprintf("%s-%d-%d", ev.CourseID, i, ev.Day),
			Index:    i,
			Top:      g.CellHeight * ev.StartOffset,
			Left:     g.CellWidth * float64(ev.Day-1),
			Width:    g.CellWidth,
			Height:   g.CellHeight * ev.Duration,
			Columns:  1,
		})
	}

	if p.Overlap == OverlapSplit {
		splitOverlaps(res.Events, g.CellWidth)
	}
	return res
}

// splitOverlaps assigns each event the first sub-column that is free for
// its whole span, then narrows every event to its cluster's column count.
// A cluster is a run of events on one day joined by overlapping spans.
func splitOverlaps(events []PositionedEvent, cellWidth float64) {
	byDay := make(map[int][]int)
	for i, ev := range events {
		byDay[ev.Day] = append(byDay[ev.Day], i)
	}

	for _, idx := range byDay {
		sort.SliceStable(idx, func(a, b int) bool {
			ea, eb := events[idx[a]], events[idx[b]]
			if ea.StartOffset != eb.StartOffset {
				return ea.StartOffset < eb.StartOffset
			}
			return ea.Index < eb.Index
		})

		var (
			cluster    []int
			columnEnds []float64
			clusterEnd float64
		)
		flush := func() {
			for _, i := range cluster {
				events[i].Columns = len(columnEnds)
			}
			cluster = cluster[:0]
			columnEnds = columnEnds[:0]
		}

		for _, i := range idx {
			ev := &events[i]
			start, end := ev.StartOffset, ev.StartOffset+ev.Duration
			if len(cluster) > 0 && start >= clusterEnd {
				flush()
			}

			col := -1
			for c, colEnd := range columnEnds {
				if colEnd <= start {
					col = c
					break
				}
			}
			if col == -1 {
				col = len(columnEnds)
				columnEnds = append(columnEnds, end)
			} else {
				columnEnds[col] = end
			}
			ev.Column = col

			if len(cluster) == 0 || end > clusterEnd {
				clusterEnd = end
			}
			cluster = append(cluster, i)
		}
		flush()
	}

	for i := range events {
		ev := &events[i]
		if ev.Columns <= 1 {
			continue
		}
		width := cellWidth / float64(ev.Columns)
		ev.Width = width
		ev.Left += float64(ev.Column) * width
	}
}
