// Package view assembles everything the timetable page draws for one
// dataset: header columns, canvas geometry, positioned events and the
// initial scroll targets.
package view

import (
	"fmt"
	"strings"
	"time"

	"weekgrid/internal/config"
	"weekgrid/internal/dataset"
	"weekgrid/internal/expand"
	"weekgrid/internal/grid"
	"weekgrid/internal/layout"
	"weekgrid/internal/scroll"
	"weekgrid/internal/theme"
	"weekgrid/internal/weekday"
)

// Tick is one label on the time axis.
type Tick struct {
	Label string  `json:"label"`
	Top   float64 `json:"top"`
}

// Scroll carries both the hints and the targets derived from them.
type Scroll struct {
	scroll.Hints
	Targets scroll.State `json:"targets"`
}

// View is the serialisable projection of one dataset at one instant.
type View struct {
	DatasetID string                   `json:"dataset_id"`
	WeekStart time.Time                `json:"week_start"`
	Geometry  grid.Geometry            `json:"geometry"`
	Theme     theme.Theme              `json:"theme"`
	Variants  theme.Variants           `json:"variants"`
	Weekdays  []weekday.Column         `json:"weekdays"`
	Ticks     []Tick                   `json:"ticks"`
	Events    []layout.PositionedEvent `json:"events"`
	Links     map[string]string        `json:"links,omitempty"`
	Scroll    Scroll                   `json:"scroll"`
	Now       grid.Indicator           `json:"now"`
}

// Build projects ds for the week containing now. cfg must have been
// normalized and validated.
func Build(cfg *config.Config, ds dataset.Dataset, now time.Time) (View, error) {
	loc := cfg.Location()
	now = now.In(loc)

	labels, err := cfg.LabelStrategy()
	if err != nil {
		return View{}, err
	}
	link, err := cfg.EventLink()
	if err != nil {
		return View{}, err
	}

	exp := expand.Expander{Grid: cfg.Grid, Location: loc, Week: now}
	proj := layout.Projector{
		Grid:     cfg.Grid,
		Palette:  cfg.EventColors,
		Expander: exp,
		Overlap:  cfg.OverlapMode(),
	}
	res := proj.Project(ds.Events, ds.Groups)

	coord := scroll.New(cfg.Grid, scroll.Regions{}, cfg.WeekendPolicy())
	coord.Load(ds.ID, res.ScrollHints())

	var links map[string]string
	if link != nil {
		links = make(map[string]string, len(res.Events))
		for _, ev := range res.Events {
			var b strings.Builder
			if err := link.Execute(&b, ev); err != nil {
				continue
			}
			links[ev.Key] = b.String()
		}
	}

	return View{
		DatasetID: ds.ID,
		WeekStart: exp.WeekStart(),
		Geometry:  grid.Compute(cfg.Grid),
		Theme:     cfg.Theme,
		Variants:  cfg.Theme.Variants(),
		Weekdays:  weekday.Resolve(cfg.Grid.NumOfDays, now, labels),
		Ticks:     ticks(cfg.Grid),
		Events:    res.Events,
		Links:     links,
		Scroll:    Scroll{Hints: res.ScrollHints(), Targets: coord.Targets()},
		Now:       grid.NowIndicator(cfg.Grid, now),
	}, nil
}

func ticks(cfg grid.Config) []Tick {
	g := grid.Compute(cfg)
	out := make([]Tick, 0, cfg.NumOfHours)
	for h := 0; h < cfg.NumOfHours; h++ {
		out = append(out, Tick{
			Label: fmt.Sprintf("%02d:00", (cfg.StartHour+h)%24),
			Top:   float64(h) * g.CellHeight,
		})
	}
	return out
}
