// Package scroll decides where the three timetable regions scroll to and
// keeps the weekday header locked to the grid's horizontal offset.
//
// The coordinator is driven from the host's event loop: the host reports
// layout completion and grid scroll events, the coordinator issues
// ScrollTo calls on the regions. It is not safe for concurrent use.
package scroll

import "weekgrid/internal/grid"

// Region is a scrollable surface along one axis.
type Region interface {
	ScrollTo(offset float64)
}

// Regions groups the surfaces the coordinator drives. Any of them may be nil.
type Regions struct {
	// Vertical scrolls the time axis and grid together.
	Vertical Region
	// Horizontal is the grid's day list.
	Horizontal Region
	// Header is the weekday row; display-only, never scrolled by the user.
	Header Region
}

// WeekendPolicy picks the horizontal target when the dataset has weekend
// events.
type WeekendPolicy int

const (
	// WeekendFixed scrolls two day columns in, whatever day the event is on.
	WeekendFixed WeekendPolicy = iota
	// WeekendFirstDay scrolls to the first weekend column with an event.
	WeekendFirstDay
)

// Hints are the scalars the projector derives from a dataset.
type Hints struct {
	EarliestGridOffset  float64 `json:"earliest_grid_offset"`
	WeekendEventPresent bool    `json:"weekend_event_present"`
	FirstWeekendDay     int     `json:"first_weekend_day,omitempty"`
}

// State holds the initial scroll targets. A false flag means the axis
// stays where it is.
type State struct {
	Vertical      float64 `json:"vertical"`
	ScrollsDown   bool    `json:"scrolls_down"`
	Horizontal    float64 `json:"horizontal"`
	ScrollsAcross bool    `json:"scrolls_across"`
}

// Coordinator owns the one-shot auto-scroll flags for the current dataset.
type Coordinator struct {
	cfg     grid.Config
	regions Regions
	policy  WeekendPolicy

	dataset string
	hints   Hints

	verticalDone   bool
	horizontalDone bool
}

// New returns a coordinator with "no preference" hints loaded.
func New(cfg grid.Config, regions Regions, policy WeekendPolicy) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		regions: regions,
		policy:  policy,
		hints:   Hints{EarliestGridOffset: float64(cfg.NumOfHours)},
	}
}

// Load installs the hints for a dataset. The one-shot triggers re-arm only
// when the dataset identity differs from the loaded one.
func (c *Coordinator) Load(datasetID string, hints Hints) {
	if datasetID != c.dataset {
		c.verticalDone = false
		c.horizontalDone = false
	}
	c.dataset = datasetID
	c.hints = hints
}

// Mount re-arms both triggers for a freshly mounted view.
func (c *Coordinator) Mount() {
	c.verticalDone = false
	c.horizontalDone = false
}

// Targets computes the initial scroll targets without firing anything.
func (c *Coordinator) Targets() State {
	var s State
	if c.hints.EarliestGridOffset != float64(c.cfg.NumOfHours) {
		s.Vertical = c.hints.EarliestGridOffset * c.cfg.CellHeight
		s.ScrollsDown = true
	}
	if c.hints.WeekendEventPresent {
		s.Horizontal = c.horizontalTarget()
		s.ScrollsAcross = true
	}
	return s
}

// VerticalContentSizeChanged reacts to the vertical region finishing
// layout. It scrolls to the earliest event at most once per dataset and
// reports the offset it issued.
func (c *Coordinator) VerticalContentSizeChanged() (float64, bool) {
	if c.verticalDone {
		return 0, false
	}
	t := c.Targets()
	if !t.ScrollsDown {
		return 0, false
	}
	c.verticalDone = true
	if c.regions.Vertical != nil {
		c.regions.Vertical.ScrollTo(t.Vertical)
	}
	return t.Vertical, true
}

// HorizontalContentSizeChanged reacts to the day list finishing layout. It
// scrolls towards the weekend at most once per dataset.
func (c *Coordinator) HorizontalContentSizeChanged() (float64, bool) {
	if c.horizontalDone {
		return 0, false
	}
	t := c.Targets()
	if !t.ScrollsAcross {
		return 0, false
	}
	c.horizontalDone = true
	if c.regions.Horizontal != nil {
		c.regions.Horizontal.ScrollTo(t.Horizontal)
	}
	return t.Horizontal, true
}

// GridScrolled mirrors a horizontal grid offset onto the header, verbatim
// and before returning, so the header is in place for the next paint.
func (c *Coordinator) GridScrolled(x float64) {
	if c.regions.Header != nil {
		c.regions.Header.ScrollTo(x)
	}
}

func (c *Coordinator) horizontalTarget() float64 {
	if c.policy == WeekendFirstDay && c.hints.FirstWeekendDay > 0 {
		return float64(c.hints.FirstWeekendDay-1) * c.cfg.CellWidth
	}
	return 2 * c.cfg.CellWidth
}

// ParsePolicy maps a config value to a WeekendPolicy.
func ParsePolicy(s string) WeekendPolicy {
	if s == "first_weekend_day" {
		return WeekendFirstDay
	}
	return WeekendFixed
}
