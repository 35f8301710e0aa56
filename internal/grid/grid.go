// Package grid holds the timetable dimensions and the pixel geometry derived
// from them.
package grid

import "time"

// Documented defaults for a Config field left at zero.
const (
	DefaultCellWidth      = 50
	DefaultCellHeight     = 60
	DefaultNumOfDays      = 7
	DefaultNumOfHours     = 24
	DefaultStartHour      = 0
	DefaultTimeTicksWidth = 30
)

// Config is the caller-owned, read-only grid configuration. CellWidth and
// CellHeight are the pixel size of one day column by one hour row.
type Config struct {
	CellWidth      float64 `yaml:"cell_width" json:"cell_width"`
	CellHeight     float64 `yaml:"cell_height" json:"cell_height"`
	NumOfDays      int     `yaml:"num_of_days" json:"num_of_days"`
	NumOfHours     int     `yaml:"num_of_hours" json:"num_of_hours"`
	StartHour      int     `yaml:"start_hour" json:"start_hour"`
	TimeTicksWidth float64 `yaml:"time_ticks_width" json:"time_ticks_width"`
}

// DefaultConfig returns the configuration used when the caller supplies none.
func DefaultConfig() Config {
	return Config{
		CellWidth:      DefaultCellWidth,
		CellHeight:     DefaultCellHeight,
		NumOfDays:      DefaultNumOfDays,
		NumOfHours:     DefaultNumOfHours,
		StartHour:      DefaultStartHour,
		TimeTicksWidth: DefaultTimeTicksWidth,
	}
}

// Merge overlays the non-zero fields of partial onto c.
func (c Config) Merge(partial Config) Config {
	if partial.CellWidth != 0 {
		c.CellWidth = partial.CellWidth
	}
	if partial.CellHeight != 0 {
		c.CellHeight = partial.CellHeight
	}
	if partial.NumOfDays != 0 {
		c.NumOfDays = partial.NumOfDays
	}
	if partial.NumOfHours != 0 {
		c.NumOfHours = partial.NumOfHours
	}
	if partial.StartHour != 0 {
		c.StartHour = partial.StartHour
	}
	if partial.TimeTicksWidth != 0 {
		c.TimeTicksWidth = partial.TimeTicksWidth
	}
	return c
}

// Geometry is the pixel size of the grid canvas and its cells.
type Geometry struct {
	CanvasWidth   float64 `json:"canvas_width"`
	CanvasHeight  float64 `json:"canvas_height"`
	CellWidth     float64 `json:"cell_width"`
	CellHeight    float64 `json:"cell_height"`
	TimeAxisWidth float64 `json:"time_axis_width"`
}

// Compute derives the canvas geometry. Non-positive dimensions come out as
// zero-sized geometry; validating them is the caller's job.
func Compute(cfg Config) Geometry {
	cw := positive(cfg.CellWidth)
	ch := positive(cfg.CellHeight)
	return Geometry{
		CanvasWidth:   cw * positive(float64(cfg.NumOfDays)),
		CanvasHeight:  ch * positive(float64(cfg.NumOfHours)),
		CellWidth:     cw,
		CellHeight:    ch,
		TimeAxisWidth: positive(cfg.TimeTicksWidth),
	}
}

// PixelsPerHour converts hour offsets into vertical pixel spans.
func (g Geometry) PixelsPerHour() float64 {
	return g.CellHeight
}

// Lines returns the x offsets of the vertical strokes (one per day boundary,
// both canvas edges included) and the y offsets of the horizontal strokes
// (one per hour boundary).
func (g Geometry) Lines() (vertical, horizontal []float64) {
	if g.CellWidth > 0 {
		for x := 0.0; x <= g.CanvasWidth; x += g.CellWidth {
			vertical = append(vertical, x)
		}
	}
	if g.CellHeight > 0 {
		for y := 0.0; y <= g.CanvasHeight; y += g.CellHeight {
			horizontal = append(horizontal, y)
		}
	}
	return vertical, horizontal
}

// Indicator is the current-time line drawn across today's column.
type Indicator struct {
	Top     float64 `json:"top"`
	Left    float64 `json:"left"`
	Width   float64 `json:"width"`
	Visible bool    `json:"visible"`
}

// NowIndicator places the current-time line for now. It is hidden when now
// falls outside the visible hours or its weekday is not a visible column.
func NowIndicator(cfg Config, now time.Time) Indicator {
	g := Compute(cfg)
	day := ISOWeekday(now)
	hours := float64(now.Hour()) + float64(now.Minute())/60 + float64(now.Second())/3600
	offset := hours - float64(cfg.StartHour)

	ind := Indicator{
		Top:   offset * g.CellHeight,
		Left:  float64(day-1) * g.CellWidth,
		Width: g.CellWidth,
	}
	ind.Visible = day <= cfg.NumOfDays && offset >= 0 && offset <= float64(cfg.NumOfHours) && g.CellHeight > 0
	return ind
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// IsWeekend reports whether a 1-indexed day column falls on Saturday or
// Sunday. Columns past 7 wrap into the following week.
func IsWeekend(day int) bool {
	if day < 1 {
		return false
	}
	return (day-1)%7 >= 5
}

func positive(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}
