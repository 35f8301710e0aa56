package scroll

import (
	"testing"

	"weekgrid/internal/grid"
)

func testConfig() grid.Config {
	return grid.Config{CellWidth: 50, CellHeight: 60, NumOfDays: 7, NumOfHours: 24}
}

// recorder is a Region that remembers every offset it was sent.
type recorder struct {
	Offsets []float64
}

func (r *recorder) ScrollTo(offset float64) {
	r.Offsets = append(r.Offsets, offset)
}

func (r *recorder) Last() (float64, bool) {
	if len(r.Offsets) == 0 {
		return 0, false
	}
	return r.Offsets[len(r.Offsets)-1], true
}

func newTestCoordinator(policy WeekendPolicy) (*Coordinator, *recorder, *recorder, *recorder) {
	vertical, horizontal, header := &recorder{}, &recorder{}, &recorder{}
	c := New(testConfig(), Regions{Vertical: vertical, Horizontal: horizontal, Header: header}, policy)
	return c, vertical, horizontal, header
}

func TestVerticalAutoScroll_FiresOncePerDataset(t *testing.T) {
	t.Parallel()

	c, vertical, _, _ := newTestCoordinator(WeekendFixed)
	c.Load("a", Hints{EarliestGridOffset: 9})

	if y, ok := c.VerticalContentSizeChanged(); !ok || y != 540 {
		t.Fatalf("first trigger = %v,%v want 540,true", y, ok)
	}
	if _, ok := c.VerticalContentSizeChanged(); ok {
		t.Fatalf("trigger must not re-fire for the same dataset")
	}

	c.Load("a", Hints{EarliestGridOffset: 9})
	if _, ok := c.VerticalContentSizeChanged(); ok {
		t.Fatalf("reloading the same dataset must not re-arm the trigger")
	}

	c.Load("b", Hints{EarliestGridOffset: 8})
	if y, ok := c.VerticalContentSizeChanged(); !ok || y != 480 {
		t.Fatalf("new dataset trigger = %v,%v want 480,true", y, ok)
	}

	if len(vertical.Offsets) != 2 || vertical.Offsets[0] != 540 || vertical.Offsets[1] != 480 {
		t.Fatalf("vertical offsets = %v", vertical.Offsets)
	}
}

func TestVerticalAutoScroll_SentinelDoesNotFire(t *testing.T) {
	t.Parallel()

	c, vertical, _, _ := newTestCoordinator(WeekendFixed)
	c.Load("a", Hints{EarliestGridOffset: 24})

	if _, ok := c.VerticalContentSizeChanged(); ok {
		t.Fatalf("sentinel offset must not scroll")
	}
	if len(vertical.Offsets) != 0 {
		t.Fatalf("unexpected scroll: %v", vertical.Offsets)
	}

	// A fresh coordinator with nothing loaded also has no preference.
	fresh, rec, _, _ := newTestCoordinator(WeekendFixed)
	if _, ok := fresh.VerticalContentSizeChanged(); ok || len(rec.Offsets) != 0 {
		t.Fatalf("fresh coordinator must not scroll")
	}
}

func TestHorizontalAutoScroll_Policies(t *testing.T) {
	t.Parallel()

	fixed, _, horizontal, _ := newTestCoordinator(WeekendFixed)
	fixed.Load("a", Hints{EarliestGridOffset: 24, WeekendEventPresent: true, FirstWeekendDay: 7})
	if x, ok := fixed.HorizontalContentSizeChanged(); !ok || x != 100 {
		t.Fatalf("fixed policy = %v,%v want 100,true", x, ok)
	}
	if _, ok := fixed.HorizontalContentSizeChanged(); ok {
		t.Fatalf("horizontal trigger must fire once")
	}
	if len(horizontal.Offsets) != 1 {
		t.Fatalf("horizontal offsets = %v", horizontal.Offsets)
	}

	first, _, _, _ := newTestCoordinator(WeekendFirstDay)
	first.Load("a", Hints{EarliestGridOffset: 24, WeekendEventPresent: true, FirstWeekendDay: 7})
	if x, ok := first.HorizontalContentSizeChanged(); !ok || x != 300 {
		t.Fatalf("first-day policy = %v,%v want 300,true", x, ok)
	}

	none, _, rec, _ := newTestCoordinator(WeekendFixed)
	none.Load("a", Hints{EarliestGridOffset: 24})
	if _, ok := none.HorizontalContentSizeChanged(); ok || len(rec.Offsets) != 0 {
		t.Fatalf("no weekend event must not scroll")
	}
}

func TestMount_RearmsTriggers(t *testing.T) {
	t.Parallel()

	c, vertical, horizontal, _ := newTestCoordinator(WeekendFixed)
	c.Load("a", Hints{EarliestGridOffset: 3, WeekendEventPresent: true})
	c.VerticalContentSizeChanged()
	c.HorizontalContentSizeChanged()

	c.Mount()
	c.VerticalContentSizeChanged()
	c.HorizontalContentSizeChanged()

	if len(vertical.Offsets) != 2 || len(horizontal.Offsets) != 2 {
		t.Fatalf("expected re-fire after mount: %v %v", vertical.Offsets, horizontal.Offsets)
	}
}

func TestGridScrolled_MirrorsVerbatim(t *testing.T) {
	t.Parallel()

	c, vertical, horizontal, header := newTestCoordinator(WeekendFixed)
	in := []float64{0, 50, 120}
	for _, x := range in {
		c.GridScrolled(x)
	}

	if len(header.Offsets) != len(in) {
		t.Fatalf("header offsets = %v", header.Offsets)
	}
	for i := range in {
		if header.Offsets[i] != in[i] {
			t.Fatalf("header[%d] = %v, want %v", i, header.Offsets[i], in[i])
		}
	}
	if len(vertical.Offsets) != 0 || len(horizontal.Offsets) != 0 {
		t.Fatalf("mirroring must only touch the header")
	}
}

func TestTargets(t *testing.T) {
	t.Parallel()

	c := New(testConfig(), Regions{}, WeekendFixed)
	c.Load("a", Hints{EarliestGridOffset: 7.5, WeekendEventPresent: true})

	s := c.Targets()
	if !s.ScrollsDown || s.Vertical != 450 || !s.ScrollsAcross || s.Horizontal != 100 {
		t.Fatalf("targets = %+v", s)
	}

	// Nil regions are tolerated.
	if _, ok := c.VerticalContentSizeChanged(); !ok {
		t.Fatalf("expected vertical trigger with nil region")
	}
	c.GridScrolled(10)
}
