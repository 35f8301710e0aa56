// Package dataset loads the timetable the grid is drawn from: a YAML file of
// flat events and event groups, plus the groups parsed from ICS feeds.
package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"weekgrid/internal/config"
	"weekgrid/internal/expand"
	"weekgrid/internal/ics"
	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
	"weekgrid/internal/theme"
)

// Dataset is one loaded timetable. Groups, when non-nil, take precedence
// over Events in the projection.
type Dataset struct {
	Events []model.RawEvent
	Groups []model.EventGroup

	// ID identifies the content; it changes exactly when the content does.
	ID string
}

// File is the on-disk timetable document.
type File struct {
	Events      []EventEntry       `yaml:"events"`
	EventGroups []model.EventGroup `yaml:"event_groups"`
}

// EventEntry is a flat event. Timing is given either as start_offset and
// duration in hours, or as start and end clock times ("HH:MM").
type EventEntry struct {
	Day         int      `yaml:"day"`
	StartOffset *float64 `yaml:"start_offset,omitempty"`
	Duration    *float64 `yaml:"duration,omitempty"`
	Start       string   `yaml:"start,omitempty"`
	End         string   `yaml:"end,omitempty"`

	CourseID string `yaml:"course_id"`
	Color    string `yaml:"color,omitempty"`
	Title    string `yaml:"title,omitempty"`
	Section  string `yaml:"section,omitempty"`
	Location string `yaml:"location,omitempty"`
}

// RawEvent converts the entry; startHour is the hour drawn at the top of
// the grid.
func (e EventEntry) RawEvent(startHour int) (model.RawEvent, error) {
	ev := model.RawEvent{
		Day:      e.Day,
		CourseID: e.CourseID,
		Color:    e.Color,
		Title:    e.Title,
		Section:  e.Section,
		Location: e.Location,
	}

	switch {
	case e.StartOffset != nil && e.Duration != nil:
		ev.StartOffset = *e.StartOffset
		ev.Duration = *e.Duration
	case e.Start != "" && e.End != "":
		start, err := expand.ParseClock(e.Start)
		if err != nil {
			return ev, err
		}
		end, err := expand.ParseClock(e.End)
		if err != nil {
			return ev, err
		}
		if end <= start {
			return ev, fmt.Errorf("end %s is not after start %s", e.End, e.Start)
		}
		ev.StartOffset = start - float64(startHour)
		ev.Duration = end - start
	default:
		return ev, errors.New("event needs start_offset/duration or start/end")
	}
	return ev, nil
}

// Parse decodes a timetable document. Events with unusable timing are
// logged and skipped.
func Parse(data []byte, startHour int) (Dataset, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Dataset{}, fmt.Errorf("dataset: parse timetable: %w", err)
	}

	ds := Dataset{
		Events: make([]model.RawEvent, 0, len(f.Events)),
		Groups: f.EventGroups,
	}
	for i, entry := range f.Events {
		ev, err := entry.RawEvent(startHour)
		if err != nil {
			appLog.Error("dataset: skipping event", err, "index", i, "course_id", entry.CourseID)
			continue
		}
		ds.Events = append(ds.Events, ev)
	}
	return ds, nil
}

// Identify computes the content hash of ds and stores it in ds.ID.
func Identify(ds Dataset) (Dataset, error) {
	canonical := struct {
		Events []model.RawEvent   `yaml:"events"`
		Groups []model.EventGroup `yaml:"groups"`
		Mode   bool               `yaml:"groups_set"`
	}{ds.Events, ds.Groups, ds.Groups != nil}

	data, err := yaml.Marshal(canonical)
	if err != nil {
		return ds, fmt.Errorf("dataset: encode for identity: %w", err)
	}
	sum := sha256.Sum256(data)
	ds.ID = hex.EncodeToString(sum[:])
	return ds, nil
}

// GroupFetcher is the slice of ics.Fetcher the loader needs.
type GroupFetcher interface {
	FetchGroups(ctx context.Context, sources []ics.Source) ([]model.EventGroup, []error)
}

// Loader assembles a Dataset from the timetable file and ICS feeds.
type Loader struct {
	Path      string
	StartHour int

	Fetcher GroupFetcher
	Sources []ics.Source
}

// NewLoader wires a loader from the application config.
func NewLoader(cfg *config.Config) *Loader {
	return &Loader{
		Path:      cfg.EventsFile,
		StartHour: cfg.Grid.StartHour,
		Fetcher:   ics.NewFetcher(cfg.CacheDir, nil),
		Sources:   Sources(cfg.ICS),
	}
}

// Load reads the timetable file (a missing file is an empty timetable) and
// appends the groups of every reachable feed. Feed failures are logged; the
// feeds that did load still count.
func (l *Loader) Load(ctx context.Context) (Dataset, error) {
	var ds Dataset

	if l.Path != "" {
		data, err := os.ReadFile(l.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			appLog.Warn("dataset: timetable file not found", "path", l.Path)
		case err != nil:
			return Dataset{}, fmt.Errorf("dataset: read %s: %w", l.Path, err)
		default:
			ds, err = Parse(data, l.StartHour)
			if err != nil {
				return Dataset{}, err
			}
		}
	}

	if len(l.Sources) > 0 && l.Fetcher != nil {
		groups, errs := l.Fetcher.FetchGroups(ctx, l.Sources)
		if len(errs) > 0 {
			appLog.Error("dataset: some feeds failed", errors.Join(errs...), "error_count", len(errs))
		}
		if groups != nil {
			ds.Groups = append(ds.Groups, groups...)
		}
	}

	dropInvalidColors(&ds)

	if ds.Groups != nil && len(ds.Events) > 0 {
		appLog.Warn("dataset: event groups present, flat events are ignored", "events", len(ds.Events))
	}

	ds, err := Identify(ds)
	if err != nil {
		return Dataset{}, err
	}
	appLog.Info("dataset loaded", "id", ds.ID[:12], "events", len(ds.Events), "groups", len(ds.Groups))
	return ds, nil
}

// dropInvalidColors clears explicit colors that are not plain CSS colors so
// the palette applies instead.
func dropInvalidColors(ds *Dataset) {
	for i := range ds.Events {
		if c := ds.Events[i].Color; c != "" && !theme.ValidColor(c) {
			appLog.Warn("dataset: ignoring invalid event color", "course_id", ds.Events[i].CourseID, "color", c)
			ds.Events[i].Color = ""
		}
	}
	for i := range ds.Groups {
		if c := ds.Groups[i].Color; c != "" && !theme.ValidColor(c) {
			appLog.Warn("dataset: ignoring invalid group color", "course_id", ds.Groups[i].CourseID, "color", c)
			ds.Groups[i].Color = ""
		}
	}
}

// Sources converts the configured feeds, skipping entries without a URL.
// The ID falls back to the name and then the URL.
func Sources(feeds []config.ICSConfig) []ics.Source {
	sources := make([]ics.Source, 0, len(feeds))
	for _, f := range feeds {
		if f.URL == "" {
			continue
		}
		id := f.ID
		if id == "" {
			id = f.Name
		}
		if id == "" {
			id = f.URL
		}
		sources = append(sources, ics.Source{ID: id, URL: f.URL})
	}
	return sources
}

// Store holds the current dataset for concurrent readers.
type Store struct {
	mu sync.RWMutex
	ds Dataset
}

// Get returns the current dataset.
func (s *Store) Get() Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// Set replaces the dataset and reports whether its identity changed.
func (s *Store) Set(ds Dataset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.ds.ID != ds.ID
	s.ds = ds
	return changed
}
