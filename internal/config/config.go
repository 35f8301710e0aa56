// Package config loads and saves the YAML application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"weekgrid/internal/grid"
	"weekgrid/internal/layout"
	"weekgrid/internal/scroll"
	"weekgrid/internal/theme"
	"weekgrid/internal/weekday"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used as the course ID prefix and in logs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label; used as ID when ID is empty.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the timetable page and API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone the week is laid out in. "Local" uses the
	// host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a standard 5-field cron schedule for reloading the
	// timetable (e.g. "*/15 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Grid  grid.Config `yaml:"grid" json:"grid"`
	Theme theme.Theme `yaml:"theme" json:"theme"`

	// EventColors is the palette assigned round-robin to events without an
	// explicit color. Empty means the built-in palette.
	EventColors []string `yaml:"event_colors,omitempty" json:"event_colors,omitempty"`

	// WeekdayLabels replaces the header labels verbatim by position.
	WeekdayLabels []string `yaml:"weekday_labels,omitempty" json:"weekday_labels,omitempty"`
	// WeekdayFormat is a text/template for header labels with .Abbrev,
	// .DayOfWeek and .DayOfMonth. Mutually exclusive with WeekdayLabels.
	WeekdayFormat string `yaml:"weekday_format,omitempty" json:"weekday_format,omitempty"`

	// EventURL is an optional text/template turning each card into a link,
	// e.g. "https://uni.example/courses/{{.CourseID}}". Fields are those of
	// a positioned event: .CourseID, .Key, .Day, .Title, .Section, .Location.
	EventURL string `yaml:"event_url,omitempty" json:"event_url,omitempty"`

	// Overlap is "stack" (default) or "split".
	Overlap string `yaml:"overlap" json:"overlap"`
	// WeekendScroll is "fixed" (default) or "first_weekend_day".
	WeekendScroll string `yaml:"weekend_scroll" json:"weekend_scroll"`

	// EventsFile is the YAML timetable; optional when ICS feeds are set.
	EventsFile string `yaml:"events_file" json:"events_file"`
	// CacheDir holds the ICS feed cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	// PreviewPath is where the captured PNG of the timetable page is written.
	PreviewPath string `yaml:"preview_path" json:"preview_path"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Local"
	defaultRefreshCron = "*/15 * * * *"
	defaultEventsFile  = "/etc/weekgrid/timetable.yaml"
	defaultCacheDir    = "/var/lib/weekgrid/ics-cache"
	defaultPreviewPath = "/var/lib/weekgrid/preview.png"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		Timezone:      defaultTimezone,
		LogLevel:      "info",
		RefreshCron:   defaultRefreshCron,
		Grid:          grid.DefaultConfig(),
		Theme:         theme.Default(),
		Overlap:       "stack",
		WeekendScroll: "fixed",
		EventsFile:    defaultEventsFile,
		CacheDir:      defaultCacheDir,
		PreviewPath:   defaultPreviewPath,
		ICS:           []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave, and clamps enum fields to known values.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}

	c.Grid = grid.DefaultConfig().Merge(c.Grid)
	c.Theme = theme.Default().Merge(c.Theme)

	switch c.Overlap {
	case "stack", "split":
	default:
		c.Overlap = "stack"
	}
	switch c.WeekendScroll {
	case "fixed", "first_weekend_day":
	default:
		c.WeekendScroll = "fixed"
	}

	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.PreviewPath == "" {
		c.PreviewPath = defaultPreviewPath
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Validate reports settings that cannot be fixed up by Normalize.
func (c *Config) Validate() error {
	if len(c.WeekdayLabels) > 0 && c.WeekdayFormat != "" {
		return errors.New("config: weekday_labels and weekday_format are mutually exclusive")
	}
	if c.Grid.StartHour < 0 || c.Grid.StartHour > 23 {
		return fmt.Errorf("config: grid.start_hour %d out of range 0..23", c.Grid.StartHour)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	if _, err := c.LabelStrategy(); err != nil {
		return err
	}
	if _, err := c.EventLink(); err != nil {
		return err
	}
	for name, color := range map[string]string{
		"primary":    c.Theme.Primary,
		"background": c.Theme.Background,
		"accent":     c.Theme.Accent,
		"text":       c.Theme.Text,
	} {
		if !theme.ValidColor(color) {
			return fmt.Errorf("config: theme.%s %q is not a CSS color", name, color)
		}
	}
	for i, color := range c.EventColors {
		if !theme.ValidColor(color) {
			return fmt.Errorf("config: event_colors[%d] %q is not a CSS color", i, color)
		}
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LabelStrategy builds the header label strategy from the weekday settings.
func (c *Config) LabelStrategy() (weekday.LabelStrategy, error) {
	if len(c.WeekdayLabels) > 0 {
		return weekday.FixedLabels(c.WeekdayLabels), nil
	}
	return weekday.TemplateLabels(c.WeekdayFormat)
}

// EventLink parses EventURL. It returns nil when no link is configured.
func (c *Config) EventLink() (*template.Template, error) {
	if strings.TrimSpace(c.EventURL) == "" {
		return nil, nil
	}
	tmpl, err := template.New("event_url").Option("missingkey=error").Parse(c.EventURL)
	if err != nil {
		return nil, fmt.Errorf("config: parse event_url: %w", err)
	}
	return tmpl, nil
}

// OverlapMode maps Overlap onto the projector setting.
func (c *Config) OverlapMode() layout.OverlapMode {
	return layout.ParseOverlap(c.Overlap)
}

// WeekendPolicy maps WeekendScroll onto the scroll coordinator setting.
func (c *Config) WeekendPolicy() scroll.WeekendPolicy {
	return scroll.ParsePolicy(c.WeekendScroll)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created as needed) and returned.
//   - Otherwise the YAML is unmarshalled, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Return cfg alongside the error so the caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".weekgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
