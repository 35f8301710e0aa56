package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"weekgrid/internal/config"
	"weekgrid/internal/dataset"
	"weekgrid/internal/model"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *dataset.Store) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.PreviewPath = filepath.Join(t.TempDir(), "preview.png")
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Normalize()

	store := &dataset.Store{}
	ds, err := dataset.Identify(dataset.Dataset{
		Groups: []model.EventGroup{{
			CourseID:   "CS101",
			Title:      "Algorithms",
			Days:       []int{3, 7},
			StartTimes: []string{"09:00", "14:00"},
			EndTimes:   []string{"10:30", "15:00"},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	store.Set(ds)

	s := NewServer(cfg, store)
	s.Now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
	return s, store
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestLayoutAPI(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/layout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var got struct {
		DatasetID string `json:"dataset_id"`
		Events    []struct {
			Key    string  `json:"key"`
			Day    int     `json:"day"`
			Left   float64 `json:"left"`
			Top    float64 `json:"top"`
			Height float64 `json:"height"`
			Color  string  `json:"color"`
		} `json:"events"`
		Scroll struct {
			EarliestGridOffset  float64 `json:"earliest_grid_offset"`
			WeekendEventPresent bool    `json:"weekend_event_present"`
			Targets             struct {
				Vertical   float64 `json:"vertical"`
				Horizontal float64 `json:"horizontal"`
			} `json:"targets"`
		} `json:"scroll"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(got.Events) != 2 {
		t.Fatalf("events = %d", len(got.Events))
	}
	first := got.Events[0]
	if first.Key != "CS101-0-3" || first.Left != 100 || first.Top != 540 || first.Height != 90 || first.Color == "" {
		t.Fatalf("first event: %+v", first)
	}
	if got.Scroll.EarliestGridOffset != 9 || !got.Scroll.WeekendEventPresent {
		t.Fatalf("scroll hints: %+v", got.Scroll)
	}
	if got.Scroll.Targets.Vertical != 540 || got.Scroll.Targets.Horizontal != 100 {
		t.Fatalf("scroll targets: %+v", got.Scroll.Targets)
	}
}

func TestLayoutCacheFollowsDatasetIdentity(t *testing.T) {
	s, store := newTestServer(t, nil)

	first, err := s.currentView()
	if err != nil {
		t.Fatal(err)
	}

	ds, _ := dataset.Identify(dataset.Dataset{Events: []model.RawEvent{{Day: 1, Duration: 1, CourseID: "new"}}})
	store.Set(ds)

	second, err := s.currentView()
	if err != nil {
		t.Fatal(err)
	}
	if second.DatasetID == first.DatasetID || len(second.Events) != 1 || second.Events[0].CourseID != "new" {
		t.Fatalf("cache served stale dataset: %+v", second)
	}
}

func TestWeekdaysAPI(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) { c.WeekdayFormat = "{{.Abbrev}}/{{.DayOfMonth}}" })
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/weekdays", nil))

	var cols []struct {
		Label     string `json:"label"`
		IsCurrent bool   `json:"is_current"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cols); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cols) != 7 || cols[0].Label != "Mon/12" || !cols[2].IsCurrent {
		t.Fatalf("columns: %+v", cols)
	}
}

func TestTimetablePage(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/timetable", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`data-key="CS101-0-3"`,
		`data-course-id="CS101"`,
		"top:540.00px",
		"header.scrollLeft = days.scrollLeft",
		`"data-ready"`,
		"Algorithms",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	// html/template pads numbers in script context.
	for _, re := range []*regexp.Regexp{
		regexp.MustCompile(`vertical\.scrollTop =\s*540\s*;`),
		regexp.MustCompile(`days\.scrollLeft =\s*100\s*;`),
	} {
		if !re.MatchString(body) {
			t.Errorf("page missing scroll target %s", re)
		}
	}
	if strings.Contains(body, "ZgotmplZ") {
		t.Error("page contains an escaped-out value")
	}
}

func TestTimetablePage_KeepsFunctionalEventColors(t *testing.T) {
	s, store := newTestServer(t, nil)
	ds, err := dataset.Identify(dataset.Dataset{Events: []model.RawEvent{
		{Day: 1, StartOffset: 8, Duration: 1, CourseID: "rgba", Color: "rgba(255,0,0,0.5)"},
		{Day: 2, StartOffset: 8, Duration: 1, CourseID: "bad", Color: "red;background:url(x)"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	store.Set(ds)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/timetable", nil))
	body := rec.Body.String()

	if !strings.Contains(body, `style="background:rgba(255,0,0,0.5)"`) {
		t.Error("explicit rgba color did not reach the card")
	}
	if !strings.Contains(body, `style="background:transparent"`) {
		t.Error("unsafe color should render transparent")
	}
	if strings.Contains(body, "ZgotmplZ") || strings.Contains(body, "url(x)") {
		t.Error("page contains an escaped-out or unsafe value")
	}
}

func TestTimetablePage_EventLinks(t *testing.T) {
	tests := []struct {
		name     string
		eventURL string
		want     string
		wantLink bool
	}{
		{name: "no template", eventURL: "", wantLink: false},
		{name: "course page", eventURL: "https://uni.example/courses/{{.CourseID}}", want: `href="https://uni.example/courses/CS101"`, wantLink: true},
		{name: "script scheme", eventURL: "javascript:alert({{.CourseID}})", want: `href="#ZgotmplZ"`, wantLink: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, func(c *config.Config) { c.EventURL = tt.eventURL })
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/timetable", nil))
			body := rec.Body.String()

			if got := strings.Contains(body, `<a class="wg-card-link"`); got != tt.wantLink {
				t.Fatalf("card link present = %v, want %v", got, tt.wantLink)
			}
			if tt.want != "" && !strings.Contains(body, tt.want) {
				t.Errorf("page missing %s", tt.want)
			}
			if strings.Contains(body, "javascript:") {
				t.Error("unsafe URL reached the page")
			}
		})
	}
}

func TestPreview(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("before capture: status = %d", rec.Code)
	}

	if err := os.WriteFile(s.cfg.PreviewPath, []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview.png", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("after capture: status = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func(path string, auth bool) int {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		if auth {
			req.SetBasicAuth("admin", "secret")
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode
	}

	if code := get("/health", false); code != http.StatusOK {
		t.Fatalf("/health without auth = %d", code)
	}
	if code := get("/api/layout", false); code != http.StatusUnauthorized {
		t.Fatalf("/api/layout without auth = %d", code)
	}
	if code := get("/api/layout", true); code != http.StatusOK {
		t.Fatalf("/api/layout with auth = %d", code)
	}
}
