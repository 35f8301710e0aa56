package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"weekgrid/internal/capture"
	"weekgrid/internal/config"
	"weekgrid/internal/dataset"
)

func TestPageURL(t *testing.T) {
	tests := []struct {
		name   string
		listen string
		auth   *config.BasicAuthConfig
		want   string
	}{
		{name: "loopback", listen: "127.0.0.1:8080", want: "http://127.0.0.1:8080/timetable"},
		{name: "all interfaces", listen: ":9000", want: "http://127.0.0.1:9000/timetable"},
		{name: "with auth", listen: "127.0.0.1:8080", auth: &config.BasicAuthConfig{Username: "u", Password: "p"}, want: "http://u:p@127.0.0.1:8080/timetable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := config.DefaultConfig()
			conf.Listen = tt.listen
			conf.BasicAuth = tt.auth
			if got := pageURL(conf); got != tt.want {
				t.Fatalf("pageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCaptureHook_RecapturesOnWeekRollover(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Timezone = "UTC"

	var captures int
	run := func(context.Context, capture.Options) error {
		captures++
		return nil
	}
	clock := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	hook := captureHook(conf, run, func() time.Time { return clock })

	ds := dataset.Dataset{ID: "same-content"}
	ctx := context.Background()

	steps := []struct {
		name    string
		advance time.Duration
		changed bool
		want    int
	}{
		{name: "first cycle", changed: true, want: 1},
		{name: "same day, same content", advance: 15 * time.Minute, want: 1},
		{name: "next week, same content", advance: 7 * 24 * time.Hour, want: 2},
		{name: "again that day", advance: time.Hour, want: 2},
	}
	for _, st := range steps {
		clock = clock.Add(st.advance)
		if err := hook(ctx, ds, st.changed); err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if captures != st.want {
			t.Fatalf("%s: captures = %d, want %d", st.name, captures, st.want)
		}
	}
}

func TestCaptureHook_RetriesAfterFailure(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Timezone = "UTC"

	fail := true
	var attempts int
	run := func(context.Context, capture.Options) error {
		attempts++
		if fail {
			return errors.New("chromium unavailable")
		}
		return nil
	}
	now := func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) }
	hook := captureHook(conf, run, now)
	ds := dataset.Dataset{ID: "a"}

	if err := hook(context.Background(), ds, true); err == nil {
		t.Fatal("expected capture error")
	}
	fail = false
	if err := hook(context.Background(), ds, false); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}
