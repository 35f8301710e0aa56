// Package refresh reloads the timetable on a cron schedule and runs the
// follow-up work (such as recapturing the preview) after each reload.
package refresh

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"weekgrid/internal/dataset"
	appLog "weekgrid/internal/log"
)

// Loader produces a fresh dataset.
type Loader interface {
	Load(ctx context.Context) (dataset.Dataset, error)
}

// Hook runs after a successful reload. changed reports whether the dataset
// identity differs from the previous one.
type Hook func(ctx context.Context, ds dataset.Dataset, changed bool) error

// Scheduler owns the cron runner. Cycles never overlap: a tick that fires
// while the previous cycle is still running is skipped.
type Scheduler struct {
	loader Loader
	store  *dataset.Store
	hooks  []Hook

	mu sync.Mutex
}

// New returns a scheduler that writes into store.
func New(loader Loader, store *dataset.Store, hooks ...Hook) *Scheduler {
	return &Scheduler{
		loader: loader,
		store:  store,
		hooks:  hooks,
	}
}

// RunOnce performs one reload cycle synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycle(ctx)
}

func (s *Scheduler) cycle(ctx context.Context) error {
	ds, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("refresh: load dataset: %w", err)
	}

	changed := s.store.Set(ds)
	if changed {
		appLog.Info("refresh: dataset changed", "id", ds.ID)
	} else {
		appLog.Debug("refresh: dataset unchanged", "id", ds.ID)
	}

	for i, hook := range s.hooks {
		if err := hook(ctx, ds, changed); err != nil {
			appLog.Error("refresh: hook failed", err, "hook", i)
		}
	}
	return nil
}

// Start runs cycles on schedule, a standard 5-field cron expression, until ctx is
// cancelled. It returns once the schedule is installed.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithLogger(cronLogger{}))
	if _, err := c.AddFunc(schedule, func() {
		if !s.mu.TryLock() {
			appLog.Warn("refresh: previous cycle still running, skipping tick")
			return
		}
		defer s.mu.Unlock()
		if err := s.cycle(ctx); err != nil {
			appLog.Error("refresh: cycle failed", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh: invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	appLog.Info("refresh scheduler started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		stopped := c.Stop()
		<-stopped.Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}

// cronLogger routes cron's internal logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
