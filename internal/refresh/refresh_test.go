package refresh

import (
	"context"
	"errors"
	"testing"

	"weekgrid/internal/dataset"
)

type seqLoader struct {
	ids []string
	err error
	n   int
}

func (l *seqLoader) Load(context.Context) (dataset.Dataset, error) {
	if l.err != nil {
		return dataset.Dataset{}, l.err
	}
	id := l.ids[l.n%len(l.ids)]
	l.n++
	return dataset.Dataset{ID: id}, nil
}

func TestRunOnce_StoresAndReportsChange(t *testing.T) {
	t.Parallel()

	store := &dataset.Store{}
	var changes []bool
	hook := func(_ context.Context, _ dataset.Dataset, changed bool) error {
		changes = append(changes, changed)
		return nil
	}
	s := New(&seqLoader{ids: []string{"a", "a", "b"}}, store, hook)

	for i := 0; i < 3; i++ {
		if err := s.RunOnce(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}
	want := []bool{true, false, true}
	for i := range want {
		if changes[i] != want[i] {
			t.Fatalf("changes = %v, want %v", changes, want)
		}
	}
	if store.Get().ID != "b" {
		t.Fatalf("store id = %q", store.Get().ID)
	}
}

func TestRunOnce_LoadErrorKeepsPreviousDataset(t *testing.T) {
	t.Parallel()

	store := &dataset.Store{}
	store.Set(dataset.Dataset{ID: "old"})
	called := false
	s := New(&seqLoader{err: errors.New("boom")}, store, func(context.Context, dataset.Dataset, bool) error {
		called = true
		return nil
	})

	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if called || store.Get().ID != "old" {
		t.Fatalf("hook called=%v id=%q", called, store.Get().ID)
	}
}

func TestRunOnce_HookErrorDoesNotFailCycle(t *testing.T) {
	t.Parallel()

	s := New(&seqLoader{ids: []string{"a"}}, &dataset.Store{}, func(context.Context, dataset.Dataset, bool) error {
		return errors.New("capture failed")
	})
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	t.Parallel()

	s := New(&seqLoader{ids: []string{"a"}}, &dataset.Store{})
	if err := s.Start(context.Background(), "not a cron"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
