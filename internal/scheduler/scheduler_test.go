package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLockStore struct {
	holders map[string]string
	lockErr error
}

func newFakeLockStore() *fakeLockStore { return &fakeLockStore{holders: map[string]string{}} }

func (f *fakeLockStore) Lock(_ context.Context, name, id string, _ time.Duration) error {
	if f.lockErr != nil {
		return f.lockErr
	}
	if h, ok := f.holders[name]; ok && h != id {
		return errors.New("held")
	}
	f.holders[name] = id
	return nil
}

func (f *fakeLockStore) Unlock(_ context.Context, name, id string) error {
	if f.holders[name] != id {
		return errors.New("not owner")
	}
	delete(f.holders, name)
	return nil
}

func TestRunLockedSkipsOnContention(t *testing.T) {
	store := newFakeLockStore()
	store.holders["update_getlogs"] = "other-holder"

	s := New(store, "me")
	ran := false
	job := Job{Name: "update_getlogs", LockTTL: time.Minute, Run: func(context.Context) error {
		ran = true
		return nil
	}}

	s.runLocked(context.Background(), job)
	if ran {
		t.Fatalf("job ran despite contended lock")
	}
}

func TestRunLockedReleasesOnPanic(t *testing.T) {
	store := newFakeLockStore()
	s := New(store, "me")
	job := Job{Name: "update_caches", LockTTL: time.Minute, Run: func(context.Context) error {
		panic("boom")
	}}

	s.runLocked(context.Background(), job)

	if _, held := store.holders["update_caches"]; held {
		t.Fatalf("lock still held after panicking job")
	}
}

func TestRunLockedReleasesOnSuccess(t *testing.T) {
	store := newFakeLockStore()
	s := New(store, "me")
	job := Job{Name: "update_prices", LockTTL: time.Minute, Run: func(context.Context) error { return nil }}

	s.runLocked(context.Background(), job)

	if _, held := store.holders["update_prices"]; held {
		t.Fatalf("lock still held after successful run")
	}
}
