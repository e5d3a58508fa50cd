// Package testutil provides shared test helpers for setting up stores and services.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/notable/internal/noteservice"
	"github.com/starford/notable/internal/storage"
)

// TestStore creates an initialized store file in a temporary directory.
func TestStore(t testing.TB) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(filepath.Join(t.TempDir(), "notes.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return store
}

// TestService creates a service over a fresh TestStore driven by clock.
func TestService(t testing.TB, clock *Clock, opts ...noteservice.Option) (*noteservice.Service, *storage.FS) {
	t.Helper()
	store := TestStore(t)
	all := append([]noteservice.Option{noteservice.WithClock(clock.Now)}, opts...)
	return noteservice.New(store, all...), store
}

// Clock is a manual time source that advances by Step on every read.
type Clock struct {
	mu   sync.Mutex
	t    time.Time
	Step time.Duration
}

// NewClock starts a clock at a fixed instant, ticking one second per read.
func NewClock() *Clock {
	return &Clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), Step: time.Second}
}

// Now returns the current instant and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.Step)
	return now
}

// Freeze stops the clock from advancing.
func (c *Clock) Freeze() {
	c.mu.Lock()
	c.Step = 0
	c.mu.Unlock()
}
