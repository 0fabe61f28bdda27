package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubPurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (p *stubPurger) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	if p.err != nil {
		return 0, p.err
	}
	return 3, nil
}

func (p *stubPurger) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func TestCleanupCutoff(t *testing.T) {
	p := &stubPurger{}
	c := NewCleaner(p, time.Minute, 30*24*time.Hour)
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if n := c.cleanup(context.Background()); n != 3 {
		t.Fatalf("removed = %d, want 3", n)
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !p.cutoffs[0].Equal(want) {
		t.Fatalf("cutoff = %v, want %v", p.cutoffs[0], want)
	}

	p.err = errors.New("db down")
	if n := c.cleanup(context.Background()); n != 0 {
		t.Fatalf("failed purge must report 0, got %d", n)
	}
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	p := &stubPurger{}
	c := NewCleaner(p, time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for p.calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if p.calls() != 1 {
		t.Fatalf("expected one immediate cycle, got %d", p.calls())
	}
}

func TestDisabledRetention(t *testing.T) {
	p := &stubPurger{}
	c := NewCleaner(p, 0, 0)
	if c.interval != time.Hour {
		t.Fatalf("default interval = %v", c.interval)
	}
	c.run(context.Background())
	if p.calls() != 0 {
		t.Fatalf("disabled retention must not purge")
	}
}
