package threadpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRejectsZeroThreads(t *testing.T) {
	if _, err := New(0); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("New(0) = %v, want ErrInvalidSize", err)
	}
}

func TestScheduleBeforeStartRunsOnceStarted(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan struct{})
	if err := p.Schedule(func() { close(done) }); err != nil {
		t.Fatalf("Schedule before Start: %v", err)
	}

	select {
	case <-done:
		t.Fatalf("task should not run before Start")
	default:
	}

	p.Start()
	defer p.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("task scheduled before Start should run once the pool starts")
	}
}

func TestScheduleRunsAllTasks(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start()
	defer p.Stop()

	var count atomic.Int64
	var wg sync.WaitGroup
	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		if err := p.Schedule(func() {
			count.Add(1)
			wg.Done()
		}); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for scheduled tasks, ran %d of %d", count.Load(), n)
	}
	if got := count.Load(); got != n {
		t.Errorf("ran %d tasks, want %d", got, n)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start()
	p.Start()
	if !p.IsStarted() {
		t.Fatalf("pool should be started")
	}
	p.Stop()
}

func TestStopIsIdempotentAndScheduleAfterStopSucceeds(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.Start()
	p.Stop()
	p.Stop() // must not block or panic

	if p.IsStarted() {
		t.Fatalf("pool should report stopped")
	}
	// Schedule after Stop still enqueues; it just won't run until restarted.
	if err := p.Schedule(func() {}); err != nil {
		t.Fatalf("Schedule() after Stop should not fail, got %v", err)
	}
}
