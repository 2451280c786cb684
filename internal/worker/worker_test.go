package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkerPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool("test", 2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		if err := pool.Submit(ctx, i); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	// Stop drains the buffer before returning
	pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewWorkerPool("test", 4, 100, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		go func(n int) {
			pool.Submit(ctx, n)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 100; i++ {
		<-done
	}

	pool.Stop()

	if processed.Load() != 100 {
		t.Errorf("expected 100 jobs processed, got %d", processed.Load())
	}
}

func TestWorkerPool_TrySubmit_FullQueue(t *testing.T) {
	release := make(chan struct{})
	processor := func(ctx context.Context, job int) error {
		<-release
		return nil
	}

	pool := NewWorkerPool("test", 1, 1, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	// First job occupies the worker, second fills the buffer.
	if !pool.TrySubmit(1) {
		t.Fatal("expected first job to be accepted")
	}
	deadline := time.Now().Add(time.Second)
	for !pool.TrySubmit(2) {
		if time.Now().After(deadline) {
			t.Fatal("expected second job to be accepted once the worker picked up the first")
		}
		time.Sleep(time.Millisecond)
	}
	if pool.TrySubmit(3) {
		t.Error("expected third job to be rejected on a full queue")
	}

	close(release)
	pool.Stop()
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool("test", 1, 1, func(ctx context.Context, job int) error { return nil })
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()

	if err := pool.Submit(context.Background(), 1); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
	if pool.TrySubmit(1) {
		t.Error("expected TrySubmit to fail after Stop")
	}
}

func TestWorkerPool_StopReleasesBlockedSubmit(t *testing.T) {
	pool := NewWorkerPool("test", 1, 1, func(ctx context.Context, job int) error { return nil })

	// Not started: the single buffer slot stays full.
	if !pool.TrySubmit(1) {
		t.Fatal("expected first job to fill the buffer")
	}

	submitErr := make(chan error, 1)
	go func() {
		submitErr <- pool.Submit(context.Background(), 2)
	}()

	// Give the submitter a chance to block on the full queue.
	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	select {
	case err := <-submitErr:
		if !errors.Is(err, ErrPoolStopped) {
			t.Errorf("expected ErrPoolStopped, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("blocked Submit was not released by Stop")
	}

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop waited behind a blocked Submit")
	}
}

func TestWorkerPool_ProcessorErrorDoesNotStopWorker(t *testing.T) {
	var calls atomic.Int64
	processor := func(ctx context.Context, job int) error {
		calls.Add(1)
		return errors.New("boom")
	}

	pool := NewWorkerPool("test", 1, 10, processor)
	pool.Start(context.Background())
	for i := 0; i < 3; i++ {
		pool.Submit(context.Background(), i)
	}
	pool.Stop()

	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestWorkerPool_ContextCancellation(t *testing.T) {
	var started atomic.Int64
	var completed atomic.Int64

	processor := func(ctx context.Context, job int) error {
		started.Add(1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			completed.Add(1)
			return nil
		}
	}

	pool := NewWorkerPool("test", 2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		pool.Submit(ctx, i)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}

	t.Logf("started: %d, completed: %d", started.Load(), completed.Load())
}
