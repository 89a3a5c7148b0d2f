package deferred

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerRunsTasks(t *testing.T) {
	r := New(Config{Workers: 2, Buffer: 10})
	defer r.Close()

	done := make(chan struct{})
	if !r.Go("signal", func(ctx context.Context) error {
		close(done)
		return nil
	}) {
		t.Fatal("task rejected")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestRunnerCloseDrainsQueue(t *testing.T) {
	r := New(Config{Workers: 1, Buffer: 100})

	var ran atomic.Int32
	release := make(chan struct{})
	r.Go("blocker", func(ctx context.Context) error {
		<-release
		ran.Add(1)
		return nil
	})
	for i := 0; i < 20; i++ {
		r.Go("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	close(release)

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if got := ran.Load(); got != 21 {
		t.Fatalf("ran %d tasks, want 21", got)
	}
	if r.Pending() != 0 {
		t.Fatalf("pending = %d after close", r.Pending())
	}
}

func TestRunnerRejectsAfterClose(t *testing.T) {
	r := New(Config{Workers: 1, Buffer: 1})
	r.Close()
	r.Close()

	if r.Go("late", func(ctx context.Context) error { return nil }) {
		t.Fatal("closed runner accepted a task")
	}
}

func TestRunnerDropsWhenFull(t *testing.T) {
	r := New(Config{Workers: 1, Buffer: 1, EnqueueTimeout: 10 * time.Millisecond})

	started := make(chan struct{})
	release := make(chan struct{})
	r.Go("blocker", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	if !r.Go("queued", func(ctx context.Context) error { return nil }) {
		t.Fatal("first queued task should fit in the buffer")
	}
	if r.Go("overflow", func(ctx context.Context) error { return nil }) {
		t.Fatal("overflow task should be dropped")
	}

	close(release)
	r.Close()
}

func TestRunnerSurvivesErrorsAndPanics(t *testing.T) {
	r := New(Config{Workers: 1, Buffer: 4})

	r.Go("fails", func(ctx context.Context) error { return errors.New("insert failed") })
	r.Go("panics", func(ctx context.Context) error { panic("boom") })

	done := make(chan struct{})
	r.Go("after", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after a failing task")
	}
	r.Close()
}

func TestRunnerTaskTimeout(t *testing.T) {
	r := New(Config{Workers: 1, Buffer: 1, TaskTimeout: 20 * time.Millisecond})
	defer r.Close()

	errCh := make(chan error, 1)
	r.Go("slow", func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	})

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task context never expired")
	}
}

func TestPanicErrorMessage(t *testing.T) {
	err := &PanicError{Task: "insert", Value: "nil map"}
	if err.Error() != "task insert panicked: nil map" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
