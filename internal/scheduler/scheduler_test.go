package scheduler

import (
	"context"
	"errors"
	"testing"
)

func TestNewCrontabJob(t *testing.T) {
	s := New()
	defer s.Stop()

	s.NewCrontabJob("noop", func(ctx context.Context) error { return nil }, "0 3 * * *", false)
}

func TestTaskWithRecoverRunsTask(t *testing.T) {
	s := New()
	defer s.Stop()

	called := false
	task := s.taskWithRecover(func(ctx context.Context) error {
		called = true
		return nil
	}, "ok job")

	task(context.Background())

	if !called {
		t.Fatalf("task body was not called")
	}
}

func TestTaskWithRecoverSwallowsPanic(t *testing.T) {
	s := New()
	defer s.Stop()

	task := s.taskWithRecover(func(ctx context.Context) error {
		panic("boom")
	}, "panicking job")

	// must not propagate the panic
	task(context.Background())
}

func TestTaskWithRecoverOnError(t *testing.T) {
	s := New()
	defer s.Stop()

	task := s.taskWithRecover(func(ctx context.Context) error {
		return errors.New("job error")
	}, "failing job")

	task(context.Background())
}
