package work

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewWorkerPool(t *testing.T) {
	tests := []struct {
		name        string
		numWorkers  int
		channelSize int
		wantErr     error
	}{
		{"valid config", 2, 5, nil},
		{"zero workers", 0, 5, ErrInvalidWorkerCount},
		{"negative workers", -1, 5, ErrInvalidWorkerCount},
		{"zero channel size", 2, 0, ErrInvalidChannelSize},
		{"negative channel size", 2, -1, ErrInvalidChannelSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewWorkerPool[string](tt.numWorkers, tt.channelSize)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewWorkerPool() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && pool == nil {
				t.Error("expected a pool, got nil")
			}
		})
	}
}

func TestWorkerPoolBasicOperation(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](2, 5)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "test-pool")
	defer pool.Stop()

	var executedCount int64
	task, err := NewTask[string](
		func(ctx context.Context) (string, error) {
			atomic.AddInt64(&executedCount, 1)
			return "test result", nil
		},
		WithErrorHandler[string](func(err error) {
			t.Errorf("unexpected task error: %v", err)
		}),
		WithTimeout[string](5*time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := pool.AddTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	select {
	case result := <-pool.Results():
		if !result.IsSuccess() {
			t.Errorf("Task failed: %v", result.Error)
		}
		if result.Result != "test result" {
			t.Errorf("Expected 'test result', got '%s'", result.Result)
		}
		if atomic.LoadInt64(&executedCount) != 1 {
			t.Errorf("Expected 1 execution, got %d", executedCount)
		}
	case <-time.After(3 * time.Second):
		t.Error("Timeout waiting for result")
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[int](3, 10)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "concurrency-test-pool")
	defer pool.Stop()

	const numTasks = 10
	var completedTasks int64

	for i := 0; i < numTasks; i++ {
		taskNum := i
		task, err := NewTask[int](
			func(ctx context.Context) (int, error) {
				time.Sleep(50 * time.Millisecond)
				atomic.AddInt64(&completedTasks, 1)
				return taskNum * 2, nil
			},
			WithErrorHandler[int](func(err error) {
				t.Errorf("Task %d failed: %v", taskNum, err)
			}),
			WithTimeout[int](5*time.Second),
		)
		if err != nil {
			t.Fatal(err)
		}

		if err := pool.AddTask(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	results := make([]int, 0, numTasks)
	for i := 0; i < numTasks; i++ {
		select {
		case result := <-pool.Results():
			if !result.IsSuccess() {
				t.Errorf("Task failed: %v", result.Error)
			} else {
				results = append(results, result.Result)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Timeout waiting for results")
		}
	}

	if len(results) != numTasks {
		t.Errorf("Expected %d results, got %d", numTasks, len(results))
	}
	if atomic.LoadInt64(&completedTasks) != numTasks {
		t.Errorf("Expected %d completed tasks, got %d", numTasks, completedTasks)
	}
}

func TestWorkerPoolTimeout(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](1, 1)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "timeout-test-pool")
	defer pool.Stop()

	task, err := NewTask[string](
		func(ctx context.Context) (string, error) {
			select {
			case <-time.After(2 * time.Second):
				return "should not complete", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
		WithErrorHandler[string](func(err error) {}),
		WithTimeout[string](100*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := pool.AddTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	select {
	case result := <-pool.Results():
		if result.IsSuccess() {
			t.Error("Expected task to timeout")
		}
		if !errors.Is(result.Error, ErrTaskTimeout) {
			t.Errorf("Expected timeout error, got: %v", result.Error)
		}
	case <-time.After(3 * time.Second):
		t.Error("Timeout waiting for result")
	}
}

func TestWorkerPoolGracefulShutdown(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](2, 5)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "shutdown-test-pool")

	const numTasks = 3
	for i := 0; i < numTasks; i++ {
		taskNum := i
		task, err := NewTask[string](
			func(ctx context.Context) (string, error) {
				time.Sleep(100 * time.Millisecond)
				return fmt.Sprintf("task-%d", taskNum), nil
			},
			WithErrorHandler[string](func(err error) {}),
			WithTimeout[string](5*time.Second),
		)
		if err != nil {
			t.Fatal(err)
		}
		if err := pool.AddTask(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < numTasks; i++ {
		select {
		case result := <-pool.Results():
			if !result.IsSuccess() {
				t.Errorf("Task failed: %v", result.Error)
			}
		case <-time.After(3 * time.Second):
			t.Fatal("Timeout waiting for results")
		}
	}

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not complete in time")
	}

	if err := pool.AddTask(ctx, mustTask(t, "late")); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Expected ErrPoolStopped after Stop, got %v", err)
	}
}

func TestWorkerPoolStats(t *testing.T) {
	ctx := context.Background()
	pool, err := NewWorkerPool[string](2, 5)
	if err != nil {
		t.Fatal(err)
	}

	pool.Start(ctx, "stats-test-pool")
	defer pool.Stop()

	const numTasks = 4
	for i := 0; i < numTasks; i++ {
		if err := pool.AddTask(ctx, mustTask(t, fmt.Sprintf("task-%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < numTasks; i++ {
		select {
		case <-pool.Results():
		case <-time.After(3 * time.Second):
			t.Fatal("Timeout waiting for results")
		}
	}

	stats := pool.Stats()
	if stats.TasksCompleted != numTasks {
		t.Errorf("Expected %d completed tasks, got %d", numTasks, stats.TasksCompleted)
	}
	if stats.ActiveWorkers != 2 {
		t.Errorf("Expected 2 active workers, got %d", stats.ActiveWorkers)
	}
}

func TestTaskID(t *testing.T) {
	task, err := NewTask[string](
		func(ctx context.Context) (string, error) { return "ok", nil },
		WithID[string]("crawl-test"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if task.ExecutorID() != "crawl-test" {
		t.Errorf("Expected executor ID 'crawl-test', got %q", task.ExecutorID())
	}

	auto, err := NewTask[string](
		func(ctx context.Context) (string, error) { return "ok", nil },
	)
	if err != nil {
		t.Fatal(err)
	}
	if auto.ExecutorID() == "" {
		t.Error("Expected a generated executor ID")
	}
}

func mustTask(t *testing.T, result string) Executor[string] {
	t.Helper()
	task, err := NewTask[string](
		func(ctx context.Context) (string, error) {
			return result, nil
		},
		WithErrorHandler[string](func(err error) {}),
		WithTimeout[string](time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}
	return task
}
