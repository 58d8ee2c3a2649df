package scheduler

import (
	"context"
	"testing"
	"time"
)

type recordingRunner struct {
	days   []time.Time
	limits []int
}

func (r *recordingRunner) RunAll(ctx context.Context, day time.Time, recordLimit int) error {
	r.days = append(r.days, day)
	r.limits = append(r.limits, recordLimit)
	return nil
}

func TestRunOnceUsesLocalRunner(t *testing.T) {
	runner := &recordingRunner{}

	s := New(nil, "0 6 * * *")
	s.SetLocalRunner(runner)

	day := time.Date(2025, 1, 15, 6, 0, 0, 0, time.UTC)
	s.runOnce(context.Background(), day)

	if len(runner.days) != 1 {
		t.Fatalf("runner invoked %d times, want 1", len(runner.days))
	}
	if !runner.days[0].Equal(day) {
		t.Errorf("runner day = %v, want %v", runner.days[0], day)
	}
	if runner.limits[0] != 0 {
		t.Errorf("record limit = %d, want 0 (unlimited)", runner.limits[0])
	}
}
