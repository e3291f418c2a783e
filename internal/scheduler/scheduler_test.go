package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := newScheduler(Config{Workers: 2})
	t.Cleanup(s.Shutdown)
	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

func TestScheduleFixedRate_ExecutesRepeatedly(t *testing.T) {
	s := newTestScheduler(t)

	var runs atomic.Int32
	handle, err := s.ScheduleFixedRate(func() { runs.Add(1) }, 0, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("ScheduleFixedRate failed: %v", err)
	}
	defer handle.Cancel()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 3 })
}

func TestScheduleFixedRate_RejectsNonPositivePeriod(t *testing.T) {
	s := newTestScheduler(t)

	if _, err := s.ScheduleFixedRate(func() {}, 0, 0); err == nil {
		t.Error("Expected error for zero period")
	}
	if _, err := s.ScheduleFixedRate(func() {}, 0, -time.Second); err == nil {
		t.Error("Expected error for negative period")
	}
}

func TestScheduleFixedDelay_WaitsForCompletion(t *testing.T) {
	s := newTestScheduler(t)

	var running atomic.Int32
	var overlapped atomic.Bool
	handle, err := s.ScheduleFixedDelay(func() {
		if running.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
	}, 0, time.Millisecond)
	if err != nil {
		t.Fatalf("ScheduleFixedDelay failed: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	handle.Cancel()

	if overlapped.Load() {
		t.Error("Fixed-delay executions overlapped")
	}
}

func TestHandle_CancelStopsFutureExecutions(t *testing.T) {
	s := newTestScheduler(t)

	var runs atomic.Int32
	handle, err := s.ScheduleFixedRate(func() { runs.Add(1) }, 0, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("ScheduleFixedRate failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return runs.Load() >= 1 })
	handle.Cancel()
	handle.Cancel() // idempotent

	settled := runs.Load()
	time.Sleep(30 * time.Millisecond)
	// One activation may already have been queued before the cancel landed.
	if runs.Load() > settled+1 {
		t.Errorf("Task kept running after cancel: %d -> %d", settled, runs.Load())
	}
}

func TestScheduleCron_RejectsInvalidExpression(t *testing.T) {
	s := newTestScheduler(t)

	if _, err := s.ScheduleCron(func() {}, "not a cron line", time.UTC); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
	if _, err := s.ScheduleCron(func() {}, "* * * *", time.UTC); err == nil {
		t.Error("Expected error for four-field expression")
	}
}

func TestScheduleCron_AcceptsStandardExpression(t *testing.T) {
	s := newTestScheduler(t)

	handle, err := s.ScheduleCron(func() {}, "*/5 * * * *", time.UTC)
	if err != nil {
		t.Fatalf("ScheduleCron failed: %v", err)
	}
	if handle.ID() == "" {
		t.Error("Expected a non-empty handle ID")
	}
	handle.Cancel()
}

func TestRunSafe_PanicDoesNotStopSchedule(t *testing.T) {
	s := newTestScheduler(t)

	var runs atomic.Int32
	handle, err := s.ScheduleFixedRate(func() {
		runs.Add(1)
		panic("task bug")
	}, 0, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("ScheduleFixedRate failed: %v", err)
	}
	defer handle.Cancel()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 2 })
}

func TestShutdown_RejectsFurtherScheduling(t *testing.T) {
	s := newScheduler(Config{Workers: 1})
	s.Shutdown()

	if _, err := s.ScheduleFixedRate(func() {}, 0, time.Second); !errors.Is(err, ErrShutDown) {
		t.Errorf("Expected ErrShutDown, got %v", err)
	}
	if _, err := s.ScheduleFixedDelay(func() {}, 0, time.Second); !errors.Is(err, ErrShutDown) {
		t.Errorf("Expected ErrShutDown, got %v", err)
	}
	if _, err := s.ScheduleCron(func() {}, "* * * * *", time.UTC); !errors.Is(err, ErrShutDown) {
		t.Errorf("Expected ErrShutDown, got %v", err)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	s := newScheduler(Config{Workers: 1})
	s.Shutdown()
	s.Shutdown()
}

func TestShutdown_WaitsForInFlightExecution(t *testing.T) {
	s := newScheduler(Config{Workers: 1})

	started := make(chan struct{})
	var finished atomic.Bool
	_, err := s.ScheduleFixedRate(func() {
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	}, 0, time.Hour)
	if err != nil {
		t.Fatalf("ScheduleFixedRate failed: %v", err)
	}

	<-started
	s.Shutdown()

	if !finished.Load() {
		t.Error("Shutdown returned before the in-flight execution finished")
	}
}

func TestGlobal_GetReturnsSameInstance(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if Get() != Get() {
		t.Error("Expected Get to return the same instance")
	}
}

func TestGlobal_InitFailsWhenAlreadyCreated(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Get()
	if _, err := Init(Config{Workers: 1}); err == nil {
		t.Error("Expected Init to fail after Get")
	}
}

func TestGlobal_InitConfiguresTheSharedInstance(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	s, err := Init(Config{Workers: 1})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Get() != s {
		t.Error("Expected Get to return the Init-configured instance")
	}

	var runs atomic.Int32
	handle, err := s.ScheduleFixedRate(func() { runs.Add(1) }, 0, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("ScheduleFixedRate failed: %v", err)
	}
	defer handle.Cancel()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 1 })
}

func TestGlobal_ResetYieldsFreshInstance(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	first := Get()
	Reset()
	second := Get()

	if first == second {
		t.Error("Expected a fresh instance after Reset")
	}
	if _, err := first.ScheduleFixedRate(func() {}, 0, time.Second); !errors.Is(err, ErrShutDown) {
		t.Errorf("Expected the old instance to be shut down, got %v", err)
	}
	if _, err := second.ScheduleFixedRate(func() {}, 0, time.Hour); err != nil {
		t.Errorf("Expected the fresh instance to accept work, got %v", err)
	}
}
