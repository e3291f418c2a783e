// Package scheduler provides the process-wide task scheduling facility.
// It is deliberately explicit global state: Get lazily creates the
// singleton, Shutdown drains it, and Reset (tests only) discards it so the
// next Get starts fresh.
package scheduler

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/0xsj/go-loom/internal/lib/logger"
)

// ErrShutDown is returned from all scheduling calls after Shutdown. Fatal
// and non-retryable; a fresh scheduler requires Reset.
var ErrShutDown = errors.New("scheduler has been shut down")

// Task is one scheduled unit of work. A panicking execution is caught and
// logged; the schedule continues.
type Task func()

type Config struct {
	// Workers is the fixed size of the execution pool. Defaults to
	// max(2, NumCPU/2).
	Workers int
	Log     logger.Logger
}

func defaultConfig() Config {
	return Config{}
}

var (
	globalMu sync.Mutex
	global   *Scheduler
)

// Get returns the process-wide scheduler, creating it with defaults on
// first access.
func Get() *Scheduler {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global == nil {
		global = newScheduler(defaultConfig())
	}
	return global
}

// Init creates the process-wide scheduler with an explicit configuration.
// It fails if the singleton already exists.
func Init(cfg Config) (*Scheduler, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return nil, errors.New("scheduler already initialized")
	}
	global = newScheduler(cfg)
	return global, nil
}

// Reset discards the singleton so the next Get creates a fresh instance.
// An existing instance is shut down first. Test use only.
func Reset() {
	globalMu.Lock()
	existing := global
	global = nil
	globalMu.Unlock()

	if existing != nil {
		existing.Shutdown()
	}
}

// Scheduler runs periodic and cron tasks on a fixed-size worker pool.
// Cancellation is cooperative: canceling a handle stops future executions
// but never interrupts one already running.
type Scheduler struct {
	log   logger.Logger
	tasks chan Task
	quit  chan struct{}

	workersWG sync.WaitGroup
	loopsWG   sync.WaitGroup

	mu   sync.Mutex
	down bool
}

func newScheduler(cfg Config) *Scheduler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = max(2, runtime.NumCPU()/2)
	}
	log := cfg.Log
	if log == nil {
		log = logger.Discard()
	}

	s := &Scheduler{
		log:   log,
		tasks: make(chan Task, workers*4),
		quit:  make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		s.workersWG.Add(1)
		go s.worker()
	}

	s.log.Debug("Scheduler started", logger.Int("workers", workers))
	return s
}

// Handle cancels a schedule.
type Handle struct {
	id     string
	once   sync.Once
	cancel chan struct{}
}

func newHandle() *Handle {
	return &Handle{id: uuid.NewString(), cancel: make(chan struct{})}
}

// ID returns the schedule's identifier.
func (h *Handle) ID() string {
	return h.id
}

// Cancel stops all future executions. Idempotent.
func (h *Handle) Cancel() {
	h.once.Do(func() { close(h.cancel) })
}

// ScheduleFixedRate runs task every period, measured from one activation to
// the next regardless of run duration.
func (s *Scheduler) ScheduleFixedRate(task Task, initialDelay, period time.Duration) (*Handle, error) {
	if period <= 0 {
		return nil, fmt.Errorf("fixed-rate period must be positive, got %v", period)
	}

	h := newHandle()
	if err := s.spawn(func() { s.fixedRateLoop(h, task, initialDelay, period) }); err != nil {
		return nil, err
	}
	return h, nil
}

// ScheduleFixedDelay runs task with a fixed delay between the completion of
// one execution and the start of the next.
func (s *Scheduler) ScheduleFixedDelay(task Task, initialDelay, delay time.Duration) (*Handle, error) {
	if delay <= 0 {
		return nil, fmt.Errorf("fixed delay must be positive, got %v", delay)
	}

	h := newHandle()
	if err := s.spawn(func() { s.fixedDelayLoop(h, task, initialDelay, delay) }); err != nil {
		return nil, err
	}
	return h, nil
}

// ScheduleCron runs task on a standard five-field cron expression in the
// given timezone (nil means the system local zone).
func (s *Scheduler) ScheduleCron(task Task, expression string, tz *time.Location) (*Handle, error) {
	sched, err := cron.ParseStandard(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}
	if tz == nil {
		tz = time.Local
	}

	h := newHandle()
	if err := s.spawn(func() { s.cronLoop(h, task, sched, tz) }); err != nil {
		return nil, err
	}
	return h, nil
}

// spawn starts a timer loop, rejecting it once the scheduler is down. The
// down check and the WaitGroup add share the mutex so Shutdown never waits
// on a loop it did not see.
func (s *Scheduler) spawn(loop func()) error {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		return ErrShutDown
	}
	s.loopsWG.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.loopsWG.Done()
		loop()
	}()
	return nil
}

func (s *Scheduler) fixedRateLoop(h *Handle, task Task, initialDelay, period time.Duration) {
	next := time.Now().Add(initialDelay)
	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			s.submit(task)
			next = next.Add(period)
			timer.Reset(max(time.Until(next), 0))
		case <-h.cancel:
			return
		case <-s.quit:
			return
		}
	}
}

func (s *Scheduler) fixedDelayLoop(h *Handle, task Task, initialDelay, delay time.Duration) {
	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			done := make(chan struct{})
			s.submit(func() {
				defer close(done)
				task()
			})
			select {
			case <-done:
			case <-s.quit:
				return
			}
			timer.Reset(delay)
		case <-h.cancel:
			return
		case <-s.quit:
			return
		}
	}
}

func (s *Scheduler) cronLoop(h *Handle, task Task, sched cron.Schedule, tz *time.Location) {
	for {
		next := sched.Next(time.Now().In(tz))
		if next.IsZero() {
			return
		}
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			s.submit(task)
		case <-h.cancel:
			timer.Stop()
			return
		case <-s.quit:
			timer.Stop()
			return
		}
	}
}

// submit hands a task to the worker pool. During shutdown the task is
// dropped; in-flight executions still drain.
func (s *Scheduler) submit(task Task) {
	select {
	case s.tasks <- task:
	case <-s.quit:
	}
}

func (s *Scheduler) worker() {
	defer s.workersWG.Done()
	for task := range s.tasks {
		s.runSafe(task)
	}
}

func (s *Scheduler) runSafe(task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Scheduled task panicked", logger.Err(fmt.Errorf("%v", r)))
		}
	}()
	task()
}

// Shutdown stops all timer loops, lets in-flight executions finish, then
// terminates the pool. Subsequent scheduling calls fail with ErrShutDown.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		return
	}
	s.down = true
	s.mu.Unlock()

	close(s.quit)
	s.loopsWG.Wait()
	close(s.tasks)
	s.workersWG.Wait()

	s.log.Debug("Scheduler shut down")
}
