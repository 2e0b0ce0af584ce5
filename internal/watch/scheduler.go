package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"tagsortd/internal/log"
	"tagsortd/pkg/types"
)

// State is the scheduler's position in its loop.
type State int

const (
	Idle State = iota
	Scanning
	Waiting
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Waiting:
		return "waiting"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Runner performs one scan cycle over the source directories.
type Runner interface {
	RunCycle(dirs []string) types.CycleReport
}

// Scheduler runs scan cycles one after another with a pause between them.
type Scheduler struct {
	runner   Runner
	dirs     []string
	interval time.Duration
	trigger  <-chan FileModification
	once     bool
	logger   *log.Logger

	mu    sync.RWMutex
	state State
	cycle int
	last  types.CycleReport
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTrigger ends a wait early when a file event arrives.
func WithTrigger(events <-chan FileModification) SchedulerOption {
	return func(s *Scheduler) { s.trigger = events }
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(l *log.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// Once makes Run return after a single cycle.
func Once(once bool) SchedulerOption {
	return func(s *Scheduler) { s.once = once }
}

// NewScheduler creates a scheduler that checks dirs every interval.
func NewScheduler(runner Runner, dirs []string, interval time.Duration, opts ...SchedulerOption) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("scheduler needs a runner")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("check interval must be positive, got %s", interval)
	}

	s := &Scheduler{
		runner:   runner,
		dirs:     dirs,
		interval: interval,
		logger:   log.Default(),
		state:    Idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run checks the directories until ctx is cancelled (or once, in Once mode).
// A cycle in progress always completes; cancellation is observed between
// cycles and during the wait. Run returns nil on a clean stop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle || s.cycle != 0 {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already %s", s.state)
	}
	s.mu.Unlock()
	defer s.setState(Stopped)

	s.logger.With(log.F("directories", s.dirs), log.F("interval", s.interval)).Info("Starting tagsortd")

	for {
		s.setState(Scanning)
		n := s.nextCycle()
		s.logger.Infof("Check #%d", n)

		report := s.runner.RunCycle(s.dirs)
		report.Cycle = n
		s.finish(report)

		if s.once {
			return nil
		}
		if ctx.Err() != nil {
			s.logger.Info("Stopping")
			return nil
		}

		s.setState(Waiting)
		if !s.wait(ctx) {
			s.logger.Info("Stopping")
			return nil
		}
	}
}

// wait pauses until the interval elapses, a trigger event arrives or ctx is
// done. It returns false on cancellation.
func (s *Scheduler) wait(ctx context.Context) bool {
	s.logger.Infof("Sleeping for %d seconds", int(s.interval.Round(time.Second)/time.Second))

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	trigger := s.trigger
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case mod, ok := <-trigger:
			if !ok {
				// watcher stopped; fall back to the timer
				trigger = nil
				continue
			}
			s.logger.With(log.F("op", mod.Op.String())).Debugf("Woken early by %s", filepath.Base(mod.Path))
			return true
		}
	}
}

func (s *Scheduler) finish(report types.CycleReport) {
	s.mu.Lock()
	s.last = report
	s.state = Idle
	s.mu.Unlock()

	fields := []log.Field{
		log.F("moved", report.Count(types.StatusMoved)),
		log.F("skipped", report.Count(types.StatusSkipped)),
		log.F("failed", report.Count(types.StatusFailed)),
	}
	if planned := report.Count(types.StatusPlanned); planned > 0 {
		fields = append(fields, log.F("planned", planned))
	}
	if len(report.MissingDirectories) > 0 {
		fields = append(fields, log.F("missing", report.MissingDirectories))
	}
	s.logger.With(fields...).Infof("Check #%d done in %s", report.Cycle, report.Duration().Round(time.Millisecond))
}

func (s *Scheduler) nextCycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle++
	return s.cycle
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// State returns the current state. Safe for concurrent use.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Cycle returns the number of cycles started so far.
func (s *Scheduler) Cycle() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycle
}

// LastReport returns the report of the most recent completed cycle.
func (s *Scheduler) LastReport() types.CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
