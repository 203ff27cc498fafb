package worker

import (
	"context"
	"sync"
	"time"
)

// ManualScheduler is a Scheduler for tests: tasks are recorded and only
// run when the test calls RunDue or RunAll.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []manualTask
	spawned int
}

type manualTask struct {
	at   time.Duration
	task func(ctx context.Context)
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) After(d time.Duration, task func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawned++
	s.pending = append(s.pending, manualTask{at: s.now + d, task: task})
}

// Advance moves the virtual clock forward and runs every task now due,
// in due order.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	s.mu.Unlock()
	return s.RunDue()
}

// RunDue runs tasks whose deadline has been reached and returns how many ran.
// Tasks scheduled by a running task are picked up if already due.
func (s *ManualScheduler) RunDue() int {
	ran := 0
	for {
		s.mu.Lock()
		idx := -1
		for i, t := range s.pending {
			if t.at <= s.now && (idx == -1 || t.at < s.pending[idx].at) {
				idx = i
			}
		}
		if idx == -1 {
			s.mu.Unlock()
			return ran
		}
		t := s.pending[idx]
		s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
		s.mu.Unlock()

		t.task(context.Background())
		ran++
	}
}

// Spawned returns how many tasks were ever scheduled.
func (s *ManualScheduler) Spawned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawned
}

// Elapsed returns the virtual time advanced so far.
func (s *ManualScheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns how many tasks have not run yet.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// NextDelay reports how far in the future the earliest pending task is.
func (s *ManualScheduler) NextDelay() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return 0, false
	}
	next := s.pending[0].at
	for _, t := range s.pending[1:] {
		if t.at < next {
			next = t.at
		}
	}
	return next - s.now, true
}

var _ Scheduler = (*ManualScheduler)(nil)
