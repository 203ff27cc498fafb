package worker

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs one-shot delayed tasks. Handles are never returned:
// nothing in the bot cancels a settling timer or a deletion timer once
// it has been started.
type Scheduler interface {
	After(d time.Duration, task func(ctx context.Context))
}

// AfterFuncScheduler is the production Scheduler backed by time.AfterFunc.
//
// Tasks receive the scheduler's base context, so cancelling it (on
// shutdown) aborts in-flight network calls. Timers that have not fired
// yet are simply abandoned with the process.
type AfterFuncScheduler struct {
	ctx context.Context

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewAfterFuncScheduler(ctx context.Context) *AfterFuncScheduler {
	return &AfterFuncScheduler{ctx: ctx}
}

func (s *AfterFuncScheduler) After(d time.Duration, task func(ctx context.Context)) {
	time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.closed || s.ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()

		defer s.wg.Done()
		task(s.ctx)
	})
}

// Wait stops new tasks from starting and blocks until every task that
// has already started returns. Call it after cancelling the base context.
func (s *AfterFuncScheduler) Wait() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

var _ Scheduler = (*AfterFuncScheduler)(nil)
