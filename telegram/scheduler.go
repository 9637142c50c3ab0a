package telegram

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/v-v-vishnevskiy/aio-telegram-bot/internal/utils"
)

var ErrSchedulerClosed = errors.New("[SchedulerClosed] scheduler is closed")

// Scheduler runs dispatch jobs in the background. At most limit jobs run at
// once and at most pending more wait for a slot; Spawn blocks beyond that.
type Scheduler struct {
	slots chan struct{}
	sem   chan struct{}
	wg    sync.WaitGroup
	log   *utils.Logger

	mu     sync.RWMutex
	closed bool
}

func NewScheduler(limit, pending int, log *utils.Logger) *Scheduler {
	if limit <= 0 {
		limit = DefaultSchedulerLimit
	}
	if pending < 0 {
		pending = 0
	}
	if log == nil {
		log = utils.NewLogger("aiotgbot scheduler")
	}
	return &Scheduler{
		slots: make(chan struct{}, limit+pending),
		sem:   make(chan struct{}, limit),
		log:   log,
	}
}

// Spawn starts job in the background and returns without waiting for it.
// ctx only bounds the wait for a free slot; job gets its own context.
func (s *Scheduler) Spawn(ctx context.Context, name string, job func(ctx context.Context) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSchedulerClosed
	}

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for a scheduler slot")
	}

	s.wg.Add(1)
	go s.run(context.WithoutCancel(ctx), name, job)
	return nil
}

func (s *Scheduler) run(ctx context.Context, name string, job func(ctx context.Context) error) {
	defer s.wg.Done()
	defer func() { <-s.slots }()

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	defer func() {
		if r := recover(); r != nil {
			s.log.Panic(r, "[Handler] %s panicked", name)
		}
	}()

	if err := job(ctx); err != nil {
		s.log.WithError(err).Error("[Handler] %s", name)
	}
}

// Active returns the number of spawned jobs that have not finished, queued ones included.
func (s *Scheduler) Active() int {
	return len(s.slots)
}

// Wait blocks until every spawned job has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close rejects new jobs and waits for the spawned ones.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}
