// Package scheduler runs the periodic automatic catalog refresh.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fontpeek/fontpeek/internal/config"
)

// RefreshEnqueuer hands refresh work to the job queue.
type RefreshEnqueuer interface {
	EnqueueRefresh(trigger string) error
}

// AutoRefreshScheduler enqueues a catalog refresh job on a cron schedule.
type AutoRefreshScheduler struct {
	enqueuer RefreshEnqueuer
	config   config.AutoRefresh

	runner     *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewAutoRefreshScheduler creates a new scheduler instance.
func NewAutoRefreshScheduler(enqueuer RefreshEnqueuer, cfg config.AutoRefresh) *AutoRefreshScheduler {
	return &AutoRefreshScheduler{
		enqueuer: enqueuer,
		config:   cfg,
		runner:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if auto refresh is enabled.
func (s *AutoRefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("Auto refresh scheduler: disabled")
		return nil
	}

	if s.config.Schedule == "" {
		log.Printf("Auto refresh scheduler: no schedule configured, skipping")
		return nil
	}

	entryID, err := s.runner.AddFunc(s.config.Schedule, func() {
		s.runRefresh()
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.config.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.runner.Start()
	s.isRunning = true

	log.Printf("Auto refresh scheduler: started with schedule '%s'. Next run: %v",
		s.config.Schedule, s.nextRunLocked())

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *AutoRefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new runs and wait for an in-flight one to complete.
	ctx := s.runner.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Auto refresh scheduler: stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *AutoRefreshScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next refresh will be enqueued.
func (s *AutoRefreshScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	return s.nextRunLocked()
}

func (s *AutoRefreshScheduler) nextRunLocked() *time.Time {
	for _, entry := range s.runner.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runRefresh enqueues one refresh job. The queue itself keeps overlapping
// refreshes from running: a single worker processes them sequentially.
func (s *AutoRefreshScheduler) runRefresh() {
	if err := s.enqueuer.EnqueueRefresh("scheduled"); err != nil {
		log.Printf("Auto refresh: failed to enqueue: %v", err)
		return
	}
	log.Printf("Auto refresh: catalog refresh enqueued")
}
