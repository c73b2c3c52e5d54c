package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler drives periodic full runs in serve mode: process all sources,
// regenerate the feed, then notify. Runs never overlap; everything inside
// one run stays sequential.
type Scheduler struct {
	runner     *Runner
	newNotify  func() *NotifyTask
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewScheduler creates a scheduler. newNotify may be nil when no webhook
// is configured.
func NewScheduler(runner *Runner, newNotify func() *NotifyTask, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:    runner,
		newNotify: newNotify,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.runOnce()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) runOnce() {
	if err := s.runner.Run(s.ctx); err != nil {
		slog.Error("Scheduled run failed", "error", err)
		return
	}

	if s.newNotify == nil {
		return
	}

	if err := s.newNotify().Execute(s.ctx); err != nil {
		slog.Error("Scheduled notification failed", "error", err)
	}
}
