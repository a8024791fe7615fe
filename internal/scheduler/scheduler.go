// Package scheduler keeps the process resident and fires collection
// runs on a cron schedule.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/researchartifacts/aestats/internal/logger"
)

// Job is one scheduled collection run.
type Job func(ctx context.Context) error

// Scheduler triggers a job per a cron expression. Triggers never
// overlap: one that fires while the previous run is still going is
// dropped, the next one picks up the work.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	job     Job
	running atomic.Bool
}

// Parse validates a cron expression: standard 5-field syntax plus
// descriptors like @daily and @every 6h.
func Parse(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}

func New(spec string, job Job) (*Scheduler, error) {
	if err := Parse(spec); err != nil {
		return nil, err
	}
	return &Scheduler{cron: cron.New(), spec: spec, job: job}, nil
}

// Run blocks until ctx is canceled, executing the job on every trigger.
// A failing run is logged and the schedule keeps going; cancellation
// waits for an in-flight run to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runOnce(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("Scheduler started (%s), waiting for triggers", s.spec)

	<-ctx.Done()
	logger.Info("Scheduler stopping")
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		logger.Warn("Previous run still in progress, skipping this trigger")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	logger.Info("Scheduled run starting")
	if err := s.job(ctx); err != nil {
		logger.LogError("Scheduled run failed: %v", err)
		return
	}
	logger.Success("Scheduled run finished in %s", time.Since(start).Round(time.Second))
}
