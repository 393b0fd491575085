// Package scheduler wires up the cron job that periodically runs a full
// monitoring pass over the active company set.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/jsrothwell/job-monitor-sub000/internal/monitor"
	"github.com/jsrothwell/job-monitor-sub000/internal/store"
)

// Scheduler wraps robfig/cron and manages the monitoring loop.
type Scheduler struct {
	cron    *cron.Cron
	store   store.Store
	runner  *monitor.Runner
	budgets monitor.Budgets
	spec    string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(s store.Store, runner *monitor.Runner, budgets monitor.Budgets, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cron.DefaultLogger)),
		store:   s,
		runner:  runner,
		budgets: budgets,
		spec:    fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one pass
// immediately so state is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", s.spec)

	// Run immediately on startup (non-blocking)
	go s.runOnce(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// runOnce loads the active companies least-recently-checked first and runs
// one monitoring pass.
func (s *Scheduler) runOnce(ctx context.Context) {
	log.Println("[scheduler] Monitoring pass started")

	companies, err := s.store.ListActiveCompanies(ctx, store.OrderLeastRecentlyChecked)
	if err != nil {
		log.Printf("[scheduler] ListActiveCompanies error: %v", err)
		return
	}

	summary := s.runner.Run(ctx, companies, s.budgets)
	if summary.Message != "" {
		log.Printf("[scheduler] %s", summary.Message)
	}
}
