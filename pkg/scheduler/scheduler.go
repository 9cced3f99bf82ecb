// Package scheduler runs the periodic gym sync on a cron spec.
package scheduler

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/robfig/cron/v3"

	"github.com/openmat/gymlink/pkg/gymsync"
)

// Config holds scheduler configuration.
type Config struct {
	Enabled  bool
	CronSpec string // standard 5-field spec, runs in server local time
}

// Scheduler triggers sync runs on a cron schedule. Ticks run in the
// background with a fresh context; an in-flight run is never cancelled
// by Stop.
type Scheduler struct {
	c      *cron.Cron
	cfg    Config
	logger ectologger.Logger
}

// New creates a scheduler that runs the orchestrator on each tick.
func New(cfg Config, orchestrator *gymsync.Orchestrator, logger ectologger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		c:      cron.New(),
		cfg:    cfg,
		logger: logger,
	}

	_, err := s.c.AddFunc(cfg.CronSpec, func() {
		ctx := context.Background()
		logger.WithContext(ctx).Info("Scheduler tick: starting sync run")
		report := orchestrator.SyncAll(ctx)
		logger.WithContext(ctx).WithFields(map[string]any{
			"sources": len(report.Sources),
			"errors":  report.HasErrors(),
		}).Info("Scheduled sync run finished")
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins firing ticks. A disabled scheduler stays idle.
func (s *Scheduler) Start() {
	if !s.cfg.Enabled {
		s.logger.Info("Scheduler disabled")
		return
	}
	s.logger.Infof("Starting scheduler (cron=%s)", s.cfg.CronSpec)
	s.c.Start()
}

// Stop stops firing new ticks.
func (s *Scheduler) Stop() {
	s.c.Stop()
}
