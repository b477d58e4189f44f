package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// NotificationJobs is the work the scheduler triggers.
type NotificationJobs interface {
	Scan(ctx context.Context) (ScanResult, error)
	SendPending(ctx context.Context, limit int) (BatchResult, error)
}

// Scheduler runs the daily notification scan and the periodic dispatch.
type Scheduler struct {
	cron      *cron.Cron
	jobs      NotificationJobs
	batchSize int
	timeout   time.Duration
	logger    *zap.Logger
}

func NewScheduler(jobs NotificationJobs, scanSpec, dispatchSpec string, batchSize int, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		jobs:      jobs,
		batchSize: batchSize,
		timeout:   10 * time.Minute,
		logger:    logger,
	}
	if _, err := s.cron.AddFunc(scanSpec, s.RunScan); err != nil {
		return nil, fmt.Errorf("schedule scan %q: %w", scanSpec, err)
	}
	if _, err := s.cron.AddFunc(dispatchSpec, s.RunDispatch); err != nil {
		return nil, fmt.Errorf("schedule dispatch %q: %w", dispatchSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("notification scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop halts scheduling and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) RunScan() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.jobs.Scan(ctx)
	if err != nil {
		s.logger.Error("notification scan failed", zap.Error(err))
		return
	}
	s.logger.Info("notification scan completed",
		zap.Int("reminders", result.Reminders),
		zap.Int("alerts", result.Alerts),
		zap.Bool("skipped", result.Skipped))
}

func (s *Scheduler) RunDispatch() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.jobs.SendPending(ctx, s.batchSize); err != nil {
		s.logger.Error("notification dispatch failed", zap.Error(err))
	}
}
