package application

import (
	"context"
	"fmt"
	"time"

	"broadcaster/models"
	"broadcaster/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// StatsRecorder receives each system stats snapshot
type StatsRecorder interface {
	RecordSystemStats(stats *models.SystemStats)
}

// StatsReporterWorker periodically logs and exports the system rollup
type StatsReporterWorker struct {
	statsService service.StatsService
	recorder     StatsRecorder
	timeout      time.Duration
}

// NewStatsReporterWorker creates a new stats reporter. recorder may be nil.
func NewStatsReporterWorker(statsService service.StatsService, recorder StatsRecorder) *StatsReporterWorker {
	return &StatsReporterWorker{
		statsService: statsService,
		recorder:     recorder,
		timeout:      30 * time.Second,
	}
}

// Start schedules the report on the given cron spec and runs it once immediately.
// The returned function stops the scheduler and waits for a running report.
func (w *StatsReporterWorker) Start(ctx context.Context, schedule string) (func(), error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.StandardLogger()))))

	if _, err := c.AddFunc(schedule, func() { w.report(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}

	go w.report(ctx)
	c.Start()

	log.WithField("schedule", schedule).Info("Stats reporter started")

	return func() {
		<-c.Stop().Done()
		log.Info("Stats reporter stopped")
	}, nil
}

// report gathers one snapshot. Failures are logged and the next tick retries.
func (w *StatsReporterWorker) report(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	stats, err := w.statsService.SystemStats(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to collect system stats")
		return
	}

	if w.recorder != nil {
		w.recorder.RecordSystemStats(stats)
	}

	log.WithFields(log.Fields{
		"users":        stats.TotalUsers,
		"transactions": stats.TotalTransactions,
		"broadcasts":   stats.TotalBroadcasts,
		"credits":      stats.TotalCreditsInCirculation,
	}).Info("System stats")
}
