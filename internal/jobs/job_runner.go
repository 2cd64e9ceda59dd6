package jobs

import (
	"context"
	"time"

	"condo-ledger-backend/internal/config"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	now      func() time.Time
	timeout  time.Duration
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Budget         service.BudgetService
	Invoice        service.InvoiceService
	Reconciliation service.ReconciliationService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		now:      time.Now,
		timeout:  10 * time.Minute,
	}
}

// Config returns the configuration the scheduler reads cron specs from.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and a deadline
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	log := logger.WithJob(jobName)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	start := jr.now()
	log.Info("Starting job")
	if err := jobFunc(ctx); err != nil {
		log.Error("Job failed", "error", err, "duration", time.Since(start))
		return
	}
	log.Info("Job completed", "duration", time.Since(start))
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ReconcilePendingImports()
	jr.MarkOverdueInvoices()
	jr.RefreshBudgetExecutions()
}
