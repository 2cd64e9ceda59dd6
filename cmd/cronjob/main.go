package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"condo-ledger-backend/internal/app"
	"condo-ledger-backend/internal/config"
	"condo-ledger-backend/internal/jobs"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository/postgres"
	"condo-ledger-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'mark-overdue-invoices', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Condo Ledger Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	db, err := app.OpenDatabase(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Services
	services := app.NewServices(postgres.NewStore(db), cfg)
	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Budget:         services.Budget,
		Invoice:        services.Invoice,
		Reconciliation: services.Reconciliation,
	}, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}

	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.", "jobs", cronScheduler.Entries())

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "refresh-budget-executions":
		jobRunner.RefreshBudgetExecutions()
	case "reconcile-pending-imports":
		jobRunner.ReconcilePendingImports()
	case "mark-overdue-invoices":
		jobRunner.MarkOverdueInvoices()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - refresh-budget-executions\n")
		fmt.Printf("  - reconcile-pending-imports\n")
		fmt.Printf("  - mark-overdue-invoices\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
