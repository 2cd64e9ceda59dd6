// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"condo-ledger-backend/internal/config"
	"condo-ledger-backend/internal/events"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository/postgres"
	"condo-ledger-backend/internal/service"

	_ "github.com/lib/pq"
)

// Services is the full service graph shared by the server, the cron runner
// and the import CLI.
type Services struct {
	Chart          service.ChartService
	Ledger         service.LedgerService
	Mapping        service.AccountMappingService
	Invoice        service.InvoiceService
	Expense        service.ExpenseService
	Payment        service.PaymentService
	Budget         service.BudgetService
	Reconciliation service.ReconciliationService
	Bus            *events.Bus
}

// OpenDatabase connects and pings PostgreSQL.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established", "host", cfg.Database.Host, "database", cfg.Database.Database)
	return db, nil
}

// NewServices builds every service on one store. Budget executions follow
// postings through the event bus.
func NewServices(store *postgres.Store, cfg *config.Config) *Services {
	bus := events.NewBus()
	numberer := service.NewNumberer(cfg.Ledger.SequenceMaxAttempts, cfg.Ledger.SequenceBackoff())
	journal := service.NewJournal(numberer, service.NewIntegrityValidator(), bus)

	svc := &Services{
		Chart:          service.NewChartService(store),
		Ledger:         service.NewLedgerService(store, journal),
		Mapping:        service.NewAccountMappingService(store),
		Invoice:        service.NewInvoiceService(store, journal),
		Expense:        service.NewExpenseService(store, journal),
		Payment:        service.NewPaymentService(store, journal),
		Budget:         service.NewBudgetService(store),
		Reconciliation: service.NewReconciliationService(store, journal),
		Bus:            bus,
	}
	bus.OnTransactionPosted("budget_execution_refresh", svc.Budget.HandleTransactionPosted)
	return svc
}
