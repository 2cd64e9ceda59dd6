package http

import (
	"context"

	"condo-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockChartService
type MockChartService struct {
	mock.Mock
}

func (m *MockChartService) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockChartService) MoveAccount(ctx context.Context, accountID int64, newParentID *int64, newCode string) (*domain.Account, error) {
	args := m.Called(ctx, accountID, newParentID, newCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockChartService) DeactivateAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockChartService) GetBalance(ctx context.Context, accountID int64, period domain.DateRange) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, period)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockChartService) Ancestors(ctx context.Context, accountID int64) ([]domain.Account, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]domain.Account), args.Error(1)
}
func (m *MockChartService) Descendants(ctx context.Context, accountID int64) ([]domain.Account, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]domain.Account), args.Error(1)
}
func (m *MockChartService) ListAccounts(ctx context.Context, scopeID int64) ([]domain.Account, error) {
	args := m.Called(ctx, scopeID)
	return args.Get(0).([]domain.Account), args.Error(1)
}

// MockReconciliationService
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) IngestBatch(ctx context.Context, scopeID int64, rows []domain.ImportRow) (string, []domain.ImportRow, error) {
	args := m.Called(ctx, scopeID, rows)
	return args.String(0), args.Get(1).([]domain.ImportRow), args.Error(2)
}
func (m *MockReconciliationService) AttemptAutomaticReconciliation(ctx context.Context, rowID int64) (*domain.ImportRow, error) {
	args := m.Called(ctx, rowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportRow), args.Error(1)
}
func (m *MockReconciliationService) ReconcileBatch(ctx context.Context, batchID string) (*domain.ImportBatchSummary, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportBatchSummary), args.Error(1)
}
func (m *MockReconciliationService) ReconcilePending(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}
func (m *MockReconciliationService) AssignApartment(ctx context.Context, actorID, rowID, apartmentID int64, notes string) (*domain.ImportRow, error) {
	args := m.Called(ctx, actorID, rowID, apartmentID, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportRow), args.Error(1)
}
func (m *MockReconciliationService) RejectRow(ctx context.Context, actorID, rowID int64, reason string) (*domain.ImportRow, error) {
	args := m.Called(ctx, actorID, rowID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportRow), args.Error(1)
}
func (m *MockReconciliationService) CreatePayment(ctx context.Context, actorID, rowID int64, method domain.PaymentMethod) (*domain.Payment, []domain.PaymentApplication, error) {
	args := m.Called(ctx, actorID, rowID, method)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Payment), args.Get(1).([]domain.PaymentApplication), args.Error(2)
}
func (m *MockReconciliationService) BatchSummary(ctx context.Context, batchID string) (*domain.ImportBatchSummary, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportBatchSummary), args.Error(1)
}
func (m *MockReconciliationService) BatchRows(ctx context.Context, batchID string) ([]domain.ImportRow, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]domain.ImportRow), args.Error(1)
}
