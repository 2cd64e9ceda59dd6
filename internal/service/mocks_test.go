package service

import (
	"context"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockSequenceRepo
type MockSequenceRepo struct {
	mock.Mock
}

func (m *MockSequenceRepo) Next(ctx context.Context, scopeID int64, key string) (int, error) {
	args := m.Called(ctx, scopeID, key)
	return args.Int(0), args.Error(1)
}
func (m *MockSequenceRepo) NumberExists(ctx context.Context, kind domain.DocumentKind, scopeID int64, number string) (bool, error) {
	args := m.Called(ctx, kind, scopeID, number)
	return args.Bool(0), args.Error(1)
}

// MockImportRowRepo
type MockImportRowRepo struct {
	mock.Mock
}

func (m *MockImportRowRepo) Create(ctx context.Context, row *domain.ImportRow) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}
func (m *MockImportRowRepo) GetByID(ctx context.Context, id int64) (*domain.ImportRow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportRow), args.Error(1)
}
func (m *MockImportRowRepo) GetForUpdate(ctx context.Context, id int64) (*domain.ImportRow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImportRow), args.Error(1)
}
func (m *MockImportRowRepo) Update(ctx context.Context, row *domain.ImportRow) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}
func (m *MockImportRowRepo) ListByBatch(ctx context.Context, batchID string) ([]domain.ImportRow, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]domain.ImportRow), args.Error(1)
}
func (m *MockImportRowRepo) ListPending(ctx context.Context, limit int) ([]domain.ImportRow, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.ImportRow), args.Error(1)
}

// MockDirectoryRepo
type MockDirectoryRepo struct {
	mock.Mock
}

func (m *MockDirectoryRepo) GetApartment(ctx context.Context, id int64) (*domain.Apartment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Apartment), args.Error(1)
}
func (m *MockDirectoryRepo) ListApartmentsByNumber(ctx context.Context, scopeID int64, number string) ([]domain.Apartment, error) {
	args := m.Called(ctx, scopeID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Apartment), args.Error(1)
}
func (m *MockDirectoryRepo) FindActiveOwnerByDocument(ctx context.Context, scopeID int64, normalizedDocument string) (*domain.Resident, error) {
	args := m.Called(ctx, scopeID, normalizedDocument)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resident), args.Error(1)
}

// mockUoW runs fn against whatever repositories the test wired in.
type mockUoW struct {
	repos *repository.Repositories
}

func (u *mockUoW) Do(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	return fn(ctx, u.repos)
}
