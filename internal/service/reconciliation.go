package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type reconciliationService struct {
	uow    repository.UnitOfWork
	engine *paymentEngine
}

func NewReconciliationService(uow repository.UnitOfWork, journal *Journal) ReconciliationService {
	return &reconciliationService{uow: uow, engine: &paymentEngine{journal: journal}}
}

// IngestBatch stores every row as pending under a fresh batch id. A malformed
// row fails the whole batch.
func (s *reconciliationService) IngestBatch(ctx context.Context, scopeID int64, rows []domain.ImportRow) (string, []domain.ImportRow, error) {
	logger.EnterMethod("reconciliationService.IngestBatch", "scopeID", scopeID, "rows", len(rows))

	if len(rows) == 0 {
		return "", nil, domain.NewValidationError("rows", "batch is empty")
	}
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return "", nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	batchID := uuid.NewString()
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, scopeID); err != nil {
			return err
		}
		for i := range rows {
			row := &rows[i]
			row.ScopeID = scopeID
			row.BatchID = batchID
			row.Status = domain.ReconciliationPending
			row.MatchType = domain.MatchNone
			if err := repos.Imports.Create(ctx, row); err != nil {
				return fmt.Errorf("failed to store row %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("reconciliationService.IngestBatch", err, "scopeID", scopeID)
		return "", nil, err
	}

	logger.WithScope(scopeID).Info("Bank import batch stored", "batchID", batchID, "rows", len(rows))
	logger.ExitMethod("reconciliationService.IngestBatch", "batchID", batchID, "rows", len(rows))
	return batchID, rows, nil
}

// match tries the reference number as an apartment number first, then the
// originator tax id against active owners. No match is not an error: the row
// goes to manual review with a note. A reference naming apartments in several
// towers counts as no match.
func (s *reconciliationService) match(ctx context.Context, repos *repository.Repositories, row *domain.ImportRow) error {
	if row.Status != domain.ReconciliationPending {
		return &domain.InvalidStateError{Entity: "import row", ID: row.ID, State: string(row.Status), Operation: "reconcile"}
	}

	var ambiguity string
	reference := strings.TrimSpace(row.ReferenceNumber)
	if reference != "" {
		candidates, err := repos.Directory.ListApartmentsByNumber(ctx, row.ScopeID, reference)
		if err != nil {
			return err
		}
		apt, err := domain.MatchApartmentReference(candidates, reference)
		switch {
		case err == nil:
			row.Status = domain.ReconciliationMatched
			row.ApartmentID = &apt.ID
			row.MatchType = domain.MatchApartmentNumber
			row.MatchNotes = fmt.Sprintf("Reference %q matches apartment %s", reference, apt.Code())
			return repos.Imports.Update(ctx, row)
		case errors.Is(err, domain.ErrAmbiguousApartment):
			ambiguity = ambiguousNote(reference, candidates)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
	}

	taxID := domain.NormalizeTaxID(row.OriginatorTaxID)
	if taxID != "" {
		owner, err := repos.Directory.FindActiveOwnerByDocument(ctx, row.ScopeID, taxID)
		switch {
		case err == nil:
			row.Status = domain.ReconciliationMatched
			row.ApartmentID = &owner.ApartmentID
			row.MatchType = domain.MatchOwnerTaxID
			row.MatchNotes = fmt.Sprintf("Originator tax id %s belongs to owner %s", taxID, owner.Name)
			if ambiguity != "" {
				row.MatchNotes += "; " + ambiguity
			}
			return repos.Imports.Update(ctx, row)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
	}

	row.Status = domain.ReconciliationManualReview
	row.MatchType = domain.MatchNone
	if ambiguity != "" {
		row.MatchNotes = fmt.Sprintf("%s and no active owner matches tax id %q", ambiguity, row.OriginatorTaxID)
	} else {
		row.MatchNotes = fmt.Sprintf("No apartment matches reference %q and no active owner matches tax id %q",
			reference, row.OriginatorTaxID)
	}
	return repos.Imports.Update(ctx, row)
}

func ambiguousNote(reference string, candidates []domain.Apartment) string {
	codes := make([]string, 0, len(candidates))
	for i := range candidates {
		codes = append(codes, candidates[i].Code())
	}
	return fmt.Sprintf("Reference %q is ambiguous between apartments %s", reference, strings.Join(codes, ", "))
}

func (s *reconciliationService) AttemptAutomaticReconciliation(ctx context.Context, rowID int64) (*domain.ImportRow, error) {
	logger.EnterMethod("reconciliationService.AttemptAutomaticReconciliation", "rowID", rowID)

	var row *domain.ImportRow
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if row, err = repos.Imports.GetForUpdate(ctx, rowID); err != nil {
			return err
		}
		if err := authorizeScope(ctx, row.ScopeID); err != nil {
			return err
		}
		return s.match(ctx, repos, row)
	})
	if err != nil {
		logger.ExitMethodWithError("reconciliationService.AttemptAutomaticReconciliation", err, "rowID", rowID)
		return nil, err
	}

	logger.ExitMethod("reconciliationService.AttemptAutomaticReconciliation", "rowID", rowID, "status", row.Status, "matchType", row.MatchType)
	return row, nil
}

// ReconcileBatch matches every pending row of the batch and returns the summary.
func (s *reconciliationService) ReconcileBatch(ctx context.Context, batchID string) (*domain.ImportBatchSummary, error) {
	logger.EnterMethod("reconciliationService.ReconcileBatch", "batchID", batchID)

	var summary *domain.ImportBatchSummary
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		rows, err := repos.Imports.ListByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if err := authorizeBatch(ctx, rows); err != nil {
			return err
		}
		for i := range rows {
			if rows[i].Status != domain.ReconciliationPending {
				continue
			}
			row, err := repos.Imports.GetForUpdate(ctx, rows[i].ID)
			if err != nil {
				return err
			}
			if err := s.match(ctx, repos, row); err != nil {
				return err
			}
			rows[i] = *row
		}
		summary = summarize(batchID, rows)
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("reconciliationService.ReconcileBatch", err, "batchID", batchID)
		return nil, err
	}

	logger.ExitMethod("reconciliationService.ReconcileBatch", "batchID", batchID, "total", summary.Total)
	return summary, nil
}

// ReconcilePending matches up to limit pending rows across batches.
func (s *reconciliationService) ReconcilePending(ctx context.Context, limit int) (int, error) {
	logger.EnterMethod("reconciliationService.ReconcilePending", "limit", limit)

	matched := 0
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		rows, err := repos.Imports.ListPending(ctx, limit)
		if err != nil {
			return err
		}
		for _, candidate := range rows {
			row, err := repos.Imports.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if row.Status != domain.ReconciliationPending {
				continue
			}
			if err := s.match(ctx, repos, row); err != nil {
				return err
			}
			if row.Status == domain.ReconciliationMatched {
				matched++
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("reconciliationService.ReconcilePending", err)
		return 0, err
	}

	logger.ExitMethod("reconciliationService.ReconcilePending", "matched", matched)
	return matched, nil
}

// AssignApartment resolves a row by hand.
func (s *reconciliationService) AssignApartment(ctx context.Context, actorID, rowID, apartmentID int64, notes string) (*domain.ImportRow, error) {
	logger.EnterMethod("reconciliationService.AssignApartment", "rowID", rowID, "apartmentID", apartmentID, "actorID", actorID)

	var row *domain.ImportRow
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if row, err = repos.Imports.GetForUpdate(ctx, rowID); err != nil {
			return err
		}
		if err := authorizeScope(ctx, row.ScopeID); err != nil {
			return err
		}
		if row.Status != domain.ReconciliationPending && row.Status != domain.ReconciliationManualReview {
			return &domain.InvalidStateError{Entity: "import row", ID: row.ID, State: string(row.Status), Operation: "assign"}
		}
		apt, err := repos.Directory.GetApartment(ctx, apartmentID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("apartment_id", "apartment %d does not exist", apartmentID)
		}
		if err != nil {
			return err
		}
		if apt.ScopeID != row.ScopeID {
			return domain.NewValidationError("apartment_id", "apartment %s belongs to another scope", apt.Code())
		}

		processedAt := now()
		row.Status = domain.ReconciliationMatched
		row.ApartmentID = &apt.ID
		row.MatchType = domain.MatchManual
		row.MatchNotes = notes
		if row.MatchNotes == "" {
			row.MatchNotes = "Assigned to apartment " + apt.Code()
		}
		row.ProcessedBy = &actorID
		row.ProcessedAt = &processedAt
		return repos.Imports.Update(ctx, row)
	})
	if err != nil {
		logger.ExitMethodWithError("reconciliationService.AssignApartment", err, "rowID", rowID)
		return nil, err
	}

	logger.ExitMethod("reconciliationService.AssignApartment", "rowID", rowID)
	return row, nil
}

func (s *reconciliationService) RejectRow(ctx context.Context, actorID, rowID int64, reason string) (*domain.ImportRow, error) {
	logger.EnterMethod("reconciliationService.RejectRow", "rowID", rowID, "actorID", actorID)

	if strings.TrimSpace(reason) == "" {
		return nil, domain.NewValidationError("reason", "a rejection reason is required")
	}

	var row *domain.ImportRow
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if row, err = repos.Imports.GetForUpdate(ctx, rowID); err != nil {
			return err
		}
		if err := authorizeScope(ctx, row.ScopeID); err != nil {
			return err
		}
		if row.Status == domain.ReconciliationRejected || row.PaymentID != nil {
			return &domain.InvalidStateError{Entity: "import row", ID: row.ID, State: string(row.Status), Operation: "reject"}
		}
		processedAt := now()
		row.Status = domain.ReconciliationRejected
		row.MatchNotes = reason
		row.ProcessedBy = &actorID
		row.ProcessedAt = &processedAt
		return repos.Imports.Update(ctx, row)
	})
	if err != nil {
		logger.ExitMethodWithError("reconciliationService.RejectRow", err, "rowID", rowID)
		return nil, err
	}

	logger.ExitMethod("reconciliationService.RejectRow", "rowID", rowID)
	return row, nil
}

// CreatePayment turns a matched row into a payment and applies it right away.
func (s *reconciliationService) CreatePayment(ctx context.Context, actorID, rowID int64, method domain.PaymentMethod) (*domain.Payment, []domain.PaymentApplication, error) {
	logger.EnterMethod("reconciliationService.CreatePayment", "rowID", rowID, "actorID", actorID)

	if method == "" {
		method = domain.PaymentMethodBankTransfer
	}

	var payment *domain.Payment
	var apps []domain.PaymentApplication
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		row, err := repos.Imports.GetForUpdate(ctx, rowID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, row.ScopeID); err != nil {
			return err
		}
		if !row.CanCreatePayment() {
			return &domain.InvalidStateError{Entity: "import row", ID: row.ID, State: string(row.Status), Operation: "create payment from"}
		}

		reference := row.ReferenceNumber
		if row.ApprovalNumber != "" {
			reference = strings.TrimSpace(reference + " " + row.ApprovalNumber)
		}
		payment = &domain.Payment{
			ScopeID:     row.ScopeID,
			ApartmentID: *row.ApartmentID,
			Amount:      row.Amount,
			Method:      method,
			PaymentDate: dateOnly(row.TransactionAt),
			Reference:   reference,
		}
		if err := s.engine.register(ctx, repos, actorID, payment); err != nil {
			return err
		}

		processedAt := now()
		row.PaymentID = &payment.ID
		row.ProcessedBy = &actorID
		row.ProcessedAt = &processedAt
		if err := repos.Imports.Update(ctx, row); err != nil {
			return err
		}

		apps, err = s.engine.apply(ctx, repos, actorID, payment)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("reconciliationService.CreatePayment", err, "rowID", rowID)
		return nil, nil, err
	}

	logger.ExitMethod("reconciliationService.CreatePayment", "rowID", rowID, "paymentID", payment.ID, "applications", len(apps))
	return payment, apps, nil
}

// BatchRows returns the rows of a batch in insertion order.
func (s *reconciliationService) BatchRows(ctx context.Context, batchID string) ([]domain.ImportRow, error) {
	var rows []domain.ImportRow
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if rows, err = repos.Imports.ListByBatch(ctx, batchID); err != nil {
			return err
		}
		return authorizeBatch(ctx, rows)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return rows, nil
}

func (s *reconciliationService) BatchSummary(ctx context.Context, batchID string) (*domain.ImportBatchSummary, error) {
	rows, err := s.BatchRows(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return summarize(batchID, rows), nil
}

func summarize(batchID string, rows []domain.ImportRow) *domain.ImportBatchSummary {
	summary := &domain.ImportBatchSummary{
		BatchID: batchID,
		Counts:  make(map[domain.ReconciliationStatus]int),
		Amounts: make(map[domain.ReconciliationStatus]decimal.Decimal),
		Total:   len(rows),
	}
	for _, r := range rows {
		summary.Counts[r.Status]++
		summary.Amounts[r.Status] = summary.Amounts[r.Status].Add(r.Amount)
	}
	return summary
}
