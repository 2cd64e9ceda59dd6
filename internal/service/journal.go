package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/events"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

var now = time.Now

// Journal is the posting engine shared by every service that writes to the
// ledger. All methods work on the caller's repositories so nested postings
// join the caller's unit of work.
type Journal struct {
	numberer  *Numberer
	validator IntegrityValidator
	bus       *events.Bus
}

func NewJournal(numberer *Numberer, validator IntegrityValidator, bus *events.Bus) *Journal {
	if numberer == nil {
		numberer = NewNumberer(DefaultSequenceMaxAttempts, DefaultSequenceBackoff)
	}
	if validator == nil {
		validator = NewIntegrityValidator()
	}
	return &Journal{numberer: numberer, validator: validator, bus: bus}
}

func (j *Journal) createDraft(ctx context.Context, repos *repository.Repositories, actorID int64, req DraftRequest) (*domain.Transaction, error) {
	if req.ScopeID == 0 {
		return nil, domain.NewValidationError("scope_id", "scope is required")
	}
	if req.Date.IsZero() {
		return nil, domain.NewValidationError("date", "transaction date is required")
	}
	subject := req.Subject
	if subject == "" {
		subject = domain.ExpenseSubject
	}
	ref := req.Reference
	if ref == nil {
		ref = domain.ManualRef{}
	}

	number, err := j.numberer.Next(ctx, repos.Sequences, domain.DocumentTransaction, req.ScopeID, subject, req.Date)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ScopeID:     req.ScopeID,
		Number:      number,
		Date:        req.Date,
		Description: req.Description,
		Reference:   ref,
		Status:      domain.TransactionStatusDraft,
		CreatedBy:   actorID,
		Entries:     []domain.Entry{},
	}
	tx.Recalculate()
	if err := repos.Ledger.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction %s: %w", number, err)
	}
	return tx, nil
}

// addEntry appends entry and resums the totals from every entry.
func (j *Journal) addEntry(ctx context.Context, repos *repository.Repositories, tx *domain.Transaction, entry domain.Entry) error {
	if tx.Status != domain.TransactionStatusDraft {
		return &domain.InvalidStateError{Entity: "transaction", ID: tx.ID, State: string(tx.Status), Operation: "add entry to"}
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	entry.TransactionID = tx.ID
	if err := repos.Ledger.AddEntry(ctx, &entry); err != nil {
		return fmt.Errorf("failed to add entry to %s: %w", tx.Number, err)
	}
	tx.Entries = append(tx.Entries, entry)
	tx.Recalculate()
	return repos.Ledger.UpdateTransaction(ctx, tx)
}

// post moves a balanced draft to posted and publishes the event. On any error
// the caller's unit of work must roll back, which leaves the draft untouched.
func (j *Journal) post(ctx context.Context, repos *repository.Repositories, tx *domain.Transaction, actorID int64, skipPeriodValidation bool) error {
	logger.EnterMethod("Journal.post", "transactionID", tx.ID, "number", tx.Number)

	if tx.Status != domain.TransactionStatusDraft {
		err := &domain.InvalidStateError{Entity: "transaction", ID: tx.ID, State: string(tx.Status), Operation: "post"}
		logger.ExitMethodWithError("Journal.post", err, "transactionID", tx.ID)
		return err
	}

	tx.Recalculate()
	var reasons []string
	if len(tx.Entries) == 0 {
		reasons = append(reasons, "transaction has no entries")
	}
	if !tx.IsBalanced() {
		reasons = append(reasons, fmt.Sprintf("debits %s do not equal credits %s",
			tx.TotalDebit.StringFixed(2), tx.TotalCredit.StringFixed(2)))
	}
	if len(tx.Entries) > 0 && !tx.TotalDebit.IsPositive() {
		reasons = append(reasons, "transaction totals must be positive")
	}
	if len(reasons) > 0 {
		err := &domain.IntegrityViolation{Reasons: reasons}
		logger.ExitMethodWithError("Journal.post", err, "transactionID", tx.ID)
		return err
	}

	result, err := j.validator.Validate(ctx, repos, tx, ValidationOptions{SkipPeriodValidation: skipPeriodValidation})
	if err != nil {
		logger.ExitMethodWithError("Journal.post", err, "transactionID", tx.ID)
		return fmt.Errorf("failed to validate %s: %w", tx.Number, err)
	}
	for _, w := range result.Warnings {
		logger.Warn("Posting warning", "transaction", tx.Number, "warning", w)
	}
	if !result.OK() {
		err := &domain.IntegrityViolation{Reasons: result.Errors}
		logger.ExitMethodWithError("Journal.post", err, "transactionID", tx.ID)
		return err
	}

	postedAt := now()
	tx.Status = domain.TransactionStatusPosted
	tx.PostedBy = &actorID
	tx.PostedAt = &postedAt
	if err := repos.Ledger.UpdateTransaction(ctx, tx); err != nil {
		logger.ExitMethodWithError("Journal.post", err, "transactionID", tx.ID)
		return fmt.Errorf("failed to post %s: %w", tx.Number, err)
	}

	if err := j.bus.PublishTransactionPosted(ctx, repos, events.TransactionPosted{Transaction: tx, PostedBy: actorID}); err != nil {
		logger.ExitMethodWithError("Journal.post", err, "transactionID", tx.ID)
		return err
	}

	logger.ExitMethod("Journal.post", "transactionID", tx.ID, "total", tx.TotalDebit)
	return nil
}

// record creates, fills and posts a transaction in one go.
func (j *Journal) record(ctx context.Context, repos *repository.Repositories, actorID int64, req DraftRequest, entries []domain.Entry) (*domain.Transaction, error) {
	tx, err := j.createDraft(ctx, repos, actorID, req)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := j.addEntry(ctx, repos, tx, e); err != nil {
			return nil, err
		}
	}
	if err := j.post(ctx, repos, tx, actorID, false); err != nil {
		return nil, err
	}
	return tx, nil
}

// reverse posts a compensating transaction with every entry swapped. The
// original stays as it is.
func (j *Journal) reverse(ctx context.Context, repos *repository.Repositories, actorID int64, original *domain.Transaction, description string) (*domain.Transaction, error) {
	if original.Status != domain.TransactionStatusPosted {
		return nil, &domain.InvalidStateError{Entity: "transaction", ID: original.ID, State: string(original.Status), Operation: "reverse"}
	}
	existing, err := repos.Ledger.ListByReference(ctx, original.ScopeID, domain.ReversalRef{OriginalTransactionID: original.ID})
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.Status == domain.TransactionStatusPosted {
			return nil, &domain.InvalidStateError{Entity: "transaction", ID: original.ID, State: "reversed", Operation: "reverse"}
		}
	}

	entries := make([]domain.Entry, len(original.Entries))
	for i, e := range original.Entries {
		entries[i] = e.Swapped()
	}
	if description == "" {
		description = "Reversal of " + original.Number
	}
	req := DraftRequest{
		ScopeID:     original.ScopeID,
		Date:        now(),
		Description: description,
		Reference:   domain.ReversalRef{OriginalTransactionID: original.ID},
		Subject:     subjectFromNumber(original.Number),
	}
	return j.record(ctx, repos, actorID, req, entries)
}

// subjectFromNumber extracts the apartment or EXP part of a TXN number.
func subjectFromNumber(number string) string {
	parts := strings.Split(number, "-")
	if len(parts) == 4 && parts[0] == "TXN" && parts[1] != "" {
		return parts[1]
	}
	return domain.ExpenseSubject
}

// cashAccount routes a payment method to its cash or bank account, falling
// back to the scope default. A missing route is a validation error.
func cashAccount(ctx context.Context, repos *repository.Repositories, scopeID int64, method domain.PaymentMethod) (int64, error) {
	id, err := repos.Mappings.CashAccountForMethod(ctx, scopeID, method)
	if err != nil {
		return 0, err
	}
	if id == nil {
		if id, err = repos.Mappings.DefaultCashAccount(ctx, scopeID); err != nil {
			return 0, err
		}
	}
	if id == nil {
		return 0, domain.NewValidationError("payment_method", "no cash account mapped for payment method %q", method)
	}
	return *id, nil
}

func conceptAccounts(ctx context.Context, repos *repository.Repositories, scopeID, conceptID int64) (*domain.ConceptAccounts, error) {
	accounts, err := repos.Mappings.ConceptAccounts(ctx, scopeID, conceptID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		if accounts, err = repos.Mappings.DefaultConceptAccounts(ctx, scopeID); err != nil {
			return nil, err
		}
	}
	if accounts == nil {
		return nil, domain.NewValidationError("concept_id", "no accounts mapped for concept %d", conceptID)
	}
	return accounts, nil
}

// receivableAccount resolves the receivable of an invoice from its first item's concept.
func receivableAccount(ctx context.Context, repos *repository.Repositories, inv *domain.Invoice) (int64, error) {
	var conceptID int64
	if len(inv.Items) > 0 {
		conceptID = inv.Items[0].ConceptID
	}
	accounts, err := conceptAccounts(ctx, repos, inv.ScopeID, conceptID)
	if err != nil {
		return 0, err
	}
	return accounts.ReceivableAccountID, nil
}

// apartmentSubject resolves the apartment code used in document numbers. The
// apartment must belong to scopeID.
func apartmentSubject(ctx context.Context, repos *repository.Repositories, scopeID, apartmentID int64) (string, error) {
	apt, err := repos.Directory.GetApartment(ctx, apartmentID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.NewValidationError("apartment_id", "apartment %d does not exist", apartmentID)
	}
	if err != nil {
		return "", err
	}
	if apt.ScopeID != scopeID {
		return "", domain.NewValidationError("apartment_id", "apartment %d does not belong to scope %d", apartmentID, scopeID)
	}
	return apt.Code(), nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
