package service

import (
	"context"
	"fmt"
	"time"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type invoiceService struct {
	uow     repository.UnitOfWork
	journal *Journal
}

func NewInvoiceService(uow repository.UnitOfWork, journal *Journal) InvoiceService {
	return &invoiceService{uow: uow, journal: journal}
}

// invoiceEntries debits the receivable and credits the income of every item's
// concept. Discounts and late fees settle against the first item's concept.
func invoiceEntries(ctx context.Context, repos *repository.Repositories, inv *domain.Invoice) ([]domain.Entry, error) {
	third := &domain.ThirdParty{Kind: domain.ThirdPartyApartment, ID: inv.ApartmentID}
	var entries []domain.Entry
	var first *domain.ConceptAccounts

	for _, item := range inv.Items {
		accounts, err := conceptAccounts(ctx, repos, inv.ScopeID, item.ConceptID)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = accounts
		}
		debit := domain.DebitEntry(accounts.ReceivableAccountID, item.Amount(), item.Description)
		debit.ThirdParty = third
		credit := domain.CreditEntry(accounts.IncomeAccountID, item.Amount(), item.Description)
		entries = append(entries, debit, credit)
	}

	if inv.EarlyDiscount.IsPositive() {
		credit := domain.CreditEntry(first.ReceivableAccountID, inv.EarlyDiscount, "Early payment discount")
		credit.ThirdParty = third
		entries = append(entries, domain.DebitEntry(first.IncomeAccountID, inv.EarlyDiscount, "Early payment discount"), credit)
	}
	if inv.LateFees.IsPositive() {
		debit := domain.DebitEntry(first.ReceivableAccountID, inv.LateFees, "Late fees")
		debit.ThirdParty = third
		entries = append(entries, debit, domain.CreditEntry(first.IncomeAccountID, inv.LateFees, "Late fees"))
	}
	return entries, nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, actorID int64, inv *domain.Invoice) (*domain.Invoice, error) {
	logger.EnterMethod("invoiceService.CreateInvoice", "scopeID", inv.ScopeID, "apartmentID", inv.ApartmentID)

	if err := inv.Validate(); err != nil {
		logger.ExitMethodWithError("invoiceService.CreateInvoice", err, "apartmentID", inv.ApartmentID)
		return nil, err
	}
	inv.CalculateTotals()
	if !inv.Total.IsPositive() {
		err := domain.NewValidationError("total", "invoice total must be positive")
		logger.ExitMethodWithError("invoiceService.CreateInvoice", err, "apartmentID", inv.ApartmentID)
		return nil, err
	}

	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := authorizeScope(ctx, inv.ScopeID); err != nil {
			return err
		}
		subject, err := apartmentSubject(ctx, repos, inv.ScopeID, inv.ApartmentID)
		if err != nil {
			return err
		}
		inv.Number, err = s.journal.numberer.Next(ctx, repos.Sequences, domain.DocumentInvoice, inv.ScopeID, subject, inv.BillingDate)
		if err != nil {
			return err
		}
		inv.PaidAmount = decimal.Zero
		inv.Status = domain.InvoiceStatusPending
		inv.RefreshStatus(now())
		inv.CreatedBy = actorID
		if err := repos.Invoices.Create(ctx, inv); err != nil {
			return fmt.Errorf("failed to create invoice %s: %w", inv.Number, err)
		}

		entries, err := invoiceEntries(ctx, repos, inv)
		if err != nil {
			return err
		}
		_, err = s.journal.record(ctx, repos, actorID, DraftRequest{
			ScopeID:     inv.ScopeID,
			Date:        inv.BillingDate,
			Description: "Invoice " + inv.Number,
			Reference:   domain.InvoiceRef{InvoiceID: inv.ID},
			Subject:     subject,
		}, entries)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("invoiceService.CreateInvoice", err, "apartmentID", inv.ApartmentID)
		return nil, err
	}

	logger.ExitMethod("invoiceService.CreateInvoice", "invoiceID", inv.ID, "number", inv.Number, "total", inv.Total)
	return inv, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	var inv *domain.Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if inv, err = repos.Invoices.GetByID(ctx, id); err != nil {
			return err
		}
		return authorizeScope(ctx, inv.ScopeID)
	})
	return inv, err
}

// CancelInvoice is only allowed while nothing has been paid. The billing
// transaction is reversed, never edited.
func (s *invoiceService) CancelInvoice(ctx context.Context, actorID, id int64) (*domain.Invoice, error) {
	logger.EnterMethod("invoiceService.CancelInvoice", "invoiceID", id, "actorID", actorID)

	var inv *domain.Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if inv, err = repos.Invoices.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if err := authorizeScope(ctx, inv.ScopeID); err != nil {
			return err
		}
		if inv.Status == domain.InvoiceStatusCancelled || !inv.PaidAmount.IsZero() {
			return &domain.InvalidStateError{Entity: "invoice", ID: inv.ID, State: string(inv.Status), Operation: "cancel"}
		}

		txs, err := repos.Ledger.ListByReference(ctx, inv.ScopeID, domain.InvoiceRef{InvoiceID: inv.ID})
		if err != nil {
			return err
		}
		for i := range txs {
			if txs[i].Status != domain.TransactionStatusPosted {
				continue
			}
			if _, err := s.journal.reverse(ctx, repos, actorID, &txs[i], "Cancellation of invoice "+inv.Number); err != nil {
				return err
			}
		}

		inv.Status = domain.InvoiceStatusCancelled
		return repos.Invoices.Update(ctx, inv)
	})
	if err != nil {
		logger.ExitMethodWithError("invoiceService.CancelInvoice", err, "invoiceID", id)
		return nil, err
	}

	logger.ExitMethod("invoiceService.CancelInvoice", "invoiceID", id)
	return inv, nil
}

// MarkOverdue re-derives the status of every unpaid invoice past its due date.
func (s *invoiceService) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	logger.EnterMethod("invoiceService.MarkOverdue", "asOf", asOf.Format("2006-01-02"))

	changed := 0
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		invoices, err := repos.Invoices.ListPastDue(ctx, asOf.Format("2006-01-02"))
		if err != nil {
			return err
		}
		for _, candidate := range invoices {
			inv, err := repos.Invoices.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			before := inv.Status
			inv.RefreshStatus(asOf)
			if inv.Status == before {
				continue
			}
			if err := repos.Invoices.Update(ctx, inv); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("invoiceService.MarkOverdue", err)
		return 0, err
	}

	logger.ExitMethod("invoiceService.MarkOverdue", "changed", changed)
	return changed, nil
}
