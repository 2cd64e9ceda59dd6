package service

import (
	"context"
	"fmt"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"

	"github.com/shopspring/decimal"
)

// paymentEngine holds the allocation rules shared by the payment and import services.
type paymentEngine struct {
	journal *Journal
}

// register numbers and stores a new payment.
func (p *paymentEngine) register(ctx context.Context, repos *repository.Repositories, actorID int64, payment *domain.Payment) error {
	if err := payment.Validate(); err != nil {
		return err
	}
	if err := authorizeScope(ctx, payment.ScopeID); err != nil {
		return err
	}
	subject, err := apartmentSubject(ctx, repos, payment.ScopeID, payment.ApartmentID)
	if err != nil {
		return err
	}
	payment.Number, err = p.journal.numberer.Next(ctx, repos.Sequences, domain.DocumentPayment, payment.ScopeID, subject, payment.PaymentDate)
	if err != nil {
		return err
	}
	payment.AppliedAmount = decimal.Zero
	payment.Status = domain.PaymentStatusPending
	payment.CreatedBy = actorID
	if err := repos.Payments.Create(ctx, payment); err != nil {
		return fmt.Errorf("failed to create payment %s: %w", payment.Number, err)
	}
	return nil
}

// apply allocates the remaining amount of a locked payment to the apartment's
// outstanding invoices, oldest first. Each allocation gets its own posted
// transaction: debit cash, credit receivable.
func (p *paymentEngine) apply(ctx context.Context, repos *repository.Repositories, actorID int64, payment *domain.Payment) ([]domain.PaymentApplication, error) {
	logger.EnterMethod("paymentEngine.apply", "paymentID", payment.ID, "remaining", payment.RemainingAmount())

	if !payment.CanBeApplied() {
		err := &domain.InvalidStateError{Entity: "payment", ID: payment.ID, State: string(payment.Status), Operation: "apply"}
		logger.ExitMethodWithError("paymentEngine.apply", err, "paymentID", payment.ID)
		return nil, err
	}

	cashID, err := cashAccount(ctx, repos, payment.ScopeID, payment.Method)
	if err != nil {
		return nil, err
	}
	subject, err := apartmentSubject(ctx, repos, payment.ScopeID, payment.ApartmentID)
	if err != nil {
		return nil, err
	}
	invoices, err := repos.Invoices.ListOutstandingForUpdate(ctx, payment.ApartmentID)
	if err != nil {
		return nil, err
	}

	appliedAt := now()
	remaining := payment.RemainingAmount()
	created := []domain.PaymentApplication{}
	for i := range invoices {
		if !remaining.IsPositive() {
			break
		}
		inv := &invoices[i]
		balance := inv.BalanceDue()
		if !balance.IsPositive() {
			continue
		}
		amount := decimal.Min(remaining, balance)

		app, err := p.allocate(ctx, repos, actorID, payment, inv, amount, cashID, subject)
		if err != nil {
			return nil, err
		}
		created = append(created, *app)

		inv.PaidAmount = inv.PaidAmount.Add(amount)
		inv.RefreshStatus(appliedAt)
		if err := repos.Invoices.Update(ctx, inv); err != nil {
			return nil, err
		}
		payment.AppliedAmount = payment.AppliedAmount.Add(amount)
		remaining = remaining.Sub(amount)
	}

	payment.Status = payment.DeriveStatus()
	payment.AppliedBy = &actorID
	payment.AppliedAt = &appliedAt
	if err := repos.Payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	logger.ExitMethod("paymentEngine.apply", "paymentID", payment.ID, "applications", len(created), "status", payment.Status)
	return created, nil
}

// allocate records one application and its posting. A pair reversed earlier
// is reactivated so (payment, invoice) keeps a single application row.
func (p *paymentEngine) allocate(ctx context.Context, repos *repository.Repositories, actorID int64, payment *domain.Payment, inv *domain.Invoice, amount decimal.Decimal, cashID int64, subject string) (*domain.PaymentApplication, error) {
	receivableID, err := receivableAccount(ctx, repos, inv)
	if err != nil {
		return nil, err
	}

	app, err := repos.Payments.FindApplication(ctx, payment.ID, inv.ID)
	if err != nil {
		return nil, err
	}
	appliedAt := now()
	if app == nil {
		app = &domain.PaymentApplication{
			PaymentID:     payment.ID,
			InvoiceID:     inv.ID,
			AmountApplied: amount,
			Status:        domain.ApplicationStatusActive,
			AppliedBy:     actorID,
			AppliedAt:     appliedAt,
		}
		if err := repos.Payments.CreateApplication(ctx, app); err != nil {
			return nil, err
		}
	} else {
		if app.Status == domain.ApplicationStatusActive {
			return nil, &domain.InvalidStateError{Entity: "payment application", ID: app.ID, State: string(app.Status), Operation: "allocate"}
		}
		app.AmountApplied = amount
		app.Status = domain.ApplicationStatusActive
		app.AppliedBy = actorID
		app.AppliedAt = appliedAt
		app.ReversedBy = nil
		app.ReversedAt = nil
	}

	third := &domain.ThirdParty{Kind: domain.ThirdPartyApartment, ID: payment.ApartmentID}
	description := fmt.Sprintf("Payment %s applied to invoice %s", payment.Number, inv.Number)
	debit := domain.DebitEntry(cashID, amount, description)
	credit := domain.CreditEntry(receivableID, amount, description)
	credit.ThirdParty = third

	tx, err := p.journal.record(ctx, repos, actorID, DraftRequest{
		ScopeID:     payment.ScopeID,
		Date:        payment.PaymentDate,
		Description: description,
		Reference:   domain.PaymentApplicationRef{ApplicationID: app.ID},
		Subject:     subject,
	}, []domain.Entry{debit, credit})
	if err != nil {
		return nil, err
	}

	app.TransactionID = &tx.ID
	if err := repos.Payments.UpdateApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// reverseApplication undoes one active application: the invoice and payment
// amounts go back and a swapped transaction is posted.
func (p *paymentEngine) reverseApplication(ctx context.Context, repos *repository.Repositories, actorID int64, app *domain.PaymentApplication, payment *domain.Payment) error {
	if app.Status != domain.ApplicationStatusActive {
		return &domain.InvalidStateError{Entity: "payment application", ID: app.ID, State: string(app.Status), Operation: "reverse"}
	}

	inv, err := repos.Invoices.GetForUpdate(ctx, app.InvoiceID)
	if err != nil {
		return err
	}

	if app.TransactionID != nil {
		original, err := repos.Ledger.GetTransactionForUpdate(ctx, *app.TransactionID)
		if err != nil {
			return err
		}
		description := fmt.Sprintf("Reversal of payment %s on invoice %s", payment.Number, inv.Number)
		if _, err := p.journal.reverse(ctx, repos, actorID, original, description); err != nil {
			return err
		}
	}

	reversedAt := now()
	app.Status = domain.ApplicationStatusReversed
	app.ReversedBy = &actorID
	app.ReversedAt = &reversedAt
	if err := repos.Payments.UpdateApplication(ctx, app); err != nil {
		return err
	}

	inv.PaidAmount = inv.PaidAmount.Sub(app.AmountApplied)
	inv.RefreshStatus(reversedAt)
	if err := repos.Invoices.Update(ctx, inv); err != nil {
		return err
	}

	payment.AppliedAmount = payment.AppliedAmount.Sub(app.AmountApplied)
	payment.Status = payment.DeriveStatus()
	return repos.Payments.Update(ctx, payment)
}

type paymentService struct {
	uow    repository.UnitOfWork
	engine *paymentEngine
}

func NewPaymentService(uow repository.UnitOfWork, journal *Journal) PaymentService {
	return &paymentService{uow: uow, engine: &paymentEngine{journal: journal}}
}

func (s *paymentService) RegisterPayment(ctx context.Context, actorID int64, payment *domain.Payment, autoApply bool) (*domain.Payment, []domain.PaymentApplication, error) {
	logger.EnterMethod("paymentService.RegisterPayment", "apartmentID", payment.ApartmentID, "amount", payment.Amount, "autoApply", autoApply)

	apps := []domain.PaymentApplication{}
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := s.engine.register(ctx, repos, actorID, payment); err != nil {
			return err
		}
		if !autoApply {
			return nil
		}
		var err error
		apps, err = s.engine.apply(ctx, repos, actorID, payment)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.RegisterPayment", err, "apartmentID", payment.ApartmentID)
		return nil, nil, err
	}

	logger.ExitMethod("paymentService.RegisterPayment", "paymentID", payment.ID, "number", payment.Number, "applications", len(apps))
	return payment, apps, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id int64) (*domain.Payment, []domain.PaymentApplication, error) {
	var payment *domain.Payment
	var apps []domain.PaymentApplication
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if payment, err = repos.Payments.GetByID(ctx, id); err != nil {
			return err
		}
		if err := authorizeScope(ctx, payment.ScopeID); err != nil {
			return err
		}
		apps, err = repos.Payments.ListApplications(ctx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return payment, apps, nil
}

func (s *paymentService) ApplyToInvoices(ctx context.Context, actorID, paymentID int64) ([]domain.PaymentApplication, error) {
	logger.EnterMethod("paymentService.ApplyToInvoices", "paymentID", paymentID, "actorID", actorID)

	var apps []domain.PaymentApplication
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		payment, err := repos.Payments.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, payment.ScopeID); err != nil {
			return err
		}
		apps, err = s.engine.apply(ctx, repos, actorID, payment)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.ApplyToInvoices", err, "paymentID", paymentID)
		return nil, err
	}

	logger.ExitMethod("paymentService.ApplyToInvoices", "paymentID", paymentID, "applications", len(apps))
	return apps, nil
}

func (s *paymentService) ReverseApplication(ctx context.Context, actorID, applicationID int64) (*domain.PaymentApplication, error) {
	logger.EnterMethod("paymentService.ReverseApplication", "applicationID", applicationID, "actorID", actorID)

	var app *domain.PaymentApplication
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if app, err = repos.Payments.GetApplicationForUpdate(ctx, applicationID); err != nil {
			return err
		}
		payment, err := repos.Payments.GetForUpdate(ctx, app.PaymentID)
		if err != nil {
			return err
		}
		if err := authorizeScope(ctx, payment.ScopeID); err != nil {
			return err
		}
		return s.engine.reverseApplication(ctx, repos, actorID, app, payment)
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.ReverseApplication", err, "applicationID", applicationID)
		return nil, err
	}

	logger.ExitMethod("paymentService.ReverseApplication", "applicationID", applicationID)
	return app, nil
}

// ReversePayment reverses every active application, then marks the payment reversed.
func (s *paymentService) ReversePayment(ctx context.Context, actorID, paymentID int64) (*domain.Payment, error) {
	logger.EnterMethod("paymentService.ReversePayment", "paymentID", paymentID, "actorID", actorID)

	var payment *domain.Payment
	err := s.uow.Do(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		if payment, err = repos.Payments.GetForUpdate(ctx, paymentID); err != nil {
			return err
		}
		if err := authorizeScope(ctx, payment.ScopeID); err != nil {
			return err
		}
		if payment.Status == domain.PaymentStatusReversed {
			return &domain.InvalidStateError{Entity: "payment", ID: payment.ID, State: string(payment.Status), Operation: "reverse"}
		}
		apps, err := repos.Payments.ListApplications(ctx, paymentID)
		if err != nil {
			return err
		}
		for i := range apps {
			if apps[i].Status != domain.ApplicationStatusActive {
				continue
			}
			if err := s.engine.reverseApplication(ctx, repos, actorID, &apps[i], payment); err != nil {
				return err
			}
		}

		reversedAt := now()
		payment.Status = domain.PaymentStatusReversed
		payment.ReversedBy = &actorID
		payment.ReversedAt = &reversedAt
		return repos.Payments.Update(ctx, payment)
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.ReversePayment", err, "paymentID", paymentID)
		return nil, err
	}

	logger.ExitMethod("paymentService.ReversePayment", "paymentID", paymentID)
	return payment, nil
}
