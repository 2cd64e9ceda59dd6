package service

import (
	"context"
	"errors"
	"fmt"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/repository"
)

// ValidationResult separates blocking errors from warnings that are only logged.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

type ValidationOptions struct {
	SkipPeriodValidation bool
}

// IntegrityValidator vets a transaction right before it is posted. The returned
// error is reserved for infrastructure failures.
type IntegrityValidator interface {
	Validate(ctx context.Context, repos *repository.Repositories, tx *domain.Transaction, opts ValidationOptions) (ValidationResult, error)
}

type integrityValidator struct{}

func NewIntegrityValidator() IntegrityValidator {
	return &integrityValidator{}
}

func (v *integrityValidator) Validate(ctx context.Context, repos *repository.Repositories, tx *domain.Transaction, opts ValidationOptions) (ValidationResult, error) {
	var res ValidationResult

	seen := make(map[int64]*domain.Account)
	for i, e := range tx.Entries {
		account, ok := seen[e.AccountID]
		if !ok {
			var err error
			account, err = repos.Accounts.GetByID(ctx, e.AccountID)
			if errors.Is(err, domain.ErrNotFound) {
				res.Errors = append(res.Errors, fmt.Sprintf("entry %d: account %d does not exist", i+1, e.AccountID))
				continue
			}
			if err != nil {
				return res, err
			}
			seen[e.AccountID] = account
		}

		if account.ScopeID != tx.ScopeID {
			res.Errors = append(res.Errors, fmt.Sprintf("entry %d: account %s belongs to another scope", i+1, account.Code))
		}
		if !account.Active {
			res.Errors = append(res.Errors, fmt.Sprintf("entry %d: account %s is inactive", i+1, account.Code))
		}
		if !account.Postable {
			res.Errors = append(res.Errors, fmt.Sprintf("entry %d: account %s is not postable", i+1, account.Code))
		}
		if account.RequiresThirdParty && e.ThirdParty == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("entry %d: account %s requires a third party", i+1, account.Code))
		}
		if !account.RequiresThirdParty && e.ThirdParty != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("entry %d: account %s does not track third parties", i+1, account.Code))
		}
		if e.Description == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("entry %d has no description", i+1))
		}
	}

	if !opts.SkipPeriodValidation {
		period, err := repos.Ledger.GetPeriod(ctx, tx.ScopeID, tx.Date.Year(), int(tx.Date.Month()))
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return res, err
		case period.Status == domain.PeriodClosed:
			res.Errors = append(res.Errors, fmt.Sprintf("period %04d-%02d is closed", period.Year, period.Month))
		}
	}

	if tx.Date.After(now()) {
		res.Warnings = append(res.Warnings, "transaction is dated in the future")
	}
	return res, nil
}
