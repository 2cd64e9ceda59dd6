package service

import (
	"context"
	"fmt"
	"time"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

const (
	DefaultSequenceMaxAttempts = 5
	DefaultSequenceBackoff     = 20 * time.Millisecond
)

// Numberer hands out human-facing document numbers. The counter row is locked
// for the rest of the unit of work; a candidate that already exists is skipped
// and the counter advanced again, up to maxAttempts.
type Numberer struct {
	maxAttempts int
	backoff     time.Duration
}

func NewNumberer(maxAttempts int, backoff time.Duration) *Numberer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultSequenceMaxAttempts
	}
	if backoff < 0 {
		backoff = 0
	}
	return &Numberer{maxAttempts: maxAttempts, backoff: backoff}
}

func (n *Numberer) Next(ctx context.Context, seqs repository.SequenceRepository, kind domain.DocumentKind, scopeID int64, subject string, date time.Time) (string, error) {
	key := domain.NumberPrefix(kind, subject, date)
	logger.EnterMethod("Numberer.Next", "scopeID", scopeID, "key", key)

	for attempt := 1; attempt <= n.maxAttempts; attempt++ {
		seq, err := seqs.Next(ctx, scopeID, key)
		if err != nil {
			logger.ExitMethodWithError("Numberer.Next", err, "key", key)
			return "", fmt.Errorf("failed to reserve %s number: %w", kind, err)
		}

		number := domain.FormatNumber(kind, subject, date, seq)
		exists, err := seqs.NumberExists(ctx, kind, scopeID, number)
		if err != nil {
			logger.ExitMethodWithError("Numberer.Next", err, "number", number)
			return "", fmt.Errorf("failed to check %s number: %w", kind, err)
		}
		if !exists {
			logger.ExitMethod("Numberer.Next", "number", number, "attempt", attempt)
			return number, nil
		}

		logger.Warn("Document number already taken, retrying", "number", number, "attempt", attempt)
		if attempt < n.maxAttempts && n.backoff > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(n.backoff * time.Duration(attempt)):
			}
		}
	}

	err := &domain.ResourceExhaustion{Resource: "document number " + key, Attempts: n.maxAttempts}
	logger.ExitMethodWithError("Numberer.Next", err, "key", key)
	return "", err
}
