// Package events is a synchronous in-process event bus. Handlers run inside
// the publisher's unit of work, so a failing handler rolls the publisher back.
package events

import (
	"context"
	"fmt"
	"sync"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository"
)

// TransactionPosted fires after a transaction moved to posted.
type TransactionPosted struct {
	Transaction *domain.Transaction
	PostedBy    int64
}

type TransactionPostedHandler func(ctx context.Context, repos *repository.Repositories, evt TransactionPosted) error

type Bus struct {
	mu       sync.RWMutex
	handlers map[string]TransactionPostedHandler
	order    []string
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string]TransactionPostedHandler)}
}

// OnTransactionPosted registers h under name. Registering the same name twice replaces the handler.
func (b *Bus) OnTransactionPosted(name string, h TransactionPostedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handlers[name]; !ok {
		b.order = append(b.order, name)
	}
	b.handlers[name] = h
}

// PublishTransactionPosted runs every handler in registration order and stops at the first error.
func (b *Bus) PublishTransactionPosted(ctx context.Context, repos *repository.Repositories, evt TransactionPosted) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	names := append([]string(nil), b.order...)
	handlers := make([]TransactionPostedHandler, len(names))
	for i, name := range names {
		handlers[i] = b.handlers[name]
	}
	b.mu.RUnlock()

	for i, h := range handlers {
		logger.Debug("Dispatching transaction posted", "handler", names[i], "transactionID", evt.Transaction.ID)
		if err := h(ctx, repos, evt); err != nil {
			return fmt.Errorf("handler %s: %w", names[i], err)
		}
	}
	return nil
}
