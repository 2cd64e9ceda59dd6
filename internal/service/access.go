package service

import (
	"context"
	"slices"

	"condo-ledger-backend/internal/domain"
)

type scopeGrantKey struct{}

// WithScopeGrant restricts every service call made with ctx to scopes. A
// context without a grant is unrestricted, which is what jobs and the CLI use.
func WithScopeGrant(ctx context.Context, scopes []int64) context.Context {
	return context.WithValue(ctx, scopeGrantKey{}, slices.Clone(scopes))
}

// ScopeGrant returns the scopes ctx is restricted to, if any.
func ScopeGrant(ctx context.Context) ([]int64, bool) {
	grant, ok := ctx.Value(scopeGrantKey{}).([]int64)
	return grant, ok
}

// authorizeScope fails when ctx carries a grant that does not include scopeID.
func authorizeScope(ctx context.Context, scopeID int64) error {
	grant, ok := ScopeGrant(ctx)
	if !ok || slices.Contains(grant, scopeID) {
		return nil
	}
	return &domain.ScopeDeniedError{ScopeID: scopeID}
}

// authorizeBatch checks every scope a batch touches.
func authorizeBatch(ctx context.Context, rows []domain.ImportRow) error {
	for i := range rows {
		if err := authorizeScope(ctx, rows[i].ScopeID); err != nil {
			return err
		}
	}
	return nil
}
