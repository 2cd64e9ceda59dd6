package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"condo-ledger-backend/internal/config"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/security"
	"condo-ledger-backend/internal/service"

	"github.com/gorilla/mux"
)

type contextKey string

const actorKey contextKey = "actor"

// ActorFromContext returns the claims the auth middleware attached.
func ActorFromContext(ctx context.Context) (*security.ActorClaims, bool) {
	claims, ok := ctx.Value(actorKey).(*security.ActorClaims)
	return claims, ok
}

func actorID(r *http.Request) int64 {
	if claims, ok := ActorFromContext(r.Context()); ok {
		return claims.UserID
	}
	return 0
}

// AuthMiddleware resolves the bearer token into the acting user and enforces
// the security level configured for the matched route.
type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routeName := ""
		if route := mux.CurrentRoute(r); route != nil {
			routeName = route.GetName()
		}
		level := config.GetSecurityLevel(routeName)
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authorization token is not provided"})
			return
		}
		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
			return
		}

		if level == config.SecurityAccountant && !claims.HasRole(security.RoleAccountant) {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "accountant role required"})
			return
		}
		if raw, ok := mux.Vars(r)["scopeID"]; ok {
			scopeID, _ := strconv.ParseInt(raw, 10, 64)
			if !claims.CanAccessScope(scopeID) {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "scope not granted"})
				return
			}
		}

		ctx := context.WithValue(r.Context(), actorKey, claims)
		if len(claims.Scopes) > 0 {
			// Routes addressed by entity id are checked once the service has loaded the entity.
			ctx = service.WithScopeGrant(ctx, claims.Scopes)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	return strings.TrimSpace(token)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs one line per request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		args := []any{"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start)}
		if rec.status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "HTTP request", args...)
			return
		}
		logger.InfoContext(r.Context(), "HTTP request", args...)
	})
}
