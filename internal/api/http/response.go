package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"condo-ledger-backend/internal/domain"
	"condo-ledger-backend/internal/logger"

	"github.com/gorilla/mux"
)

const dateLayout = "2006-01-02"

type errorBody struct {
	Error   string   `json:"error"`
	Field   string   `json:"field,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// statusFor maps domain error kinds to HTTP status codes.
func statusFor(err error) int {
	var validation *domain.ValidationError
	var state *domain.InvalidStateError
	var integrity *domain.IntegrityViolation
	var exhausted *domain.ResourceExhaustion

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsScopeDenied(err):
		return http.StatusForbidden
	case errors.As(err, &state):
		return http.StatusConflict
	case errors.As(err, &integrity):
		return http.StatusUnprocessableEntity
	case errors.As(err, &exhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		body.Field = validation.Field
	}
	var integrity *domain.IntegrityViolation
	if errors.As(err, &integrity) {
		body.Reasons = integrity.Reasons
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		body.Error = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, body)
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "malformed request body: %v", err)
	}
	return nil
}

func pathInt(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(name, "invalid %s %q", name, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "invalid %s %q", name, raw)
	}
	return n, nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "expected a %s date, got %q", dateLayout, raw)
	}
	return t, nil
}

func requireDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, domain.NewValidationError(field, "%s is required", field)
	}
	return parseDate(field, raw)
}

// periodVars reads {year} and {month} path variables.
func periodVars(r *http.Request) (int, int, error) {
	year, err := strconv.Atoi(mux.Vars(r)["year"])
	if err != nil {
		return 0, 0, domain.NewValidationError("year", "invalid year")
	}
	month, err := strconv.Atoi(mux.Vars(r)["month"])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, domain.NewValidationError("month", "invalid month")
	}
	return year, month, nil
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)})
}

func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
