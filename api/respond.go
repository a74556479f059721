package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/billbatista/zensplit/balance"
	"github.com/billbatista/zensplit/ledger"
	"github.com/billbatista/zensplit/otp"
	"github.com/billbatista/zensplit/payment"
	"github.com/billbatista/zensplit/user"
	"github.com/billbatista/zensplit/validation"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{user.ErrInvalidEmail, http.StatusBadRequest},
	{user.ErrBlankPassword, http.StatusBadRequest},
	{otp.ErrNoEmail, http.StatusBadRequest},
	{ledger.ErrEmptyName, http.StatusBadRequest},
	{ledger.ErrEmptyCurrency, http.StatusBadRequest},
	{ledger.ErrInvalidAmount, http.StatusBadRequest},
	{ledger.ErrUnsupportedSplit, http.StatusBadRequest},
	{ledger.ErrSplitsNotProvided, http.StatusBadRequest},
	{ledger.ErrPayerNotMember, http.StatusBadRequest},
	{balance.ErrInvalidInput, http.StatusBadRequest},
	{payment.ErrMissingParty, http.StatusBadRequest},
	{payment.ErrSameParty, http.StatusBadRequest},
	{payment.ErrInvalidAmount, http.StatusBadRequest},
	{payment.ErrPartyNotMember, http.StatusBadRequest},
	{payment.ErrVerifiedDeletion, http.StatusBadRequest},

	{otp.ErrNotFound, http.StatusUnauthorized},
	{otp.ErrExpired, http.StatusUnauthorized},
	{otp.ErrMismatch, http.StatusUnauthorized},
	{otp.ErrTooManyAttempts, http.StatusTooManyRequests},

	{ledger.ErrNotMember, http.StatusForbidden},
	{ledger.ErrNotAllowed, http.StatusForbidden},
	{payment.ErrOnlyPayee, http.StatusForbidden},
	{payment.ErrOnlyParties, http.StatusForbidden},
	{payment.ErrCannotDelete, http.StatusForbidden},

	{ledger.ErrNotFound, http.StatusNotFound},
	{ledger.ErrExpenseNotFound, http.StatusNotFound},
	{ledger.ErrUserNotFound, http.StatusNotFound},
	{payment.ErrNotFound, http.StatusNotFound},
	{payment.ErrUnknownUser, http.StatusNotFound},

	{user.ErrEmailExists, http.StatusConflict},
	{payment.ErrNotPending, http.StatusConflict},
}

// statusFor maps a domain error to its HTTP status; unknown errors are 500.
func statusFor(err error) int {
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error. Unexpected errors are logged and hidden
// behind a generic message.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error, action string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "failed to "+action, "error", err, "request_id", chimiddleware.GetReqID(r.Context()))
		writeError(w, status, "internal server error")
		return
	}

	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, status, map[string]any{
			"error":   "invalid expense",
			"details": verr.Errors,
		})
		return
	}
	writeError(w, status, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

var errInvalidBody = errors.New("invalid request body")

// normalizer is implemented by request bodies that tidy their fields before
// they are validated.
type normalizer interface {
	normalize()
}

// decodeJSON strictly decodes the request body into dst, normalizes it and
// checks its validate tags. Validation failures are *validation.Error.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errInvalidBody
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	return validation.Struct(dst)
}

// badRequest reports a decodeJSON failure.
func badRequest(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}
	writeError(w, http.StatusBadRequest, errInvalidBody.Error())
}

func uuidParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}
