package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/billbatista/zensplit/balance"
	"github.com/billbatista/zensplit/eventlogger"
	"github.com/billbatista/zensplit/middleware"
	"github.com/billbatista/zensplit/payment"
	"github.com/google/uuid"
)

type declarePaymentRequest struct {
	LedgerID *uuid.UUID     `json:"ledger_id"`
	Payer    string         `json:"payer" validate:"omitempty,email"`
	Payee    string         `json:"payee" validate:"required,email"`
	Amount   balance.Amount `json:"amount" validate:"positive_amount"`
	Note     string         `json:"note" validate:"max=200"`
}

func (req *declarePaymentRequest) normalize() {
	req.Payer = balance.NormalizeEmail(req.Payer)
	req.Payee = balance.NormalizeEmail(req.Payee)
	req.Note = strings.TrimSpace(req.Note)
}

func (h *Handlers) listPayments(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.GetEmail(r.Context())

	var ledgerID uuid.NullUUID
	if raw := r.URL.Query().Get("ledger_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid ledger id")
			return
		}
		ledgerID = uuid.NullUUID{UUID: id, Valid: true}
	}

	payments, err := h.payments.List(r.Context(), email, ledgerID)
	if err != nil {
		h.fail(w, r, err, "list payments")
		return
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	respondJSON(w, http.StatusOK, payments)
}

func (h *Handlers) declarePayment(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.GetEmail(r.Context())

	var req declarePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	in := payment.DeclareInput{
		Payer:       req.Payer,
		Payee:       req.Payee,
		Amount:      req.Amount.Float(),
		Note:        req.Note,
		RequestedBy: email,
	}
	if in.Payer == "" {
		in.Payer = email
	}
	if req.LedgerID != nil {
		in.LedgerID = uuid.NullUUID{UUID: *req.LedgerID, Valid: true}
	}

	p, err := h.payments.Declare(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "declare payment")
		return
	}
	h.publish(r, eventlogger.TypePaymentDeclared, p.DeclaredEvent())
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) verifyPayment(w http.ResponseWriter, r *http.Request) {
	h.transitionPayment(w, r, h.payments.Verify, eventlogger.TypePaymentVerified, "verify payment")
}

func (h *Handlers) cancelPayment(w http.ResponseWriter, r *http.Request) {
	h.transitionPayment(w, r, h.payments.Cancel, eventlogger.TypePaymentCancelled, "cancel payment")
}

type paymentTransition func(ctx context.Context, id uuid.UUID, by string) (*payment.Payment, error)

func (h *Handlers) transitionPayment(w http.ResponseWriter, r *http.Request, apply paymentTransition, eventType, action string) {
	paymentID, ok := uuidParam(r, "paymentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	email, _ := middleware.GetEmail(r.Context())

	p, err := apply(r.Context(), paymentID, email)
	if err != nil {
		h.fail(w, r, err, action)
		return
	}
	h.publish(r, eventType, payment.StatusChangedEvent{
		PaymentID: p.ID.String(),
		Status:    string(p.Status),
		ChangedBy: email,
	})
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) deletePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := uuidParam(r, "paymentID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	email, _ := middleware.GetEmail(r.Context())

	if err := h.payments.Delete(r.Context(), paymentID, email); err != nil {
		h.fail(w, r, err, "delete payment")
		return
	}
	h.publish(r, eventlogger.TypePaymentDeleted, payment.StatusChangedEvent{
		PaymentID: paymentID.String(),
		Status:    "deleted",
		ChangedBy: email,
	})
	w.WriteHeader(http.StatusNoContent)
}
