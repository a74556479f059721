package api

import (
	"net/http"
	"strings"

	"github.com/billbatista/zensplit/balance"
	"github.com/billbatista/zensplit/eventlogger"
	"github.com/billbatista/zensplit/ledger"
	"github.com/billbatista/zensplit/middleware"
)

type createLedgerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Currency string `json:"currency" validate:"required,alpha,len=3"`
}

func (req *createLedgerRequest) normalize() {
	req.Name = strings.TrimSpace(req.Name)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
}

type addMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (req *addMemberRequest) normalize() {
	req.Email = balance.NormalizeEmail(req.Email)
}

// Expense content is checked by the ledger so every problem is reported at
// once; only the shape of the request is validated here.
type addExpenseRequest struct {
	Description string               `json:"description" validate:"max=200"`
	Amount      balance.Amount       `json:"amount"`
	PaidBy      string               `json:"paid_by" validate:"omitempty,email"`
	SplitType   ledger.SplitType     `json:"split_type" validate:"omitempty,oneof=equal percentage exact"`
	Category    string               `json:"category" validate:"max=50"`
	Percentages []balance.Percentage `json:"percentages"`
	Splits      balance.Splits       `json:"splits"`
}

func (req *addExpenseRequest) normalize() {
	req.PaidBy = balance.NormalizeEmail(req.PaidBy)
	req.Category = strings.TrimSpace(req.Category)
}

func (h *Handlers) listLedgers(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	ledgers, err := h.ledgers.Ledgers(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "list ledgers")
		return
	}
	if ledgers == nil {
		ledgers = []ledger.Ledger{}
	}
	respondJSON(w, http.StatusOK, ledgers)
}

func (h *Handlers) createLedger(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req createLedgerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	l, err := h.ledgers.CreateLedger(r.Context(), req.Name, req.Currency, userID)
	if err != nil {
		h.fail(w, r, err, "create ledger")
		return
	}
	h.publish(r, eventlogger.TypeLedgerCreated, ledger.LedgerCreatedEvent{
		LedgerID:  l.ID.String(),
		Name:      l.Name,
		Currency:  l.Currency,
		CreatedBy: l.CreatedBy.String(),
		CreatedAt: l.CreatedAt,
	})
	respondJSON(w, http.StatusCreated, l)
}

func (h *Handlers) listMembers(w http.ResponseWriter, r *http.Request) {
	ledgerID, ok := uuidParam(r, "ledgerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}
	email, _ := middleware.GetEmail(r.Context())

	members, err := h.ledgers.Members(r.Context(), ledgerID, email)
	if err != nil {
		h.fail(w, r, err, "list members")
		return
	}
	if members == nil {
		members = []string{}
	}
	respondJSON(w, http.StatusOK, members)
}

func (h *Handlers) addMember(w http.ResponseWriter, r *http.Request) {
	ledgerID, ok := uuidParam(r, "ledgerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}
	requester, _ := middleware.GetEmail(r.Context())

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	email := req.Email

	if err := h.ledgers.AddMember(r.Context(), ledgerID, requester, email); err != nil {
		h.fail(w, r, err, "add member")
		return
	}
	h.publish(r, eventlogger.TypeMemberAdded, ledger.MemberAddedEvent{
		LedgerID: ledgerID.String(),
		Email:    email,
		AddedBy:  requester,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listExpenses(w http.ResponseWriter, r *http.Request) {
	ledgerID, ok := uuidParam(r, "ledgerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}
	email, _ := middleware.GetEmail(r.Context())

	expenses, err := h.ledgers.Expenses(r.Context(), ledgerID, email)
	if err != nil {
		h.fail(w, r, err, "list expenses")
		return
	}
	if expenses == nil {
		expenses = []ledger.Expense{}
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (h *Handlers) addExpense(w http.ResponseWriter, r *http.Request) {
	ledgerID, ok := uuidParam(r, "ledgerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}
	id, _ := middleware.GetIdentity(r.Context())

	var req addExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	payer := req.PaidBy
	if payer == "" {
		payer = id.Email
	}

	expense, err := h.ledgers.AddExpense(r.Context(), ledger.ExpenseInput{
		LedgerID:    ledgerID,
		Description: req.Description,
		Amount:      req.Amount.Float(),
		Payer:       payer,
		SplitType:   req.SplitType,
		Category:    req.Category,
		Percentages: req.Percentages,
		Splits:      req.Splits,
		CreatedBy:   id.UserID,
		CreatorMail: id.Email,
	})
	if err != nil {
		h.fail(w, r, err, "add expense")
		return
	}
	h.publish(r, eventlogger.TypeExpenseAdded, expense.AddedEvent())
	respondJSON(w, http.StatusCreated, expense)
}

func (h *Handlers) deleteExpense(w http.ResponseWriter, r *http.Request) {
	ledgerID, ok := uuidParam(r, "ledgerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}
	expenseID, ok := uuidParam(r, "expenseID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	userID, _ := middleware.GetUserID(r.Context())

	if err := h.ledgers.DeleteExpense(r.Context(), ledgerID, expenseID, userID); err != nil {
		h.fail(w, r, err, "delete expense")
		return
	}
	h.publish(r, eventlogger.TypeExpenseDeleted, ledger.ExpenseDeletedEvent{
		ExpenseID: expenseID.String(),
		LedgerID:  ledgerID.String(),
		DeletedBy: userID.String(),
	})
	w.WriteHeader(http.StatusNoContent)
}

// balances returns the ledger's balance sheet from the caller's point of view.
func (h *Handlers) balances(w http.ResponseWriter, r *http.Request) {
	ledgerID, ok := uuidParam(r, "ledgerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}
	email, _ := middleware.GetEmail(r.Context())

	result, err := h.ledgers.Balances(r.Context(), ledgerID, email)
	if err != nil {
		h.fail(w, r, err, "calculate balances")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) ledgerActivity(w http.ResponseWriter, r *http.Request) {
	ledgerID, ok := uuidParam(r, "ledgerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}
	email, _ := middleware.GetEmail(r.Context())

	if _, err := h.ledgers.Members(r.Context(), ledgerID, email); err != nil {
		h.fail(w, r, err, "load ledger activity")
		return
	}
	if h.history == nil {
		respondJSON(w, http.StatusOK, []eventlogger.Event{})
		return
	}

	events, err := eventlogger.LedgerActivity(r.Context(), h.history, ledgerID.String(), eventlogger.LedgerActivityTypes...)
	if err != nil {
		h.fail(w, r, err, "load ledger activity")
		return
	}
	respondJSON(w, http.StatusOK, events)
}
