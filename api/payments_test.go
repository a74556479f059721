package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/billbatista/zensplit/balance"
	"github.com/billbatista/zensplit/eventlogger"
	"github.com/billbatista/zensplit/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclarePayment(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("a@x.com")
	ledgerID := uuid.New()

	rec := env.do(http.MethodPost, "/payments",
		`{"ledger_id":"`+ledgerID.String()+`","payee":"b@x.com","amount":"25.50","note":"cab"}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	in := env.payments.gotDeclare
	assert.Equal(t, uuid.NullUUID{UUID: ledgerID, Valid: true}, in.LedgerID)
	assert.Equal(t, "a@x.com", in.Payer)
	assert.Equal(t, 25.5, in.Amount)
	assert.Equal(t, "a@x.com", in.RequestedBy)

	var got payment.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, balance.StatusPending, got.Status)
	assert.Equal(t, []string{eventlogger.TypePaymentDeclared}, env.events.types())

	rec = env.do(http.MethodPost, "/payments", `{"payee":"b@x.com","amount":0}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"amount must be a positive amount"}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/payments", `{"amount":5}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"payee is required"}`, rec.Body.String())
	assert.Len(t, env.events.types(), 1)

	env.payments.err = payment.ErrSameParty
	rec = env.do(http.MethodPost, "/payments", `{"payee":"a@x.com","amount":5}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.payments.gotDeclare.LedgerID.Valid)
}

func TestListPayments(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("a@x.com")

	rec := env.do(http.MethodGet, "/payments", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.False(t, env.payments.gotLedger.Valid)
	assert.Equal(t, "a@x.com", env.payments.gotBy)

	ledgerID := uuid.New()
	rec = env.do(http.MethodGet, "/payments?ledger_id="+ledgerID.String(), "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uuid.NullUUID{UUID: ledgerID, Valid: true}, env.payments.gotLedger)

	rec = env.do(http.MethodGet, "/payments?ledger_id=bogus", "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentTransitions(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("a@x.com")
	id := uuid.New()

	rec := env.do(http.MethodPost, "/payments/"+id.String()+"/verify", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"verified"`)

	rec = env.do(http.MethodPost, "/payments/"+id.String()+"/cancel", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"cancelled"`)

	rec = env.do(http.MethodDelete, "/payments/"+id.String(), "", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []string{
		eventlogger.TypePaymentVerified,
		eventlogger.TypePaymentCancelled,
		eventlogger.TypePaymentDeleted,
	}, env.events.types())
}

func TestPaymentTransitions_Errors(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("a@x.com")
	path := "/payments/" + uuid.NewString()

	tests := []struct {
		err    error
		method string
		path   string
		want   int
	}{
		{payment.ErrOnlyPayee, http.MethodPost, path + "/verify", http.StatusForbidden},
		{payment.ErrNotPending, http.MethodPost, path + "/verify", http.StatusConflict},
		{payment.ErrOnlyParties, http.MethodPost, path + "/cancel", http.StatusForbidden},
		{payment.ErrNotFound, http.MethodPost, path + "/cancel", http.StatusNotFound},
		{payment.ErrVerifiedDeletion, http.MethodDelete, path, http.StatusBadRequest},
		{payment.ErrCannotDelete, http.MethodDelete, path, http.StatusForbidden},
	}
	for _, tt := range tests {
		env.payments.err = tt.err
		rec := env.do(tt.method, tt.path, "", cookie)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}

	rec := env.do(http.MethodPost, "/payments/not-a-uuid/verify", "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.events.types())
}
