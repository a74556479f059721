package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/billbatista/zensplit/balance"
	"github.com/billbatista/zensplit/eventlogger"
	"github.com/billbatista/zensplit/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLedger(t *testing.T) {
	env := newTestEnv(t)
	u, cookie := env.signIn("a@x.com")

	rec := env.do(http.MethodPost, "/ledgers", `{"name":" Goa trip ","currency":"inr"}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got ledger.Ledger
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Goa trip", got.Name)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, u.ID, got.CreatedBy)
	assert.Equal(t, []string{eventlogger.TypeLedgerCreated}, env.events.types())

	rec = env.do(http.MethodPost, "/ledgers", `{"name":"","currency":"INR"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"name is required"}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/ledgers", `{"name":"Trip","currency":"rupees"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"currency must be 3 characters long"}`, rec.Body.String())
	assert.Len(t, env.events.types(), 1)
}

func TestListLedgers_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("a@x.com")

	rec := env.do(http.MethodGet, "/ledgers", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMembers(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("a@x.com")
	ledgerID := uuid.New()
	env.ledgers.members = []string{"a@x.com", "b@x.com"}

	rec := env.do(http.MethodGet, "/ledgers/"+ledgerID.String()+"/members", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["a@x.com","b@x.com"]`, rec.Body.String())
	assert.Equal(t, "a@x.com", env.ledgers.gotViewer)

	rec = env.do(http.MethodPost, "/ledgers/"+ledgerID.String()+"/members", `{"email":" B@X.com "}`, cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "b@x.com", env.ledgers.gotMember)
	assert.Equal(t, []string{eventlogger.TypeMemberAdded}, env.events.types())

	rec = env.do(http.MethodGet, "/ledgers/not-a-uuid/members", "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/ledgers/"+ledgerID.String()+"/members", `{"email":"not-an-email"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"email must be a valid email"}`, rec.Body.String())

	env.ledgers.err = ledger.ErrUserNotFound
	rec = env.do(http.MethodPost, "/ledgers/"+ledgerID.String()+"/members", `{"email":"ghost@x.com"}`, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddExpense(t *testing.T) {
	env := newTestEnv(t)
	u, cookie := env.signIn("a@x.com")
	ledgerID := uuid.New()
	path := "/ledgers/" + ledgerID.String() + "/expenses"

	rec := env.do(http.MethodPost, path, `{"description":"Dinner","amount":"₹1,250","split_type":"equal"}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	in := env.ledgers.gotExpense
	assert.Equal(t, ledgerID, in.LedgerID)
	assert.Equal(t, 1250.0, in.Amount)
	assert.Equal(t, "a@x.com", in.Payer, "payer defaults to the caller")
	assert.Equal(t, u.ID, in.CreatedBy)
	assert.Equal(t, "a@x.com", in.CreatorMail)
	assert.Equal(t, []string{eventlogger.TypeExpenseAdded}, env.events.types())

	rec = env.do(http.MethodPost, path,
		`{"description":"Cab","amount":60,"paid_by":"b@x.com","split_type":"exact","splits":{"a@x.com":20,"b@x.com":40}}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	in = env.ledgers.gotExpense
	assert.Equal(t, "b@x.com", in.Payer)
	assert.Equal(t, balance.Splits{{Participant: "a@x.com", Amount: 20}, {Participant: "b@x.com", Amount: 40}}, in.Splits)
}

func TestAddExpense_Errors(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("a@x.com")
	path := "/ledgers/" + uuid.NewString() + "/expenses"

	env.ledgers.err = ledger.ErrNotMember
	rec := env.do(http.MethodPost, path, `{"description":"x","amount":10}`, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, path, `{"description":"x","amount":10,"split_type":"shares"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"split_type must be one of [equal percentage exact]"}`, rec.Body.String())

	env.ledgers.err = &ledger.ValidationError{Errors: []string{"description is required"}}
	rec = env.do(http.MethodPost, path, `{"amount":10}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid expense","details":["description is required"]}`, rec.Body.String())
	assert.Empty(t, env.events.types())
}

func TestDeleteExpense(t *testing.T) {
	env := newTestEnv(t)
	u, cookie := env.signIn("a@x.com")
	ledgerID, expenseID := uuid.New(), uuid.New()
	path := "/ledgers/" + ledgerID.String() + "/expenses/" + expenseID.String()

	rec := env.do(http.MethodDelete, "/ledgers/"+ledgerID.String()+"/expenses/nope", "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.ledgers.err = ledger.ErrNotAllowed
	rec = env.do(http.MethodDelete, path, "", cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.ledgers.err = nil
	rec = env.do(http.MethodDelete, path, "", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, expenseID, env.ledgers.gotDeleted)
	assert.Equal(t, u.ID, env.ledgers.gotRequester)
	assert.Equal(t, []string{eventlogger.TypeExpenseDeleted}, env.events.types())
}

func TestBalances(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("a@x.com")
	env.ledgers.result = balance.Result{
		Balances: map[string]float64{"b@x.com": -30},
		Summary:  balance.Summary{YouAreOwed: 30, NetBalance: 30},
	}

	rec := env.do(http.MethodGet, "/ledgers/"+uuid.NewString()+"/balances", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", env.ledgers.gotViewer)

	var got balance.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, map[string]float64{"b@x.com": -30}, got.Balances)
	assert.Equal(t, 30.0, got.Summary.YouAreOwed)

	env.ledgers.err = ledger.ErrNotFound
	rec = env.do(http.MethodGet, "/ledgers/"+uuid.NewString()+"/balances", "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerActivity(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("a@x.com")
	ledgerID := uuid.New()

	rec := env.do(http.MethodPost, "/ledgers/"+ledgerID.String()+"/members", `{"email":"b@x.com"}`, cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(http.MethodPost, "/ledgers/"+uuid.NewString()+"/members", `{"email":"c@x.com"}`, cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/ledgers/"+ledgerID.String()+"/activity", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []struct {
		Type string          `json:"event_type"`
		Data json.RawMessage `json:"event_data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, eventlogger.TypeMemberAdded, events[0].Type)
	assert.JSONEq(t, `{"ledger_id":"`+ledgerID.String()+`","email":"b@x.com","added_by":"a@x.com"}`, string(events[0].Data))

	env.ledgers.err = ledger.ErrNotMember
	rec = env.do(http.MethodGet, "/ledgers/"+ledgerID.String()+"/activity", "", cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
