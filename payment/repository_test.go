package payment

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/billbatista/zensplit/balance"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*repository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewRepository(db), mock, db
}

var columns = []string{"id", "ledger_id", "payer", "payee", "amount", "note", "status", "created_by", "created_at", "verified_at", "verified_by"}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	p, err := NewPayment(uuid.NullUUID{}, "b@x.com", "a@x.com", 12.5, "cab", "b@x.com")
	require.NoError(t, err)

	mock.ExpectExec(`^INSERT\s+INTO\s+payments\s*\(id,\s*ledger_id,\s*payer,\s*payee,\s*amount`).
		WithArgs(p.ID, nil, "b@x.com", "a@x.com", int64(1250), "cab", "pending", "b@x.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), *p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	p, err := NewPayment(uuid.NullUUID{}, "b@x.com", "a@x.com", 12.5, "", "b@x.com")
	require.NoError(t, err)

	mock.ExpectExec(`^INSERT\s+INTO\s+payments`).WillReturnError(errors.New("db down"))

	err = repo.Create(context.Background(), *p)
	assert.EqualError(t, err, "inserting payment: db down")
}

func TestGetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		id, ledgerID := uuid.New(), uuid.New()
		verifiedAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		mock.ExpectQuery(`(?s)^SELECT\s+id,\s*ledger_id.*FROM\s+payments\s+WHERE\s+id\s*=\s*\$1$`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(id.String(), ledgerID.String(), "b@x.com", "a@x.com", int64(999), "", "verified", "b@x.com", verifiedAt, verifiedAt, "a@x.com"))

		p, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 9.99, p.Amount)
		assert.Equal(t, balance.StatusVerified, p.Status)
		assert.True(t, p.LedgerID.Valid)
		assert.Equal(t, ledgerID, p.LedgerID.UUID)
		require.NotNil(t, p.VerifiedAt)
		assert.Equal(t, verifiedAt, *p.VerifiedAt)
		assert.Equal(t, "a@x.com", p.VerifiedBy)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`^SELECT\s+id`).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListForUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)WHERE\s+\(payer\s*=\s*\$1\s+OR\s+payee\s*=\s*\$1\).*ORDER\s+BY\s+created_at\s+DESC$`).
		WithArgs("a@x.com", nil).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(uuid.NewString(), nil, "b@x.com", "a@x.com", int64(100), "", "pending", "b@x.com", now, nil, "").
			AddRow(uuid.NewString(), nil, "a@x.com", "c@x.com", int64(250), "lunch", "cancelled", "a@x.com", now, nil, ""))

	payments, err := repo.ListForUser(context.Background(), "a@x.com", uuid.NullUUID{})
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.False(t, payments[0].LedgerID.Valid)
	assert.Nil(t, payments[0].VerifiedAt)
	assert.Equal(t, 2.5, payments[1].Amount)
	assert.Equal(t, "lunch", payments[1].Note)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSettlements(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ledgerID := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(`(?s)WHERE\s+ledger_id\s*=\s*\$1\s+AND\s+status\s*=\s*\$2`).
		WithArgs(ledgerID, "verified").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(uuid.NewString(), ledgerID.String(), "b@x.com", "a@x.com", int64(6000), "", "verified", "b@x.com", now, now, "a@x.com"))

	settlements, err := repo.ListSettlements(context.Background(), ledgerID)
	require.NoError(t, err)
	assert.Equal(t, []balance.Payment{
		{Payer: "b@x.com", Payee: "a@x.com", Amount: 60, Status: balance.StatusVerified},
	}, settlements)
}

func TestUpdateStatus(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	p, err := NewPayment(uuid.NullUUID{}, "b@x.com", "a@x.com", 10, "", "b@x.com")
	require.NoError(t, err)
	require.NoError(t, p.Verify("a@x.com", time.Now().UTC()))

	mock.ExpectExec(`^UPDATE\s+payments\s+SET\s+status\s*=\s*\$1.*WHERE\s+id\s*=\s*\$4\s+AND\s+status\s*=\s*\$5$`).
		WithArgs("verified", sqlmock.AnyArg(), "a@x.com", p.ID, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^UPDATE\s+payments`).
		WithArgs("verified", sqlmock.AnyArg(), "a@x.com", p.ID, "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), *p))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), *p), ErrNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`^DELETE\s+FROM\s+payments\s+WHERE\s+id\s*=\s*\$1\s+AND\s+status\s*<>\s*\$2$`).
		WithArgs(id, "verified").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`^DELETE\s+FROM\s+payments`).
		WithArgs(id, "verified").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`^SELECT\s+status\s+FROM\s+payments\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_VerifiedConcurrently(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`^DELETE\s+FROM\s+payments`).
		WithArgs(id, "verified").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`^SELECT\s+status\s+FROM\s+payments`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("verified"))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrVerifiedDeletion)
	assert.NoError(t, mock.ExpectationsWereMet())
}
