package database

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

func TestCreateAccount(t *testing.T) {
	ds, mock := newTestDatasource(t)

	account := model.Account{
		Number:     "1234567890",
		Name:       gofakeit.Name(),
		IdentityID: gofakeit.UUID(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.accounts")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.balances")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := ds.CreateAccount(context.Background(), account, "INR")
	require.NoError(t, err)
	assert.NotEmpty(t, created.AccountID)
	assert.Contains(t, created.AccountID, "acc_")
	assert.Equal(t, model.AccountActive, created.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountDuplicateNumber(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.accounts")).
		WillReturnError(uniqueViolationErr())
	mock.ExpectRollback()

	_, err := ds.CreateAccount(context.Background(), model.Account{Number: "1234567890"}, "INR")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountByIDNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM artha.accounts")).
		WithArgs("acc_missing").
		WillReturnError(sql.ErrNoRows)

	_, err := ds.GetAccountByID(context.Background(), "acc_missing")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestUpdateAccountStatus(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.accounts SET status")).
		WithArgs("acc_1", model.AccountFrozen).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ds.UpdateAccountStatus(context.Background(), "acc_1", model.AccountFrozen)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAccountStatusNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.accounts SET status")).
		WithArgs("acc_missing", model.AccountFrozen).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ds.UpdateAccountStatus(context.Background(), "acc_missing", model.AccountFrozen)
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestGetBalance(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM artha.balances")).
		WithArgs("acc_1", "INR").
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "currency", "balance", "version", "created_at", "updated_at"}).
			AddRow("acc_1", "INR", int64(75000), int64(3), gofakeit.Date(), gofakeit.Date()))

	balance, err := ds.GetBalance(context.Background(), "acc_1", "INR")
	require.NoError(t, err)
	assert.Equal(t, int64(75000), balance.BalanceMinor)
	assert.Equal(t, int64(3), balance.Version)
}
