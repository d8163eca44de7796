package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

func TestOpenFixedDeposit(t *testing.T) {
	ds, mock := newTestDatasource(t)

	dep := model.Deposit{
		AccountID:      "acc_1",
		Type:           model.DepositFixed,
		Currency:       "INR",
		PrincipalMinor: 1000000,
		AnnualRate:     decimal.NewFromFloat(6.5),
		TenureMonths:   12,
		MaturityMinor:  1065000,
		StartDate:      time.Now(),
		MaturityDate:   time.Now().AddDate(0, 12, 0),
	}
	entry := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		AccountID:     "acc_1",
		Reference:     "ref_fd_open",
		AmountMinor:   1000000,
		Direction:     model.DirectionDebit,
		Currency:      "INR",
		Type:          model.TypeInvestment,
		CreatedAt:     time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.deposits")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectBalanceMutation(mock, "acc_1", "INR", 2000000)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.balances")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := ds.OpenDeposit(context.Background(), dep, entry)
	require.NoError(t, err)
	assert.Equal(t, model.DepositActive, created.Status)
	assert.NotEmpty(t, created.DepositID)
	assert.Equal(t, int64(1000000), entry.RunningBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// RD deposits collect through installments, so opening one writes no entry.
func TestOpenRecurringDepositNoEntry(t *testing.T) {
	ds, mock := newTestDatasource(t)

	dep := model.Deposit{
		AccountID:      "acc_1",
		Type:           model.DepositRecurring,
		Currency:       "INR",
		PrincipalMinor: 200000,
		AnnualRate:     decimal.NewFromFloat(7.5),
		TenureMonths:   12,
		MaturityMinor:  2497500,
		StartDate:      time.Now(),
		MaturityDate:   time.Now().AddDate(0, 12, 0),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.deposits")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := ds.OpenDeposit(context.Background(), dep, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, created.PaidPeriods)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleDeposit(t *testing.T) {
	ds, mock := newTestDatasource(t)

	entry := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		AccountID:     "acc_1",
		Reference:     "ref_fd_mature",
		AmountMinor:   1065000,
		Direction:     model.DirectionCredit,
		Currency:      "INR",
		Type:          model.TypeDepositMaturity,
		CreatedAt:     time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.deposits")).
		WithArgs("dep_1", model.DepositMatured, model.DepositActive).
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectBalanceMutation(mock, "acc_1", "INR", 0)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.balances")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := ds.SettleDeposit(context.Background(), "dep_1", model.DepositMatured, entry)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Settlement is first-wins: once a deposit has left ACTIVE, a racing break or
// sweep attempt matches zero rows and fails without touching the ledger.
func TestSettleDepositAlreadyTerminal(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.deposits")).
		WithArgs("dep_1", model.DepositBroken, model.DepositActive).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := ds.SettleDeposit(context.Background(), "dep_1", model.DepositBroken, &model.Transaction{})
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrAlreadyTerminal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRDInstallment(t *testing.T) {
	ds, mock := newTestDatasource(t)

	entry := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		AccountID:     "acc_1",
		Reference:     "ref_rd_1",
		AmountMinor:   200000,
		Direction:     model.DirectionDebit,
		Currency:      "INR",
		Type:          model.TypeRDInstallment,
		CreatedAt:     time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.deposits")).
		WithArgs("dep_1", 1, model.DepositActive, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectBalanceMutation(mock, "acc_1", "INR", 500000)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.balances")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := ds.RecordRDInstallment(context.Background(), "dep_1", 1, entry)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRDInstallmentOutOfOrder(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.deposits")).
		WithArgs("dep_1", 3, model.DepositActive, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := ds.RecordRDInstallment(context.Background(), "dep_1", 3, &model.Transaction{})
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInstallmentOutOfOrder))
	assert.NoError(t, mock.ExpectationsWereMet())
}
