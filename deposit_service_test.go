package artha

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

func expectDepositRow(mock sqlmock.Sqlmock, depositID string, depType model.DepositType, status model.DepositStatus, paidPeriods int, maturity time.Time) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM artha.deposits")).
		WithArgs(depositID).
		WillReturnRows(sqlmock.NewRows([]string{"deposit_id", "account_id", "type", "currency", "principal", "annual_rate", "tenure_months", "maturity_amount", "paid_periods", "start_date", "maturity_date", "status", "created_at", "meta_data"}).
			AddRow(depositID, "acc_1", depType, "INR", int64(1000000), "6.5", 12, int64(1065000), paidPeriods, time.Now().AddDate(-1, 0, 0), maturity, status, time.Now(), nil))
}

func TestOpenFixedDepositService(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	expectAccountRow(mock, "acc_1", model.AccountActive)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.deposits")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.balances")).
		WillReturnResult(sqlmock.NewResult(1, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance FROM artha.balances")).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(2000000)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.balances")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	dep, err := engine.OpenFixedDeposit(context.Background(), model.Deposit{
		AccountID:      "acc_1",
		Currency:       "INR",
		PrincipalMinor: 1000000,
		AnnualRate:     decimal.NewFromFloat(6.5),
		TenureMonths:   12,
	}, "ref_fd_1")
	require.NoError(t, err)
	assert.Equal(t, model.DepositFixed, dep.Type)
	assert.Equal(t, int64(1065000), dep.MaturityMinor)
	assert.Equal(t, model.DepositActive, dep.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenDepositBelowMinimum(t *testing.T) {
	engine, _, _ := newTestArtha(t)

	_, err := engine.OpenFixedDeposit(context.Background(), model.Deposit{
		AccountID:      "acc_1",
		Currency:       "INR",
		PrincipalMinor: 100,
		AnnualRate:     decimal.NewFromFloat(6.5),
		TenureMonths:   12,
	}, "ref_fd_2")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
}

func TestMatureDepositBeforeMaturityRejected(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	expectDepositRow(mock, "dep_1", model.DepositFixed, model.DepositActive, 0, time.Now().AddDate(0, 3, 0))

	err := engine.MatureDeposit(context.Background(), "dep_1")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
}

func TestBreakDepositTerminalRejected(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	expectDepositRow(mock, "dep_1", model.DepositFixed, model.DepositMatured, 0, time.Now())

	_, err := engine.BreakDeposit(context.Background(), "dep_1")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrAlreadyTerminal))
}

func TestBreakFixedDeposit(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	expectDepositRow(mock, "dep_1", model.DepositFixed, model.DepositActive, 0, time.Now().AddDate(0, 6, 0))
	expectAccountRow(mock, "acc_1", model.AccountActive)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.deposits")).
		WithArgs("dep_1", model.DepositBroken, model.DepositActive).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.balances")).
		WillReturnResult(sqlmock.NewResult(1, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance FROM artha.balances")).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(0)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.balances")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	refund, err := engine.BreakDeposit(context.Background(), "dep_1")
	require.NoError(t, err)
	assert.Equal(t, int64(980000), refund)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayRDInstallmentOnFixedDepositRejected(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	expectDepositRow(mock, "dep_1", model.DepositFixed, model.DepositActive, 0, time.Now().AddDate(0, 6, 0))

	err := engine.PayRDInstallment(context.Background(), "dep_1", 1, "ref_rd_1")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
}

// The maturity sweep settles every deposit past its date; a deposit that
// lost the race to a manual break is skipped quietly.
func TestSweepMaturedDeposits(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	maturity := time.Now().AddDate(0, 0, -1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM artha.deposits")).
		WillReturnRows(sqlmock.NewRows([]string{"deposit_id", "account_id", "type", "currency", "principal", "annual_rate", "tenure_months", "maturity_amount", "paid_periods", "start_date", "maturity_date", "status", "created_at", "meta_data"}).
			AddRow("dep_1", "acc_1", model.DepositFixed, "INR", int64(1000000), "6.5", 12, int64(1065000), 0, time.Now().AddDate(-1, 0, 0), maturity, model.DepositActive, time.Now(), nil))

	expectDepositRow(mock, "dep_1", model.DepositFixed, model.DepositActive, 0, maturity)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.deposits")).
		WithArgs("dep_1", model.DepositMatured, model.DepositActive).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := engine.SweepMaturedDeposits(context.Background(), time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
