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

func expectLoanRow(mock sqlmock.Sqlmock, loanID string, status model.LoanStatus, proof, terms bool) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM artha.loans")).
		WithArgs(loanID).
		WillReturnRows(sqlmock.NewRows([]string{"loan_id", "account_id", "currency", "principal", "annual_rate", "tenure_months", "emi", "paid_amount", "status", "proof_of_income", "terms_accepted", "disbursed_at", "created_at", "meta_data"}).
			AddRow(loanID, "acc_1", "INR", int64(50000000), "10.5", 24, int64(2318800), int64(0), status, proof, terms, nil, time.Now(), nil))
}

func TestRequestLoanBelowMinimum(t *testing.T) {
	engine, _, _ := newTestArtha(t)

	_, err := engine.RequestLoan(context.Background(), model.Loan{
		AccountID:      "acc_1",
		Currency:       "INR",
		PrincipalMinor: 50000,
		AnnualRate:     decimal.NewFromFloat(10.5),
		TenureMonths:   12,
	})
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
}

func TestRequestLoan(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	expectAccountRow(mock, "acc_1", model.AccountActive)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.loans")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	loan, err := engine.RequestLoan(context.Background(), model.Loan{
		AccountID:      "acc_1",
		Currency:       "INR",
		PrincipalMinor: 50000000,
		AnnualRate:     decimal.NewFromFloat(10.5),
		TenureMonths:   24,
		ProofOfIncome:  true,
		TermsAccepted:  true,
	})
	require.NoError(t, err)
	assert.Contains(t, loan.LoanID, "lon_")
	assert.Equal(t, model.LoanRequested, loan.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisburseLoanRequiresDocuments(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	expectLoanRow(mock, "lon_1", model.LoanRequested, false, true)

	_, err := engine.DisburseLoan(context.Background(), "lon_1", "ref_disb_1")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisburseLoanAlreadyActive(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	expectLoanRow(mock, "lon_1", model.LoanActive, true, true)

	_, err := engine.DisburseLoan(context.Background(), "lon_1", "ref_disb_1")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrAlreadyTerminal))
}

// Installments must be paid earliest-pending first unless the operator forces
// a specific row.
func TestRepayInstallmentOutOfOrder(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	expectLoanRow(mock, "lon_1", model.LoanActive, true, true)
	expectAccountRow(mock, "acc_1", model.AccountActive)
	mock.ExpectQuery(regexp.QuoteMeta("FROM artha.loan_installments")).
		WithArgs("lon_1").
		WillReturnRows(sqlmock.NewRows([]string{"loan_id", "sequence", "due_date", "principal", "interest", "total", "status", "paid_at"}).
			AddRow("lon_1", 1, time.Now(), int64(1881300), int64(437500), int64(2318800), model.InstallmentPending, nil).
			AddRow("lon_1", 2, time.Now().AddDate(0, 1, 0), int64(1897800), int64(421000), int64(2318800), model.InstallmentPending, nil))

	_, err := engine.RepayInstallment(context.Background(), "lon_1", 2, "ref_emi_2", false)
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInstallmentOutOfOrder))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepayFinalInstallmentClosesLoan(t *testing.T) {
	engine, mock, _ := newTestArtha(t)

	expectLoanRow(mock, "lon_1", model.LoanActive, true, true)
	expectAccountRow(mock, "acc_1", model.AccountActive)
	mock.ExpectQuery(regexp.QuoteMeta("FROM artha.loan_installments")).
		WithArgs("lon_1").
		WillReturnRows(sqlmock.NewRows([]string{"loan_id", "sequence", "due_date", "principal", "interest", "total", "status", "paid_at"}).
			AddRow("lon_1", 23, time.Now().AddDate(0, -1, 0), int64(2280000), int64(38800), int64(2318800), model.InstallmentPaid, time.Now()).
			AddRow("lon_1", 24, time.Now(), int64(2299100), int64(19650), int64(2318750), model.InstallmentPending, nil))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.loan_installments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.balances")).
		WillReturnResult(sqlmock.NewResult(1, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance FROM artha.balances")).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(5000000)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.balances")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artha.transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE artha.loans")).
		WithArgs("lon_1", int64(2318750), model.LoanClosed).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	installment, err := engine.RepayInstallment(context.Background(), "lon_1", 24, "ref_emi_24", false)
	require.NoError(t, err)
	assert.Equal(t, model.InstallmentPaid, installment.Status)
	assert.NotNil(t, installment.PaidAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreviewEMI(t *testing.T) {
	engine, _, _ := newTestArtha(t)

	emi, totalInterest := engine.PreviewEMI(50000000, decimal.NewFromFloat(10.5), 24, "INR")
	assert.InDelta(t, 23188, float64(emi)/100, 2)
	assert.Greater(t, totalInterest, int64(0))
	// Total collected equals principal plus interest.
	schedule := model.BuildAmortizationSchedule(&model.Loan{
		PrincipalMinor: 50000000,
		AnnualRate:     decimal.NewFromFloat(10.5),
		TenureMonths:   24,
		Currency:       "INR",
		EMIMinor:       emi,
	}, time.Now())
	var principal int64
	for _, row := range schedule {
		principal += row.PrincipalMinor
	}
	assert.Equal(t, int64(50000000), principal)
}
