package artha

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/arthabank/artha/config"
	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

const maxLoanTenureMonths = 360

// RequestLoan records a loan application in REQUESTED state. Nothing moves on
// the ledger until disbursal.
func (a *Artha) RequestLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	ctx, span := tracer.Start(ctx, "RequestLoan")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return model.Loan{}, err
	}

	if loan.PrincipalMinor < cnf.Engine.MinLoanPrincipal {
		return model.Loan{}, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("loan principal must be at least %d", cnf.Engine.MinLoanPrincipal), nil)
	}
	if loan.AnnualRate.IsNegative() {
		return model.Loan{}, apierror.NewAPIError(apierror.ErrInvalidInput, "annual rate cannot be negative", nil)
	}
	if loan.TenureMonths < 1 || loan.TenureMonths > maxLoanTenureMonths {
		return model.Loan{}, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("tenure must be between 1 and %d months", maxLoanTenureMonths), nil)
	}
	if _, err := a.checkAccountActive(ctx, loan.AccountID); err != nil {
		return model.Loan{}, err
	}

	return a.datasource.CreateLoan(ctx, loan)
}

// DisburseLoan activates a requested loan: the EMI is fixed, the full
// amortization schedule is written and the principal is credited to the
// borrower, all atomically. Requires proof of income and accepted terms.
func (a *Artha) DisburseLoan(ctx context.Context, loanID, reference string) (*model.Loan, error) {
	ctx, span := tracer.Start(ctx, "DisburseLoan")
	defer span.End()

	loan, err := a.datasource.GetLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != model.LoanRequested {
		return nil, apierror.NewAPIError(apierror.ErrAlreadyTerminal,
			fmt.Sprintf("loan %s is not in REQUESTED state", loanID), nil)
	}
	if !loan.ProofOfIncome || !loan.TermsAccepted {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			"loan cannot be disbursed without proof of income and accepted terms", nil)
	}
	if _, err := a.checkAccountActive(ctx, loan.AccountID); err != nil {
		return nil, err
	}

	locker, err := a.acquireLock(ctx, loan.AccountID)
	if err != nil {
		return nil, err
	}
	defer releaseLock(ctx, locker)

	loan.EMIMinor = model.ComputeEMI(loan.PrincipalMinor, loan.AnnualRate, loan.TenureMonths, loan.Currency)
	loan.DisbursedAt = time.Now()
	loan.Status = model.LoanActive
	schedule := model.BuildAmortizationSchedule(loan, loan.DisbursedAt)

	entry := newEntry(EntryRequest{
		AccountID:   loan.AccountID,
		AmountMinor: loan.PrincipalMinor,
		Currency:    loan.Currency,
		Reference:   reference,
		Type:        model.TypeLoanDisbursal,
		Description: fmt.Sprintf("Disbursal of loan %s", loanID),
	}, model.DirectionCredit)

	if err := a.datasource.DisburseLoan(ctx, loan, schedule, entry); err != nil {
		return nil, err
	}

	if err := a.queue.queueWebhook(NewWebhook{Event: EventLoanDisbursed, Payload: loan}); err != nil {
		logrus.Error("webhook enqueue error: ", err)
	}
	return loan, nil
}

// RepayInstallment collects one installment from the borrower. Rows must be
// paid in sequence order; force lets an operator settle an arbitrary pending
// row for manual corrections. Paying the last pending row closes the loan.
func (a *Artha) RepayInstallment(ctx context.Context, loanID string, sequence int, reference string, force bool) (*model.Installment, error) {
	ctx, span := tracer.Start(ctx, "RepayInstallment")
	defer span.End()

	loan, err := a.datasource.GetLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != model.LoanActive {
		return nil, apierror.NewAPIError(apierror.ErrAlreadyTerminal,
			fmt.Sprintf("loan %s is not active", loanID), nil)
	}
	if _, err := a.checkAccountActive(ctx, loan.AccountID); err != nil {
		return nil, err
	}

	installments, err := a.datasource.GetInstallments(ctx, loanID)
	if err != nil {
		return nil, err
	}

	var target *model.Installment
	pending := 0
	for i := range installments {
		if installments[i].Status != model.InstallmentPending {
			continue
		}
		pending++
		if target == nil && !force {
			// Sequential collection pays the earliest pending row.
			target = &installments[i]
		}
		if force && installments[i].Sequence == sequence {
			target = &installments[i]
		}
	}
	if target == nil {
		return nil, apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("loan %s has no matching pending installment", loanID), nil)
	}
	if !force && target.Sequence != sequence {
		return nil, apierror.NewAPIError(apierror.ErrInstallmentOutOfOrder,
			fmt.Sprintf("installment %d cannot be paid before installment %d", sequence, target.Sequence), nil)
	}

	locker, err := a.acquireLock(ctx, loan.AccountID)
	if err != nil {
		return nil, err
	}
	defer releaseLock(ctx, locker)

	entry := newEntry(EntryRequest{
		AccountID:   loan.AccountID,
		AmountMinor: target.TotalMinor,
		Currency:    loan.Currency,
		Reference:   reference,
		Type:        model.TypeLoanRepayment,
		Description: fmt.Sprintf("Installment %d of loan %s", target.Sequence, loanID),
	}, model.DirectionDebit)

	closeLoan := pending == 1
	if err := a.datasource.PayInstallment(ctx, loanID, target.Sequence, closeLoan, entry); err != nil {
		return nil, err
	}

	now := time.Now()
	target.Status = model.InstallmentPaid
	target.PaidAt = &now

	if err := a.queue.queueWebhook(NewWebhook{Event: EventInstallmentPaid, Payload: target}); err != nil {
		logrus.Error("webhook enqueue error: ", err)
	}
	if closeLoan {
		if err := a.queue.queueWebhook(NewWebhook{Event: EventLoanClosed, Payload: loan}); err != nil {
			logrus.Error("webhook enqueue error: ", err)
		}
	}
	return target, nil
}

func (a *Artha) GetLoan(ctx context.Context, loanID string) (*model.Loan, error) {
	return a.datasource.GetLoanByID(ctx, loanID)
}

func (a *Artha) GetLoansByAccount(ctx context.Context, accountID string) ([]model.Loan, error) {
	return a.datasource.GetLoansByAccount(ctx, accountID)
}

func (a *Artha) GetAmortizationSchedule(ctx context.Context, loanID string) ([]model.Installment, error) {
	return a.datasource.GetInstallments(ctx, loanID)
}

// PreviewEMI quotes an EMI and total interest without creating a loan.
func (a *Artha) PreviewEMI(principalMinor int64, annualRate decimal.Decimal, tenureMonths int, currency string) (emi, totalInterest int64) {
	emi = model.ComputeEMI(principalMinor, annualRate, tenureMonths, currency)
	preview := &model.Loan{
		PrincipalMinor: principalMinor,
		AnnualRate:     annualRate,
		TenureMonths:   tenureMonths,
		Currency:       currency,
		EMIMinor:       emi,
	}
	schedule := model.BuildAmortizationSchedule(preview, time.Now())
	return emi, model.TotalInterestMinor(schedule)
}

// SweepDueInstallments collects every overdue installment it can. Borrowers
// without sufficient funds are skipped and retried on the next sweep; the
// sweep reference makes each collection attempt idempotent.
func (a *Artha) SweepDueInstallments(ctx context.Context, asOf time.Time) error {
	ctx, span := tracer.Start(ctx, "SweepDueInstallments")
	defer span.End()

	due, err := a.datasource.DueInstallments(ctx, asOf)
	if err != nil {
		return err
	}

	for _, installment := range due {
		reference := fmt.Sprintf("ref_sweep_%s_%d", installment.LoanID, installment.Sequence)
		_, err := a.RepayInstallment(ctx, installment.LoanID, installment.Sequence, reference, false)
		if err != nil {
			if apierror.Is(err, apierror.ErrInsufficientFunds) || apierror.Is(err, apierror.ErrAccountFrozen) {
				logrus.Warnf("sweep skipping installment %d of loan %s: %v", installment.Sequence, installment.LoanID, err)
				if whErr := a.queue.queueWebhook(NewWebhook{Event: EventInstallmentOverdue, Payload: installment}); whErr != nil {
					logrus.Error("webhook enqueue error: ", whErr)
				}
				continue
			}
			if apierror.Is(err, apierror.ErrAlreadyTerminal) || apierror.Is(err, apierror.ErrDuplicateReference) {
				continue
			}
			return err
		}
	}
	return nil
}
