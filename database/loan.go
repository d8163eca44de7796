package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

func (d Datasource) CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	metaDataJSON, err := json.Marshal(loan.MetaData)
	if err != nil {
		return model.Loan{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	loan.LoanID = model.GenerateUUIDWithSuffix("lon")
	loan.CreatedAt = time.Now()
	loan.Status = model.LoanRequested

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO artha.loans
			(loan_id, account_id, currency, principal, annual_rate, tenure_months, emi, paid_amount, status, proof_of_income, terms_accepted, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $12)
	`, loan.LoanID, loan.AccountID, loan.Currency, loan.PrincipalMinor, loan.AnnualRate,
		loan.TenureMonths, loan.EMIMinor, loan.Status, loan.ProofOfIncome, loan.TermsAccepted,
		loan.CreatedAt, metaDataJSON)
	if err != nil {
		return model.Loan{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create loan", err)
	}
	return loan, nil
}

func scanLoan(scanner interface{ Scan(...interface{}) error }) (*model.Loan, error) {
	loan := &model.Loan{}
	var metaDataJSON []byte
	var disbursedAt sql.NullTime
	err := scanner.Scan(&loan.LoanID, &loan.AccountID, &loan.Currency, &loan.PrincipalMinor,
		&loan.AnnualRate, &loan.TenureMonths, &loan.EMIMinor, &loan.PaidMinor, &loan.Status,
		&loan.ProofOfIncome, &loan.TermsAccepted, &disbursedAt, &loan.CreatedAt, &metaDataJSON)
	if err != nil {
		return nil, err
	}
	loan.DisbursedAt = disbursedAt.Time
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &loan.MetaData); err != nil {
			return nil, err
		}
	}
	return loan, nil
}

const loanColumns = `loan_id, account_id, currency, principal, annual_rate, tenure_months, emi, paid_amount, status, proof_of_income, terms_accepted, disbursed_at, created_at, meta_data`

func (d Datasource) GetLoanByID(ctx context.Context, id string) (*model.Loan, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+loanColumns+` FROM artha.loans WHERE loan_id = $1
	`, id)

	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Loan with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve loan", err)
	}
	return loan, nil
}

func (d Datasource) GetLoansByAccount(ctx context.Context, accountID string) ([]model.Loan, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+loanColumns+` FROM artha.loans WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve loans", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan loan row", err)
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read loan rows", err)
	}
	return loans, nil
}

// DisburseLoan activates a REQUESTED loan, writes its amortization schedule
// and credits the principal, all in one transaction. The status-guarded
// UPDATE is the idempotency barrier: a second disbursal attempt matches zero
// rows and the whole transaction rolls back.
func (d Datasource) DisburseLoan(ctx context.Context, loan *model.Loan, schedule []model.Installment, entry *model.Transaction) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE artha.loans SET status = $2, emi = $3, disbursed_at = $4
		WHERE loan_id = $1 AND status = $5
	`, loan.LoanID, model.LoanActive, loan.EMIMinor, loan.DisbursedAt, model.LoanRequested)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to activate loan", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read rows affected", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrAlreadyTerminal,
			fmt.Sprintf("loan %s is not in REQUESTED state", loan.LoanID), nil)
	}

	for _, installment := range schedule {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO artha.loan_installments
				(loan_id, sequence, due_date, principal, interest, total, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, installment.LoanID, installment.Sequence, installment.DueDate,
			installment.PrincipalMinor, installment.InterestMinor, installment.TotalMinor,
			installment.Status)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to write amortization schedule", err)
		}
	}

	if err := applyEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit disbursal", err)
	}
	return nil
}

func scanInstallment(scanner interface{ Scan(...interface{}) error }) (*model.Installment, error) {
	installment := &model.Installment{}
	var paidAt sql.NullTime
	err := scanner.Scan(&installment.LoanID, &installment.Sequence, &installment.DueDate,
		&installment.PrincipalMinor, &installment.InterestMinor, &installment.TotalMinor,
		&installment.Status, &paidAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		installment.PaidAt = &paidAt.Time
	}
	return installment, nil
}

const installmentColumns = `loan_id, sequence, due_date, principal, interest, total, status, paid_at`

func (d Datasource) GetInstallments(ctx context.Context, loanID string) ([]model.Installment, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+installmentColumns+`
		FROM artha.loan_installments
		WHERE loan_id = $1
		ORDER BY sequence ASC
	`, loanID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve installments", err)
	}
	defer rows.Close()

	var installments []model.Installment
	for rows.Next() {
		installment, err := scanInstallment(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan installment row", err)
		}
		installments = append(installments, *installment)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read installment rows", err)
	}
	return installments, nil
}

func (d Datasource) NextPendingInstallment(ctx context.Context, loanID string) (*model.Installment, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+installmentColumns+`
		FROM artha.loan_installments
		WHERE loan_id = $1 AND status = $2
		ORDER BY sequence ASC
		LIMIT 1
	`, loanID, model.InstallmentPending)

	installment, err := scanInstallment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Loan %s has no pending installments", loanID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve next installment", err)
	}
	return installment, nil
}

// PayInstallment marks one schedule row PAID, debits the borrower and bumps
// the loan's paid amount in a single transaction. The PENDING guard on the
// UPDATE rejects replays of the same row. closeLoan flips the loan to CLOSED
// when the caller has determined this was the final row.
func (d Datasource) PayInstallment(ctx context.Context, loanID string, sequence int, closeLoan bool, entry *model.Transaction) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE artha.loan_installments SET status = $3, paid_at = NOW()
		WHERE loan_id = $1 AND sequence = $2 AND status = $4
	`, loanID, sequence, model.InstallmentPaid, model.InstallmentPending)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update installment", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read rows affected", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrAlreadyTerminal,
			fmt.Sprintf("installment %d of loan %s is not pending", sequence, loanID), nil)
	}

	if err := applyEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	status := model.LoanActive
	if closeLoan {
		status = model.LoanClosed
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE artha.loans SET paid_amount = paid_amount + $2, status = $3 WHERE loan_id = $1
	`, loanID, entry.AmountMinor, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update loan", err)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit installment payment", err)
	}
	return nil
}

// DueInstallments lists pending rows of active loans whose due date has
// passed, oldest first. The collection sweep walks this list.
func (d Datasource) DueInstallments(ctx context.Context, asOf time.Time) ([]model.Installment, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT i.loan_id, i.sequence, i.due_date, i.principal, i.interest, i.total, i.status, i.paid_at
		FROM artha.loan_installments i
		JOIN artha.loans l ON l.loan_id = i.loan_id
		WHERE i.status = $1 AND i.due_date <= $2 AND l.status = $3
		ORDER BY i.due_date ASC, i.sequence ASC
	`, model.InstallmentPending, asOf, model.LoanActive)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve due installments", err)
	}
	defer rows.Close()

	var installments []model.Installment
	for rows.Next() {
		installment, err := scanInstallment(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan installment row", err)
		}
		installments = append(installments, *installment)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read installment rows", err)
	}
	return installments, nil
}
