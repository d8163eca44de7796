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

// OpenDeposit creates the deposit record and, for FD, debits the principal
// from the holding account in the same transaction. RD deposits open with no
// entry since they collect through per-period installments.
func (d Datasource) OpenDeposit(ctx context.Context, dep model.Deposit, entry *model.Transaction) (model.Deposit, error) {
	metaDataJSON, err := json.Marshal(dep.MetaData)
	if err != nil {
		return model.Deposit{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	dep.DepositID = model.GenerateUUIDWithSuffix("dep")
	dep.CreatedAt = time.Now()
	dep.Status = model.DepositActive

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return model.Deposit{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artha.deposits
			(deposit_id, account_id, type, currency, principal, annual_rate, tenure_months, maturity_amount, paid_periods, start_date, maturity_date, status, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, $12, $13)
	`, dep.DepositID, dep.AccountID, dep.Type, dep.Currency, dep.PrincipalMinor, dep.AnnualRate,
		dep.TenureMonths, dep.MaturityMinor, dep.StartDate, dep.MaturityDate, dep.Status,
		dep.CreatedAt, metaDataJSON)
	if err != nil {
		return model.Deposit{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create deposit", err)
	}

	if entry != nil {
		if err := applyEntryTx(ctx, tx, entry); err != nil {
			return model.Deposit{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Deposit{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit deposit", err)
	}
	return dep, nil
}

func scanDeposit(scanner interface{ Scan(...interface{}) error }) (*model.Deposit, error) {
	dep := &model.Deposit{}
	var metaDataJSON []byte
	err := scanner.Scan(&dep.DepositID, &dep.AccountID, &dep.Type, &dep.Currency,
		&dep.PrincipalMinor, &dep.AnnualRate, &dep.TenureMonths, &dep.MaturityMinor,
		&dep.PaidPeriods, &dep.StartDate, &dep.MaturityDate, &dep.Status, &dep.CreatedAt,
		&metaDataJSON)
	if err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &dep.MetaData); err != nil {
			return nil, err
		}
	}
	return dep, nil
}

const depositColumns = `deposit_id, account_id, type, currency, principal, annual_rate, tenure_months, maturity_amount, paid_periods, start_date, maturity_date, status, created_at, meta_data`

func (d Datasource) GetDepositByID(ctx context.Context, id string) (*model.Deposit, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+depositColumns+` FROM artha.deposits WHERE deposit_id = $1
	`, id)

	dep, err := scanDeposit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Deposit with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve deposit", err)
	}
	return dep, nil
}

func (d Datasource) GetDepositsByAccount(ctx context.Context, accountID string) ([]model.Deposit, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+depositColumns+` FROM artha.deposits WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve deposits", err)
	}
	defer rows.Close()

	var deposits []model.Deposit
	for rows.Next() {
		dep, err := scanDeposit(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan deposit row", err)
		}
		deposits = append(deposits, *dep)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read deposit rows", err)
	}
	return deposits, nil
}

// SettleDeposit moves an ACTIVE deposit to a terminal state and credits the
// payout in one transaction. The ACTIVE guard makes settlement first-wins:
// if the maturity sweep and a manual break race, whichever commits second
// matches zero rows and fails with ALREADY_TERMINAL.
func (d Datasource) SettleDeposit(ctx context.Context, depositID string, status model.DepositStatus, entry *model.Transaction) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE artha.deposits SET status = $2 WHERE deposit_id = $1 AND status = $3
	`, depositID, status, model.DepositActive)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to settle deposit", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read rows affected", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrAlreadyTerminal,
			fmt.Sprintf("deposit %s is not active", depositID), nil)
	}

	if err := applyEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit settlement", err)
	}
	return nil
}

// RecordRDInstallment collects one RD period: debits the installment and
// advances paid_periods, guarded so periods can only be paid in sequence.
// The guard requires the stored paid_periods to equal period-1; anything
// else means a skipped or replayed period.
func (d Datasource) RecordRDInstallment(ctx context.Context, depositID string, period int, entry *model.Transaction) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE artha.deposits SET paid_periods = $2
		WHERE deposit_id = $1 AND status = $3 AND paid_periods = $4 AND tenure_months >= $2
	`, depositID, period, model.DepositActive, period-1)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to advance deposit period", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read rows affected", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrInstallmentOutOfOrder,
			fmt.Sprintf("period %d of deposit %s cannot be paid out of order", period, depositID), nil)
	}

	if err := applyEntryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit installment", err)
	}
	return nil
}

// DueDeposits lists ACTIVE deposits whose maturity date has passed. The
// maturity sweep settles each of these.
func (d Datasource) DueDeposits(ctx context.Context, asOf time.Time) ([]model.Deposit, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+depositColumns+`
		FROM artha.deposits
		WHERE status = $1 AND maturity_date <= $2
		ORDER BY maturity_date ASC
	`, model.DepositActive, asOf)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve due deposits", err)
	}
	defer rows.Close()

	var deposits []model.Deposit
	for rows.Next() {
		dep, err := scanDeposit(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan deposit row", err)
		}
		deposits = append(deposits, *dep)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read deposit rows", err)
	}
	return deposits, nil
}
