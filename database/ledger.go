package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lib/pq"

	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

// isUniqueViolation reports whether err is a postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// applyEntryTx mutates one balance row and appends the paired journal row
// inside the caller's transaction. The balance row is locked FOR UPDATE for
// the whole check-then-act window, so two concurrent debits can never both
// pass the sufficiency check against a stale balance.
func applyEntryTx(ctx context.Context, tx *sql.Tx, txn *model.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO artha.balances (account_id, currency, balance, version, created_at, updated_at)
		VALUES ($1, $2, 0, 0, NOW(), NOW())
		ON CONFLICT (account_id, currency) DO NOTHING
	`, txn.AccountID, txn.Currency)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to ensure balance row", err)
	}

	var balance int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance FROM artha.balances WHERE account_id = $1 AND currency = $2 FOR UPDATE
	`, txn.AccountID, txn.Currency).Scan(&balance)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock balance row", err)
	}

	newBalance := balance + txn.SignedMinor()
	if newBalance < 0 {
		return apierror.NewAPIError(apierror.ErrInsufficientFunds,
			fmt.Sprintf("account %s has insufficient %s funds", txn.AccountID, txn.Currency), nil)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE artha.balances SET balance = $3, version = version + 1, updated_at = NOW()
		WHERE account_id = $1 AND currency = $2
	`, txn.AccountID, txn.Currency, newBalance)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update balance", err)
	}

	txn.RunningBalance = newBalance
	txn.Hash = txn.HashTxn()

	metaDataJSON, err := json.Marshal(txn.MetaData)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artha.transactions
			(transaction_id, account_id, counterpart_id, reference, amount, direction, currency, type, description, running_balance, hash, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, txn.TransactionID, txn.AccountID, txn.CounterpartID, txn.Reference, txn.AmountMinor,
		txn.Direction, txn.Currency, txn.Type, txn.Description, txn.RunningBalance, txn.Hash,
		txn.CreatedAt, metaDataJSON)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrDuplicateReference,
				fmt.Sprintf("reference %s has already been used", txn.Reference), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record transaction", err)
	}
	return nil
}

// RecordEntry applies a single debit or credit and its journal row atomically.
func (d Datasource) RecordEntry(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	if err := applyEntryTx(ctx, tx, txn); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}
	return txn, nil
}

// RecordTransfer applies a debit and a credit sharing one reference in a
// single database transaction. Balance rows are locked in lexicographic
// account order so concurrent transfers over the same pair cannot deadlock.
func (d Datasource) RecordTransfer(ctx context.Context, debit, credit *model.Transaction) ([]*model.Transaction, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	entries := []*model.Transaction{debit, credit}
	sort.Slice(entries, func(i, j int) bool { return entries[i].AccountID < entries[j].AccountID })

	for _, entry := range entries {
		if err := applyEntryTx(ctx, tx, entry); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transfer", err)
	}
	return []*model.Transaction{debit, credit}, nil
}
