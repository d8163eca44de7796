package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

func scanTransaction(scanner interface{ Scan(...interface{}) error }) (*model.Transaction, error) {
	txn := &model.Transaction{}
	var metaDataJSON []byte
	var counterpart sql.NullString
	err := scanner.Scan(&txn.TransactionID, &txn.AccountID, &counterpart, &txn.Reference,
		&txn.AmountMinor, &txn.Direction, &txn.Currency, &txn.Type, &txn.Description,
		&txn.RunningBalance, &txn.Hash, &txn.CreatedAt, &metaDataJSON)
	if err != nil {
		return nil, err
	}
	txn.CounterpartID = counterpart.String
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &txn.MetaData); err != nil {
			return nil, err
		}
	}
	return txn, nil
}

const transactionColumns = `transaction_id, account_id, counterpart_id, reference, amount, direction, currency, type, description, running_balance, hash, created_at, meta_data`

func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM artha.transactions
		WHERE transaction_id = $1
	`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}
	return txn, nil
}

// GetTransactionByRef returns the first journal row recorded under a
// reference. For transfers this is the debit leg; the idempotent-retry path
// returns it as the original result.
func (d Datasource) GetTransactionByRef(ctx context.Context, reference string) (*model.Transaction, error) {
	ctx, span := otel.Tracer("artha.ledger").Start(ctx, "Getting transaction from db by reference")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM artha.transactions
		WHERE reference = $1
		ORDER BY id ASC
		LIMIT 1
	`, reference)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with reference '%s' not found", reference), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}
	return txn, nil
}

func (d Datasource) TransactionExistsByRef(ctx context.Context, reference string) (bool, error) {
	ctx, span := otel.Tracer("artha.ledger").Start(ctx, "Checking transaction reference")
	defer span.End()

	var exists bool
	err := d.Conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM artha.transactions WHERE reference = $1)
	`, reference).Scan(&exists)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check if transaction exists", err)
	}
	return exists, nil
}

// GetStatement returns an account's journal rows newest first, with the
// running balance each row left the account at. Results are cached briefly
// since statements are read far more often than they change page position.
func (d Datasource) GetStatement(ctx context.Context, accountID string, limit, offset int) ([]model.Transaction, error) {
	cacheKey := fmt.Sprintf("statement:%s:%d:%d", accountID, limit, offset)
	if d.Cache != nil {
		var cached []model.Transaction
		if err := d.Cache.Get(ctx, cacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM artha.transactions
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve statement", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan statement row", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read statement rows", err)
	}

	if d.Cache != nil && len(transactions) > 0 {
		_ = d.Cache.Set(ctx, cacheKey, transactions, 1*time.Minute)
	}
	return transactions, nil
}

// SumEntries replays the signed journal amounts for an account and currency.
// The result must always equal the live balance row; reconciliation checks
// depend on it.
func (d Datasource) SumEntries(ctx context.Context, accountID, currency string) (int64, error) {
	var sum int64
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'DEBIT' THEN -amount ELSE amount END), 0)
		FROM artha.transactions
		WHERE account_id = $1 AND currency = $2
	`, accountID, currency).Scan(&sum)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sum journal entries", err)
	}
	return sum, nil
}
