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

// CreateAccount persists a new account with a zero balance row for its home
// currency in the same transaction, so the ledger invariant that every
// account has a balance row holds from the moment it exists.
func (d Datasource) CreateAccount(ctx context.Context, account model.Account, currency string) (model.Account, error) {
	metaDataJSON, err := json.Marshal(account.MetaData)
	if err != nil {
		return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	account.AccountID = model.GenerateUUIDWithSuffix("acc")
	account.CreatedAt = time.Now()
	if account.Status == "" {
		account.Status = model.AccountActive
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artha.accounts (account_id, number, name, identity_id, status, pin_hash, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, account.AccountID, account.Number, account.Name, account.IdentityID, account.Status, account.PINHash, account.CreatedAt, metaDataJSON)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Account{}, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Account with number '%s' already exists", account.Number), err)
		}
		return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create account", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artha.balances (account_id, currency, balance, version, created_at, updated_at)
		VALUES ($1, $2, 0, 0, $3, $3)
	`, account.AccountID, currency, account.CreatedAt)
	if err != nil {
		return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create balance row", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit account creation", err)
	}
	return account, nil
}

func scanAccount(scanner interface{ Scan(...interface{}) error }) (*model.Account, error) {
	account := &model.Account{}
	var metaDataJSON []byte
	var pinHash sql.NullString
	err := scanner.Scan(&account.AccountID, &account.Number, &account.Name, &account.IdentityID,
		&account.Status, &pinHash, &account.CreatedAt, &metaDataJSON)
	if err != nil {
		return nil, err
	}
	account.PINHash = pinHash.String
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &account.MetaData); err != nil {
			return nil, err
		}
	}
	return account, nil
}

const accountColumns = `account_id, number, name, identity_id, status, pin_hash, created_at, meta_data`

func (d Datasource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	cacheKey := fmt.Sprintf("account:%s", id)
	if d.Cache != nil {
		cached := &model.Account{}
		if err := d.Cache.Get(ctx, cacheKey, cached); err == nil && cached.AccountID != "" {
			return cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM artha.accounts WHERE account_id = $1
	`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}

	if d.Cache != nil {
		_ = d.Cache.Set(ctx, cacheKey, account, 5*time.Minute)
	}
	return account, nil
}

func (d Datasource) GetAccountByNumber(ctx context.Context, number string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM artha.accounts WHERE number = $1
	`, number)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with number '%s' not found", number), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}
	return account, nil
}

func (d Datasource) GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM artha.accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve accounts", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan account row", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read account rows", err)
	}
	return accounts, nil
}

// UpdateAccountStatus flips an account between ACTIVE and FROZEN. The cached
// copy is dropped so frozen checks never read a stale status.
func (d Datasource) UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE artha.accounts SET status = $2 WHERE account_id = $1
	`, id, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read rows affected", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", id), nil)
	}
	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, fmt.Sprintf("account:%s", id))
	}
	return nil
}

func (d Datasource) UpdateAccountPIN(ctx context.Context, id string, pinHash string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE artha.accounts SET pin_hash = $2 WHERE account_id = $1
	`, id, pinHash)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account PIN", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read rows affected", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", id), nil)
	}
	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, fmt.Sprintf("account:%s", id))
	}
	return nil
}

func scanBalance(scanner interface{ Scan(...interface{}) error }) (*model.Balance, error) {
	balance := &model.Balance{}
	err := scanner.Scan(&balance.AccountID, &balance.Currency, &balance.BalanceMinor, &balance.Version, &balance.CreatedAt, &balance.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return balance, nil
}

func (d Datasource) GetBalance(ctx context.Context, accountID, currency string) (*model.Balance, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT account_id, currency, balance, version, created_at, updated_at
		FROM artha.balances
		WHERE account_id = $1 AND currency = $2
	`, accountID, currency)

	balance, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Balance for account '%s' in %s not found", accountID, currency), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve balance", err)
	}
	return balance, nil
}

func (d Datasource) GetBalances(ctx context.Context, accountID string) ([]model.Balance, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT account_id, currency, balance, version, created_at, updated_at
		FROM artha.balances
		WHERE account_id = $1
		ORDER BY currency
	`, accountID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve balances", err)
	}
	defer rows.Close()

	var balances []model.Balance
	for rows.Next() {
		balance, err := scanBalance(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan balance row", err)
		}
		balances = append(balances, *balance)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read balance rows", err)
	}
	return balances, nil
}
