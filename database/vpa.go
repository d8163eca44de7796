package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

// CreateVPA registers a virtual address against an account. The account row
// is locked FOR UPDATE for the count check so two concurrent registrations
// cannot both slip under the per-account cap. The first address an account
// registers becomes its primary.
func (d Datasource) CreateVPA(ctx context.Context, address model.VirtualAddress) (model.VirtualAddress, error) {
	address.VPAID = model.GenerateUUIDWithSuffix("vpa")
	address.CreatedAt = time.Now()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return model.VirtualAddress{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var accountID string
	err = tx.QueryRowContext(ctx, `
		SELECT account_id FROM artha.accounts WHERE account_id = $1 FOR UPDATE
	`, address.AccountID).Scan(&accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VirtualAddress{}, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", address.AccountID), err)
		}
		return model.VirtualAddress{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock account row", err)
	}

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM artha.virtual_addresses WHERE account_id = $1
	`, address.AccountID).Scan(&count)
	if err != nil {
		return model.VirtualAddress{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count virtual addresses", err)
	}
	if count >= model.MaxVPAsPerAccount {
		return model.VirtualAddress{}, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("account %s already has %d virtual addresses", address.AccountID, model.MaxVPAsPerAccount), nil)
	}
	address.Primary = count == 0

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artha.virtual_addresses (vpa_id, address, account_id, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, address.VPAID, address.Address, address.AccountID, address.Primary, address.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.VirtualAddress{}, apierror.NewAPIError(apierror.ErrConflict,
				fmt.Sprintf("virtual address '%s' is already registered", address.Address), err)
		}
		return model.VirtualAddress{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create virtual address", err)
	}

	if err := tx.Commit(); err != nil {
		return model.VirtualAddress{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit virtual address", err)
	}
	return address, nil
}

func scanVPA(scanner interface{ Scan(...interface{}) error }) (*model.VirtualAddress, error) {
	address := &model.VirtualAddress{}
	err := scanner.Scan(&address.VPAID, &address.Address, &address.AccountID, &address.Primary, &address.CreatedAt)
	if err != nil {
		return nil, err
	}
	return address, nil
}

func (d Datasource) GetVPAByAddress(ctx context.Context, addr string) (*model.VirtualAddress, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT vpa_id, address, account_id, is_primary, created_at
		FROM artha.virtual_addresses
		WHERE address = $1
	`, addr)

	address, err := scanVPA(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Virtual address '%s' not found", addr), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve virtual address", err)
	}
	return address, nil
}

func (d Datasource) GetVPAsByAccount(ctx context.Context, accountID string) ([]model.VirtualAddress, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT vpa_id, address, account_id, is_primary, created_at
		FROM artha.virtual_addresses
		WHERE account_id = $1
		ORDER BY created_at ASC
	`, accountID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve virtual addresses", err)
	}
	defer rows.Close()

	var addresses []model.VirtualAddress
	for rows.Next() {
		address, err := scanVPA(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan virtual address row", err)
		}
		addresses = append(addresses, *address)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read virtual address rows", err)
	}
	return addresses, nil
}

// DeleteVPA removes a non-primary address, or the primary when it is the
// account's only address. Deleting a primary that still has alternates is
// rejected; the caller must promote another address first.
func (d Datasource) DeleteVPA(ctx context.Context, accountID, addr string) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var isPrimary bool
	err = tx.QueryRowContext(ctx, `
		SELECT is_primary FROM artha.virtual_addresses
		WHERE account_id = $1 AND address = $2 FOR UPDATE
	`, accountID, addr).Scan(&isPrimary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Virtual address '%s' not found", addr), err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to lock virtual address", err)
	}

	if isPrimary {
		var others int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM artha.virtual_addresses
			WHERE account_id = $1 AND address <> $2
		`, accountID, addr).Scan(&others)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count virtual addresses", err)
		}
		if others > 0 {
			return apierror.NewAPIError(apierror.ErrConflict,
				"cannot delete primary virtual address while alternates exist", nil)
		}
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM artha.virtual_addresses WHERE account_id = $1 AND address = $2
	`, accountID, addr)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete virtual address", err)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit deletion", err)
	}
	return nil
}

// SetPrimaryVPA promotes one of the account's addresses to primary and
// demotes the rest in a single transaction.
func (d Datasource) SetPrimaryVPA(ctx context.Context, accountID, addr string) error {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE artha.virtual_addresses SET is_primary = TRUE
		WHERE account_id = $1 AND address = $2
	`, accountID, addr)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to promote virtual address", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read rows affected", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Virtual address '%s' not found", addr), nil)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE artha.virtual_addresses SET is_primary = FALSE
		WHERE account_id = $1 AND address <> $2
	`, accountID, addr)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to demote virtual addresses", err)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit promotion", err)
	}
	return nil
}
