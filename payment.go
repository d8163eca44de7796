package artha

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/arthabank/artha/config"
	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

// RegisterVPA attaches a virtual payment address to an account. An account
// holds at most three addresses and its first one becomes primary.
func (a *Artha) RegisterVPA(ctx context.Context, accountID, address string) (model.VirtualAddress, error) {
	ctx, span := tracer.Start(ctx, "RegisterVPA")
	defer span.End()

	if !model.IsValidVPA(address) {
		return model.VirtualAddress{}, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("'%s' is not a valid virtual address", address), nil)
	}
	if _, err := a.checkAccountActive(ctx, accountID); err != nil {
		return model.VirtualAddress{}, err
	}

	return a.datasource.CreateVPA(ctx, model.VirtualAddress{
		Address:   address,
		AccountID: accountID,
	})
}

func (a *Artha) RemoveVPA(ctx context.Context, accountID, address string) error {
	ctx, span := tracer.Start(ctx, "RemoveVPA")
	defer span.End()
	return a.datasource.DeleteVPA(ctx, accountID, address)
}

func (a *Artha) SetPrimaryVPA(ctx context.Context, accountID, address string) error {
	ctx, span := tracer.Start(ctx, "SetPrimaryVPA")
	defer span.End()
	return a.datasource.SetPrimaryVPA(ctx, accountID, address)
}

// ResolveVPA maps a virtual address to its backing account.
func (a *Artha) ResolveVPA(ctx context.Context, address string) (*model.Account, error) {
	vpa, err := a.datasource.GetVPAByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	return a.datasource.GetAccountByID(ctx, vpa.AccountID)
}

func (a *Artha) GetVPAsByAccount(ctx context.Context, accountID string) ([]model.VirtualAddress, error) {
	return a.datasource.GetVPAsByAccount(ctx, accountID)
}

// SetPIN stores a bcrypt hash of the account's 6-digit payment PIN. The raw
// PIN is never persisted or logged.
func (a *Artha) SetPIN(ctx context.Context, accountID, pin string) error {
	ctx, span := tracer.Start(ctx, "SetPIN")
	defer span.End()

	if !model.IsValidPIN(pin) {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "PIN must be exactly 6 digits", nil)
	}
	if _, err := a.datasource.GetAccountByID(ctx, accountID); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to hash PIN", err)
	}
	return a.datasource.UpdateAccountPIN(ctx, accountID, string(hash))
}

// checkPIN verifies the payer's PIN under the attempt limiter. The attempt is
// counted before the hash compare, so once the window's budget is spent even
// a correct PIN is rejected until the window expires. A successful compare
// resets the counter.
func (a *Artha) checkPIN(ctx context.Context, account *model.Account, pin string) error {
	cnf, err := config.Fetch()
	if err != nil {
		return err
	}

	if account.PINHash == "" {
		return apierror.NewAPIError(apierror.ErrPinNotSet,
			fmt.Sprintf("account %s has no payment PIN set", account.AccountID), nil)
	}

	key := fmt.Sprintf("pin_attempts:%s", account.AccountID)
	attempts, err := a.redis.Incr(ctx, key).Result()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to track PIN attempts", err)
	}
	if attempts == 1 {
		window := time.Duration(cnf.Engine.PinLockoutWindowSec) * time.Second
		if err := a.redis.Expire(ctx, key, window).Err(); err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to arm PIN attempt window", err)
		}
	}
	if attempts > int64(cnf.Engine.PinMaxAttempts) {
		return apierror.NewAPIError(apierror.ErrTooManyAttempts,
			fmt.Sprintf("too many PIN attempts for account %s", account.AccountID), nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PINHash), []byte(pin)); err != nil {
		return apierror.NewAPIError(apierror.ErrInvalidPin, "incorrect PIN", nil)
	}

	if err := a.redis.Del(ctx, key).Err(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reset PIN attempts", err)
	}
	return nil
}

// AuthorizePayment verifies the payer's PIN and moves the amount between the
// accounts behind two virtual addresses. The reference carries the usual
// idempotency guarantee.
func (a *Artha) AuthorizePayment(ctx context.Context, fromVPA, toVPA string, amountMinor int64, currency, pin, reference, description string) ([]*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "AuthorizePayment")
	defer span.End()

	payer, err := a.ResolveVPA(ctx, fromVPA)
	if err != nil {
		return nil, err
	}
	payee, err := a.ResolveVPA(ctx, toVPA)
	if err != nil {
		return nil, err
	}
	if payer.AccountID == payee.AccountID {
		return nil, apierror.NewAPIError(apierror.ErrSelfPayment, "payer and payee resolve to the same account", nil)
	}

	if err := a.checkPIN(ctx, payer, pin); err != nil {
		return nil, err
	}

	return a.Transfer(ctx, payer.AccountID, payee.AccountID, EntryRequest{
		AmountMinor: amountMinor,
		Currency:    currency,
		Reference:   reference,
		Type:        model.TypeTransfer,
		Description: description,
		MetaData: map[string]interface{}{
			"from_vpa": fromVPA,
			"to_vpa":   toVPA,
		},
	})
}
