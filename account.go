package artha

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

// generateAccountNumber produces a random 10-digit account number. Collisions
// are caught by the unique constraint and retried by the caller.
func generateAccountNumber() string {
	max := big.NewInt(9000000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		logrus.Error("account number generation error: ", err)
		return ""
	}
	return fmt.Sprintf("%d", n.Int64()+1000000000)
}

// CreateAccount opens a new account with a generated number and a zero
// balance in the given currency.
func (a *Artha) CreateAccount(ctx context.Context, account model.Account, currency string) (model.Account, error) {
	ctx, span := tracer.Start(ctx, "CreateAccount")
	defer span.End()

	if account.Name == "" {
		return model.Account{}, apierror.NewAPIError(apierror.ErrInvalidInput, "account name is required", nil)
	}
	if currency == "" {
		return model.Account{}, apierror.NewAPIError(apierror.ErrInvalidInput, "currency is required", nil)
	}

	// One retry on a number collision; two back-to-back collisions on a
	// 10-digit space means something else is wrong.
	for attempt := 0; attempt < 2; attempt++ {
		account.Number = generateAccountNumber()
		created, err := a.datasource.CreateAccount(ctx, account, currency)
		if err != nil {
			if apierror.Is(err, apierror.ErrConflict) && attempt == 0 {
				continue
			}
			return model.Account{}, err
		}
		return created, nil
	}
	return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "could not allocate an account number", nil)
}

func (a *Artha) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return a.datasource.GetAccountByID(ctx, id)
}

func (a *Artha) GetAccountByNumber(ctx context.Context, number string) (*model.Account, error) {
	return a.datasource.GetAccountByNumber(ctx, number)
}

func (a *Artha) ListAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	return a.datasource.GetAllAccounts(ctx, limit, offset)
}

// FreezeAccount blocks all balance-mutating operations on the account until
// it is unfrozen. Reads keep working.
func (a *Artha) FreezeAccount(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "FreezeAccount")
	defer span.End()

	if err := a.datasource.UpdateAccountStatus(ctx, id, model.AccountFrozen); err != nil {
		return err
	}
	if err := a.queue.queueWebhook(NewWebhook{Event: EventAccountFrozen, Payload: map[string]string{"account_id": id}}); err != nil {
		logrus.Error("webhook enqueue error: ", err)
	}
	return nil
}

func (a *Artha) UnfreezeAccount(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "UnfreezeAccount")
	defer span.End()
	return a.datasource.UpdateAccountStatus(ctx, id, model.AccountActive)
}

func (a *Artha) GetBalance(ctx context.Context, accountID, currency string) (*model.Balance, error) {
	return a.datasource.GetBalance(ctx, accountID, currency)
}

func (a *Artha) GetBalances(ctx context.Context, accountID string) ([]model.Balance, error) {
	return a.datasource.GetBalances(ctx, accountID)
}
