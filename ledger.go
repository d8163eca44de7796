package artha

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/arthabank/artha/internal/apierror"
	redlock "github.com/arthabank/artha/internal/lock"
	"github.com/arthabank/artha/model"
)

var tracer = otel.Tracer("artha.engine")

// EntryRequest describes a single debit or credit against one account.
type EntryRequest struct {
	AccountID   string
	AmountMinor int64
	Currency    string
	Reference   string
	Type        model.TransactionType
	Description string
	MetaData    map[string]interface{}
}

func (a *Artha) acquireLock(ctx context.Context, key string) (*redlock.Locker, error) {
	locker := redlock.NewLocker(a.redis, key, model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, 30*time.Second, 10*time.Second); err != nil {
		return nil, err
	}
	return locker, nil
}

func releaseLock(ctx context.Context, locker *redlock.Locker) {
	if err := locker.Unlock(ctx); err != nil {
		logrus.Error("lock release error: ", err)
	}
}

func validateEntry(req EntryRequest) error {
	if req.AmountMinor <= 0 {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "amount must be positive", nil)
	}
	if req.Reference == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "reference is required", nil)
	}
	if req.Currency == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "currency is required", nil)
	}
	return nil
}

// checkAccountActive loads the account and rejects frozen ones. Every
// balance-mutating operation goes through this gate.
func (a *Artha) checkAccountActive(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := a.datasource.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.IsFrozen() {
		return nil, apierror.NewAPIError(apierror.ErrAccountFrozen,
			fmt.Sprintf("account %s is frozen", accountID), nil)
	}
	return account, nil
}

// replayedTransaction returns the original journal row when a reference has
// already been used, so retries observe the first outcome instead of an error.
func (a *Artha) replayedTransaction(ctx context.Context, reference string) (*model.Transaction, bool) {
	exists, err := a.datasource.TransactionExistsByRef(ctx, reference)
	if err != nil || !exists {
		return nil, false
	}
	original, err := a.datasource.GetTransactionByRef(ctx, reference)
	if err != nil {
		return nil, false
	}
	return original, true
}

func newEntry(req EntryRequest, direction model.TransactionDirection) *model.Transaction {
	return &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		AccountID:     req.AccountID,
		Reference:     req.Reference,
		AmountMinor:   req.AmountMinor,
		Direction:     direction,
		Currency:      req.Currency,
		Type:          req.Type,
		Description:   req.Description,
		CreatedAt:     time.Now(),
		MetaData:      req.MetaData,
	}
}

// CreditAccount applies a credit entry. Reusing a reference returns the
// original transaction unchanged.
func (a *Artha) CreditAccount(ctx context.Context, req EntryRequest) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "CreditAccount")
	defer span.End()
	return a.applyEntry(ctx, req, model.DirectionCredit)
}

// DebitAccount applies a debit entry after the sufficiency check inside the
// datasource. Reusing a reference returns the original transaction unchanged.
func (a *Artha) DebitAccount(ctx context.Context, req EntryRequest) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "DebitAccount")
	defer span.End()
	return a.applyEntry(ctx, req, model.DirectionDebit)
}

func (a *Artha) applyEntry(ctx context.Context, req EntryRequest, direction model.TransactionDirection) (*model.Transaction, error) {
	if err := validateEntry(req); err != nil {
		return nil, err
	}
	if _, err := a.checkAccountActive(ctx, req.AccountID); err != nil {
		return nil, err
	}
	if original, ok := a.replayedTransaction(ctx, req.Reference); ok {
		return original, nil
	}

	locker, err := a.acquireLock(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	defer releaseLock(ctx, locker)

	txn, err := a.datasource.RecordEntry(ctx, newEntry(req, direction))
	if err != nil {
		// Lost a race on the reference: surface the first outcome.
		if apierror.Is(err, apierror.ErrDuplicateReference) {
			if original, ok := a.replayedTransaction(ctx, req.Reference); ok {
				return original, nil
			}
		}
		return nil, err
	}

	if err := a.queue.queueWebhook(NewWebhook{Event: EventTransactionApplied, Payload: txn}); err != nil {
		logrus.Error("webhook enqueue error: ", err)
	}
	return txn, nil
}

// Transfer moves an amount between two accounts as one atomic debit/credit
// pair sharing a reference. Both redis locks are taken in sorted order before
// the database transaction starts.
func (a *Artha) Transfer(ctx context.Context, fromID, toID string, req EntryRequest) ([]*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Transfer")
	defer span.End()

	if fromID == toID {
		return nil, apierror.NewAPIError(apierror.ErrSelfPayment, "cannot transfer to the same account", nil)
	}
	req.AccountID = fromID
	if err := validateEntry(req); err != nil {
		return nil, err
	}
	if _, err := a.checkAccountActive(ctx, fromID); err != nil {
		return nil, err
	}
	if _, err := a.checkAccountActive(ctx, toID); err != nil {
		return nil, err
	}
	if original, ok := a.replayedTransaction(ctx, req.Reference); ok {
		return []*model.Transaction{original}, nil
	}

	locker := redlock.NewMultiLocker(a.redis, []string{fromID, toID}, model.GenerateUUIDWithSuffix("loc"))
	if err := locker.Lock(ctx, 30*time.Second, 10*time.Second); err != nil {
		return nil, err
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Error("lock release error: ", err)
		}
	}()

	debit := newEntry(req, model.DirectionDebit)
	debit.CounterpartID = toID

	creditReq := req
	creditReq.AccountID = toID
	credit := newEntry(creditReq, model.DirectionCredit)
	credit.CounterpartID = fromID

	if req.Type == "" {
		debit.Type = model.TypeTransfer
		credit.Type = model.TypeTransfer
	}

	entries, err := a.datasource.RecordTransfer(ctx, debit, credit)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if err := a.queue.queueWebhook(NewWebhook{Event: EventTransactionApplied, Payload: entry}); err != nil {
			logrus.Error("webhook enqueue error: ", err)
		}
	}
	return entries, nil
}

func (a *Artha) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	return a.datasource.GetTransaction(ctx, id)
}

func (a *Artha) GetStatement(ctx context.Context, accountID string, limit, offset int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return a.datasource.GetStatement(ctx, accountID, limit, offset)
}

// VerifyLedger replays the journal for one account and currency and compares
// the sum against the live balance row.
func (a *Artha) VerifyLedger(ctx context.Context, accountID, currency string) (bool, error) {
	balance, err := a.datasource.GetBalance(ctx, accountID, currency)
	if err != nil {
		return false, err
	}
	sum, err := a.datasource.SumEntries(ctx, accountID, currency)
	if err != nil {
		return false, err
	}
	if sum != balance.BalanceMinor {
		logrus.Errorf("ledger drift on %s %s: journal %d, balance %d", accountID, currency, sum, balance.BalanceMinor)
		return false, nil
	}
	return true, nil
}
