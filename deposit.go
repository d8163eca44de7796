package artha

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arthabank/artha/config"
	"github.com/arthabank/artha/internal/apierror"
	"github.com/arthabank/artha/model"
)

const (
	minDepositTenureMonths = 1
	maxDepositTenureMonths = 120
)

func validateDepositTerms(principalMinor int64, tenureMonths int, minPrincipal int64) error {
	if principalMinor < minPrincipal {
		return apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("deposit amount must be at least %d", minPrincipal), nil)
	}
	if tenureMonths < minDepositTenureMonths || tenureMonths > maxDepositTenureMonths {
		return apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("tenure must be between %d and %d months", minDepositTenureMonths, maxDepositTenureMonths), nil)
	}
	return nil
}

// OpenFixedDeposit locks a lump sum until maturity. The principal is debited
// from the account and the maturity value fixed at open.
func (a *Artha) OpenFixedDeposit(ctx context.Context, dep model.Deposit, reference string) (model.Deposit, error) {
	ctx, span := tracer.Start(ctx, "OpenFixedDeposit")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return model.Deposit{}, err
	}
	if err := validateDepositTerms(dep.PrincipalMinor, dep.TenureMonths, cnf.Engine.MinDepositPrincipal); err != nil {
		return model.Deposit{}, err
	}
	if _, err := a.checkAccountActive(ctx, dep.AccountID); err != nil {
		return model.Deposit{}, err
	}

	locker, err := a.acquireLock(ctx, dep.AccountID)
	if err != nil {
		return model.Deposit{}, err
	}
	defer releaseLock(ctx, locker)

	dep.Type = model.DepositFixed
	dep.StartDate = time.Now()
	dep.MaturityDate = dep.StartDate.AddDate(0, dep.TenureMonths, 0)
	dep.MaturityMinor = model.FDMaturityMinor(dep.PrincipalMinor, dep.AnnualRate, dep.TenureMonths, dep.Currency)

	entry := newEntry(EntryRequest{
		AccountID:   dep.AccountID,
		AmountMinor: dep.PrincipalMinor,
		Currency:    dep.Currency,
		Reference:   reference,
		Type:        model.TypeInvestment,
		Description: "Fixed deposit principal",
	}, model.DirectionDebit)

	return a.datasource.OpenDeposit(ctx, dep, entry)
}

// OpenRecurringDeposit starts an RD plan. PrincipalMinor is the per-period
// installment; nothing is debited until the first installment is paid.
func (a *Artha) OpenRecurringDeposit(ctx context.Context, dep model.Deposit) (model.Deposit, error) {
	ctx, span := tracer.Start(ctx, "OpenRecurringDeposit")
	defer span.End()

	cnf, err := config.Fetch()
	if err != nil {
		return model.Deposit{}, err
	}
	if err := validateDepositTerms(dep.PrincipalMinor, dep.TenureMonths, cnf.Engine.MinDepositPrincipal); err != nil {
		return model.Deposit{}, err
	}
	if _, err := a.checkAccountActive(ctx, dep.AccountID); err != nil {
		return model.Deposit{}, err
	}

	dep.Type = model.DepositRecurring
	dep.StartDate = time.Now()
	dep.MaturityDate = dep.StartDate.AddDate(0, dep.TenureMonths, 0)
	dep.MaturityMinor = model.RDMaturityMinor(dep.PrincipalMinor, dep.AnnualRate, dep.TenureMonths, dep.Currency)

	return a.datasource.OpenDeposit(ctx, dep, nil)
}

// PayRDInstallment collects the next RD period. Periods are strictly
// sequential; period must be exactly one past the paid count.
func (a *Artha) PayRDInstallment(ctx context.Context, depositID string, period int, reference string) error {
	ctx, span := tracer.Start(ctx, "PayRDInstallment")
	defer span.End()

	dep, err := a.datasource.GetDepositByID(ctx, depositID)
	if err != nil {
		return err
	}
	if dep.Type != model.DepositRecurring {
		return apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("deposit %s is not a recurring deposit", depositID), nil)
	}
	if dep.IsTerminal() {
		return apierror.NewAPIError(apierror.ErrAlreadyTerminal,
			fmt.Sprintf("deposit %s is %s", depositID, dep.Status), nil)
	}
	if _, err := a.checkAccountActive(ctx, dep.AccountID); err != nil {
		return err
	}

	locker, err := a.acquireLock(ctx, dep.AccountID)
	if err != nil {
		return err
	}
	defer releaseLock(ctx, locker)

	entry := newEntry(EntryRequest{
		AccountID:   dep.AccountID,
		AmountMinor: dep.PrincipalMinor,
		Currency:    dep.Currency,
		Reference:   reference,
		Type:        model.TypeRDInstallment,
		Description: fmt.Sprintf("RD installment %d of deposit %s", period, depositID),
	}, model.DirectionDebit)

	return a.datasource.RecordRDInstallment(ctx, depositID, period, entry)
}

// MatureDeposit settles a deposit that has reached its maturity date, crediting
// the fixed maturity value. For an RD that was not fully funded, the payout is
// recomputed over the periods actually paid.
func (a *Artha) MatureDeposit(ctx context.Context, depositID string) error {
	ctx, span := tracer.Start(ctx, "MatureDeposit")
	defer span.End()

	dep, err := a.datasource.GetDepositByID(ctx, depositID)
	if err != nil {
		return err
	}
	if dep.IsTerminal() {
		return apierror.NewAPIError(apierror.ErrAlreadyTerminal,
			fmt.Sprintf("deposit %s is %s", depositID, dep.Status), nil)
	}
	if time.Now().Before(dep.MaturityDate) {
		return apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("deposit %s has not reached maturity", depositID), nil)
	}

	payout := dep.MaturityMinor
	if dep.Type == model.DepositRecurring && dep.PaidPeriods < dep.TenureMonths {
		payout = model.RDMaturityMinor(dep.PrincipalMinor, dep.AnnualRate, dep.PaidPeriods, dep.Currency)
	}

	locker, err := a.acquireLock(ctx, dep.AccountID)
	if err != nil {
		return err
	}
	defer releaseLock(ctx, locker)

	entry := newEntry(EntryRequest{
		AccountID:   dep.AccountID,
		AmountMinor: payout,
		Currency:    dep.Currency,
		Reference:   fmt.Sprintf("ref_mature_%s", depositID),
		Type:        model.TypeDepositMaturity,
		Description: fmt.Sprintf("Maturity of deposit %s", depositID),
	}, model.DirectionCredit)

	if err := a.datasource.SettleDeposit(ctx, depositID, model.DepositMatured, entry); err != nil {
		return err
	}

	if err := a.queue.queueWebhook(NewWebhook{Event: EventDepositMatured, Payload: dep}); err != nil {
		logrus.Error("webhook enqueue error: ", err)
	}
	return nil
}

// BreakDeposit withdraws a deposit before maturity. The holder forfeits all
// accrued interest plus the penalty on principal. For RD the refund base is
// what has actually been paid in.
func (a *Artha) BreakDeposit(ctx context.Context, depositID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "BreakDeposit")
	defer span.End()

	dep, err := a.datasource.GetDepositByID(ctx, depositID)
	if err != nil {
		return 0, err
	}
	if dep.IsTerminal() {
		return 0, apierror.NewAPIError(apierror.ErrAlreadyTerminal,
			fmt.Sprintf("deposit %s is %s", depositID, dep.Status), nil)
	}
	if _, err := a.checkAccountActive(ctx, dep.AccountID); err != nil {
		return 0, err
	}

	base := dep.PrincipalMinor
	if dep.Type == model.DepositRecurring {
		base = dep.PrincipalMinor * int64(dep.PaidPeriods)
	}
	refund := model.BreakRefundMinor(base)

	locker, err := a.acquireLock(ctx, dep.AccountID)
	if err != nil {
		return 0, err
	}
	defer releaseLock(ctx, locker)

	entry := newEntry(EntryRequest{
		AccountID:   dep.AccountID,
		AmountMinor: refund,
		Currency:    dep.Currency,
		Reference:   fmt.Sprintf("ref_break_%s", depositID),
		Type:        model.TypeDepositBreak,
		Description: fmt.Sprintf("Premature withdrawal of deposit %s", depositID),
	}, model.DirectionCredit)

	if err := a.datasource.SettleDeposit(ctx, depositID, model.DepositBroken, entry); err != nil {
		return 0, err
	}

	if err := a.queue.queueWebhook(NewWebhook{Event: EventDepositBroken, Payload: dep}); err != nil {
		logrus.Error("webhook enqueue error: ", err)
	}
	return refund, nil
}

func (a *Artha) GetDeposit(ctx context.Context, depositID string) (*model.Deposit, error) {
	return a.datasource.GetDepositByID(ctx, depositID)
}

func (a *Artha) GetDepositsByAccount(ctx context.Context, accountID string) ([]model.Deposit, error) {
	return a.datasource.GetDepositsByAccount(ctx, accountID)
}

// SweepMaturedDeposits settles every ACTIVE deposit past its maturity date.
// Settlement is first-wins against concurrent manual breaks, so losing the
// race is not an error.
func (a *Artha) SweepMaturedDeposits(ctx context.Context, asOf time.Time) error {
	ctx, span := tracer.Start(ctx, "SweepMaturedDeposits")
	defer span.End()

	due, err := a.datasource.DueDeposits(ctx, asOf)
	if err != nil {
		return err
	}

	for _, dep := range due {
		if err := a.MatureDeposit(ctx, dep.DepositID); err != nil {
			if apierror.Is(err, apierror.ErrAlreadyTerminal) || apierror.Is(err, apierror.ErrDuplicateReference) {
				continue
			}
			logrus.Errorf("sweep failed to mature deposit %s: %v", dep.DepositID, err)
		}
	}
	return nil
}
