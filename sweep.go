package artha

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// ProcessSweep is the asynq handler behind the scheduled sweep task. It
// advances every overdue loan installment and settles every deposit past
// maturity. Both sweeps are idempotent, so a crashed or duplicated run is
// harmless.
func (a *Artha) ProcessSweep(ctx context.Context, _ *asynq.Task) error {
	asOf := time.Now()

	if err := a.SweepDueInstallments(ctx, asOf); err != nil {
		logrus.Error("installment sweep error: ", err)
		return err
	}
	if err := a.SweepMaturedDeposits(ctx, asOf); err != nil {
		logrus.Error("deposit sweep error: ", err)
		return err
	}
	return nil
}
