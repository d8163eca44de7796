package database

import (
	"context"
	"time"

	"github.com/arthabank/artha/model"
)

// IDataSource groups the persistence operations of the engine. Composite
// methods (disbursal, settlement, installment payment) run their balance
// mutation and journal append in a single database transaction so no failure
// can leave a partially applied state.
type IDataSource interface {
	account
	ledger
	loan
	deposit
	vpa
}

// account defines methods for account lifecycle and lookup.
type account interface {
	CreateAccount(ctx context.Context, account model.Account, currency string) (model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*model.Account, error)
	GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error)
	UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus) error
	UpdateAccountPIN(ctx context.Context, id string, pinHash string) error
	GetBalance(ctx context.Context, accountID, currency string) (*model.Balance, error)
	GetBalances(ctx context.Context, accountID string) ([]model.Balance, error)
}

// ledger defines the balance-mutating journal operations.
type ledger interface {
	RecordEntry(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	RecordTransfer(ctx context.Context, debit, credit *model.Transaction) ([]*model.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionByRef(ctx context.Context, reference string) (*model.Transaction, error)
	TransactionExistsByRef(ctx context.Context, reference string) (bool, error)
	GetStatement(ctx context.Context, accountID string, limit, offset int) ([]model.Transaction, error)
	SumEntries(ctx context.Context, accountID, currency string) (int64, error)
}

// loan defines methods for loan records and their amortization schedules.
type loan interface {
	CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	GetLoanByID(ctx context.Context, id string) (*model.Loan, error)
	GetLoansByAccount(ctx context.Context, accountID string) ([]model.Loan, error)
	DisburseLoan(ctx context.Context, loan *model.Loan, schedule []model.Installment, entry *model.Transaction) error
	GetInstallments(ctx context.Context, loanID string) ([]model.Installment, error)
	NextPendingInstallment(ctx context.Context, loanID string) (*model.Installment, error)
	PayInstallment(ctx context.Context, loanID string, sequence int, closeLoan bool, entry *model.Transaction) error
	DueInstallments(ctx context.Context, asOf time.Time) ([]model.Installment, error)
}

// deposit defines methods for FD/RD records.
type deposit interface {
	OpenDeposit(ctx context.Context, dep model.Deposit, entry *model.Transaction) (model.Deposit, error)
	GetDepositByID(ctx context.Context, id string) (*model.Deposit, error)
	GetDepositsByAccount(ctx context.Context, accountID string) ([]model.Deposit, error)
	SettleDeposit(ctx context.Context, depositID string, status model.DepositStatus, entry *model.Transaction) error
	RecordRDInstallment(ctx context.Context, depositID string, period int, entry *model.Transaction) error
	DueDeposits(ctx context.Context, asOf time.Time) ([]model.Deposit, error)
}

// vpa defines methods for the virtual-address registry.
type vpa interface {
	CreateVPA(ctx context.Context, address model.VirtualAddress) (model.VirtualAddress, error)
	GetVPAByAddress(ctx context.Context, address string) (*model.VirtualAddress, error)
	GetVPAsByAccount(ctx context.Context, accountID string) ([]model.VirtualAddress, error)
	DeleteVPA(ctx context.Context, accountID, address string) error
	SetPrimaryVPA(ctx context.Context, accountID, address string) error
}
