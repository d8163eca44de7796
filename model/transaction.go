package model

import (
	"encoding/json"
	"time"
)

type TransactionDirection string

const (
	DirectionDebit  TransactionDirection = "DEBIT"
	DirectionCredit TransactionDirection = "CREDIT"
)

type TransactionType string

const (
	TypeDeposit         TransactionType = "DEPOSIT"
	TypeWithdrawal      TransactionType = "WITHDRAWAL"
	TypeTransfer        TransactionType = "TRANSFER"
	TypeLoanDisbursal   TransactionType = "LOAN_DISBURSAL"
	TypeLoanRepayment   TransactionType = "LOAN_REPAYMENT"
	TypeInvestment      TransactionType = "INVESTMENT"
	TypeDepositMaturity TransactionType = "DEPOSIT_MATURITY"
	TypeDepositBreak    TransactionType = "DEPOSIT_BREAK"
	TypeRDInstallment   TransactionType = "RD_INSTALLMENT"
)

// Transaction is one append-only journal row. A transfer produces two rows, a
// debit against the source and a credit against the destination, sharing one
// reference. RunningBalance is the account balance immediately after the row
// was applied; replaying all rows for an account from creation must reproduce
// its live balance.
type Transaction struct {
	ID             int64                  `json:"-"`
	TransactionID  string                 `json:"transaction_id"`
	AccountID      string                 `json:"account_id"`
	CounterpartID  string                 `json:"counterpart_id,omitempty"`
	Reference      string                 `json:"reference"`
	AmountMinor    int64                  `json:"amount"`
	Direction      TransactionDirection   `json:"direction"`
	Currency       string                 `json:"currency"`
	Type           TransactionType        `json:"type"`
	Description    string                 `json:"description,omitempty"`
	RunningBalance int64                  `json:"running_balance"`
	Hash           string                 `json:"hash"`
	CreatedAt      time.Time              `json:"created_at"`
	MetaData       map[string]interface{} `json:"meta_data,omitempty"`
}

// SignedMinor returns the amount with the sign implied by the direction:
// credits add to the account, debits subtract.
func (transaction *Transaction) SignedMinor() int64 {
	if transaction.Direction == DirectionDebit {
		return -transaction.AmountMinor
	}
	return transaction.AmountMinor
}

func (transaction *Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(transaction)
}
