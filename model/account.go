package model

import (
	"time"
)

type AccountStatus string

const (
	AccountActive AccountStatus = "ACTIVE"
	AccountFrozen AccountStatus = "FROZEN"
)

// Account is the root entity of the engine. Balances, transactions, loans,
// deposits and virtual addresses all hang off an account and reference it by
// AccountID. Accounts are never deleted; status transitions instead.
type Account struct {
	ID         int64                  `json:"-"`
	AccountID  string                 `json:"account_id"`
	Number     string                 `json:"number"`
	Name       string                 `json:"name"`
	IdentityID string                 `json:"identity_id"`
	Status     AccountStatus          `json:"status"`
	PINHash    string                 `json:"-"`
	CreatedAt  time.Time              `json:"created_at"`
	MetaData   map[string]interface{} `json:"meta_data,omitempty"`
}

// Balance holds one account's balance in one currency, in minor units.
// Mutated only through ledger operations inside a row-locked transaction.
type Balance struct {
	ID           int64     `json:"-"`
	AccountID    string    `json:"account_id"`
	Currency     string    `json:"currency"`
	BalanceMinor int64     `json:"balance"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsFrozen reports whether ledger operations against the account must be rejected.
func (a *Account) IsFrozen() bool {
	return a.Status == AccountFrozen
}
