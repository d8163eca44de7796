package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes,
// e.g. acc_..., txn_..., lon_..., dep_..., vpa_...
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// HashTxn generates a SHA-256 hash of a transaction's identifying fields.
// The hash ties a journal row to its amount, reference and accounts so a
// mutated stored row no longer matches its recorded hash.
func (transaction *Transaction) HashTxn() string {
	data := fmt.Sprintf("%d%s%s%s%s", transaction.AmountMinor, transaction.Reference, transaction.Currency, transaction.AccountID, transaction.CounterpartID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
