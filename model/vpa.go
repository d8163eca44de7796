package model

import (
	"regexp"
	"time"
)

// MaxVPAsPerAccount bounds the number of active virtual addresses one account
// may hold.
const MaxVPAsPerAccount = 3

var (
	vpaPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,62}@[a-z]{2,20}$`)
	pinPattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// VirtualAddress binds a human-readable payment address to exactly one
// account. An account with any addresses has exactly one primary at all times.
type VirtualAddress struct {
	ID        int64     `json:"-"`
	VPAID     string    `json:"vpa_id"`
	Address   string    `json:"address"`
	AccountID string    `json:"account_id"`
	Primary   bool      `json:"primary"`
	CreatedAt time.Time `json:"created_at"`
}

// IsValidVPA reports whether the address matches the name@provider format.
func IsValidVPA(address string) bool {
	return vpaPattern.MatchString(address)
}

// IsValidPIN reports whether the pin is exactly six numeric digits.
func IsValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}
