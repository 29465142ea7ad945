package models

import (
	"strings"
	"time"
)

// Account holds the registration profile for one user. The identity is the
// normalized email address; the balance is never stored here, it is derived
// from the ledger.
type Account struct {
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	DateOfBirth    string    `json:"date_of_birth"` // DD/MM/YYYY as entered
	Gender         string    `json:"gender"`
	Address        string    `json:"address"`
	NationalID     string    `json:"national_id"`
	Phone          string    `json:"phone"`
	AccountType    string    `json:"account_type"` // "savings" or "current"
	PINHash        string    `json:"-"`
	SecurityAnswer string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// NormalizeEmail lower-cases and trims an email identity. All lookups and
// ledger entries use the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
