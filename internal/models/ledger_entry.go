package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	KindDeposit     EntryKind = "deposit"
	KindWithdraw    EntryKind = "withdraw"
	KindTransferOut EntryKind = "transfer-out"
	KindTransferIn  EntryKind = "transfer-in"
)

// LedgerEntry is one immutable record of a balance-affecting event.
// Entries are never edited or deleted after being appended; append order
// is authoritative, CreatedAt is informational.
type LedgerEntry struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	Kind         EntryKind       `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`  // always positive
	Balance      decimal.Decimal `json:"balance"` // resulting balance after this entry
	Counterparty string          `json:"counterparty,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
