package interfaces

import (
	"context"

	"github.com/domicoco/edge-bank/internal/models"
)

// LedgerStore is the durable append-only sequence of ledger entries.
// AppendEntries persists every given entry as one atomic unit: either all
// become durable or none do. Reads return entries in append order.
type LedgerStore interface {
	AppendEntries(ctx context.Context, entries ...models.LedgerEntry) error
	GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
	GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error)
}
