// Package memory holds in-memory implementations of the ledger store and
// the account directory. Used by tests and by the server when no database
// is configured.
package memory

import (
	"context"
	"sync"

	"github.com/domicoco/edge-bank/internal/interfaces"
	"github.com/domicoco/edge-bank/internal/models"
)

// LedgerStore keeps the append-only entry log in a slice guarded by a
// mutex. Slice order is append order.
type LedgerStore struct {
	mu      sync.Mutex
	entries []models.LedgerEntry
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{entries: make([]models.LedgerEntry, 0)}
}

// AppendEntries appends every entry under one lock acquisition, so a
// multi-entry unit is never observable half-applied.
func (m *LedgerStore) AppendEntries(ctx context.Context, entries ...models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entries...)
	return nil
}

// GetEntriesByAccount returns copies of the account's entries in append order.
func (m *LedgerStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	return result, nil
}

// GetLedgerEntries returns a copy of the whole log in append order.
func (m *LedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.LedgerEntry, len(m.entries))
	copy(copied, m.entries)
	return copied, nil
}

var _ interfaces.LedgerStore = (*LedgerStore)(nil)
