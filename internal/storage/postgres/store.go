// Package postgres persists the ledger and the account directory in
// PostgreSQL via lib/pq. Entry append order is preserved by a bigserial
// sequence column; timestamps are informational only.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/domicoco/edge-bank/internal/interfaces"
	"github.com/domicoco/edge-bank/internal/models"
)

// Schema expected by this package:
//
//	CREATE TABLE ledger_entries (
//	    seq          BIGSERIAL PRIMARY KEY,
//	    id           TEXT NOT NULL UNIQUE,
//	    account_id   TEXT NOT NULL,
//	    kind         TEXT NOT NULL,
//	    amount       NUMERIC(20,2) NOT NULL,
//	    balance      NUMERIC(20,2) NOT NULL,
//	    counterparty TEXT NOT NULL DEFAULT '',
//	    created_at   TIMESTAMPTZ NOT NULL
//	);

type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// AppendEntries writes all entries inside a single database transaction:
// either every entry commits or the transaction rolls back and none are
// observable. This is what makes the two legs of a transfer atomic.
func (p *LedgerStore) AppendEntries(ctx context.Context, entries ...models.LedgerEntry) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	const query = `INSERT INTO ledger_entries (id, account_id, kind, amount, balance, counterparty, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)`

	for _, e := range entries {
		if _, err = dbTx.ExecContext(ctx, query,
			e.ID, e.AccountID, string(e.Kind), e.Amount, e.Balance, e.Counterparty, e.CreatedAt,
		); err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

func (p *LedgerStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	const query = `SELECT id, account_id, kind, amount, balance, counterparty, created_at
	FROM ledger_entries WHERE account_id = $1 ORDER BY seq`

	rows, err := p.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (p *LedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	const query = `SELECT id, account_id, kind, amount, balance, counterparty, created_at
	FROM ledger_entries ORDER BY seq`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			entry models.LedgerEntry
			kind  string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&kind,
			&entry.Amount,
			&entry.Balance,
			&entry.Counterparty,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Kind = models.EntryKind(kind)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ interfaces.LedgerStore = (*LedgerStore)(nil)
