// Package ledger implements the account ledger engine: an append-only
// transaction log, balance derivation from entry history, and the
// double-entry transfer protocol.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/domicoco/edge-bank/internal/interfaces"
	"github.com/domicoco/edge-bank/internal/models"
)

// Ledger validates intents and appends immutable entries to the store.
// A per-account mutex serializes the read-balance/validate/append sequence
// so two interleaved withdrawals cannot both read the same pre-withdrawal
// balance. A transfer holds both account locks for the whole critical
// section: both balance reads and the atomic two-entry append.
type Ledger struct {
	store     interfaces.LedgerStore
	directory interfaces.AccountDirectory
	muMap     map[string]*sync.Mutex // one mutex per account identity
	mapMu     sync.Mutex             // protects muMap itself
}

// NewLedger wires the engine to a ledger store and the account directory
// used to validate transfer recipients.
func NewLedger(store interfaces.LedgerStore, directory interfaces.AccountDirectory) *Ledger {
	return &Ledger{
		store:     store,
		directory: directory,
		muMap:     make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) getAccountLock(accountID string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[accountID]; !exists {
		l.muMap[accountID] = &sync.Mutex{}
	}
	return l.muMap[accountID]
}

// checkAmount enforces the amount contract: positive, at most two decimal
// places (currency minor units).
func checkAmount(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidInput
	}
	if amount.Cmp(decimal.Zero) <= 0 {
		return ErrInvalidArgument
	}
	return nil
}

// Resolve derives a balance from an account's entries in append order:
// the resulting balance of the last entry, or zero if there are none.
func Resolve(entries []models.LedgerEntry) decimal.Decimal {
	if len(entries) == 0 {
		return decimal.Zero
	}
	return entries[len(entries)-1].Balance
}

// Replay folds an account's full history from entry kinds and amounts,
// ignoring the recorded resulting balances. Resolve and Replay must agree
// on any well-formed history; tests use Replay to cross-check Resolve.
func Replay(entries []models.LedgerEntry) decimal.Decimal {
	balance := decimal.Zero
	for _, e := range entries {
		switch e.Kind {
		case models.KindDeposit, models.KindTransferIn:
			balance = balance.Add(e.Amount)
		case models.KindWithdraw, models.KindTransferOut:
			balance = balance.Sub(e.Amount)
		}
	}
	return balance
}

// currentBalance reads the account's entries and resolves the balance.
// Callers that are about to append must hold the account lock.
func (l *Ledger) currentBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	entries, err := l.store.GetEntriesByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, storageErr(err)
	}
	return Resolve(entries), nil
}

// Deposit appends a deposit entry and returns the new balance. It never
// fails for insufficient funds.
func (l *Ledger) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	accountID = models.NormalizeEmail(accountID)
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}

	mu := l.getAccountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	current, err := l.currentBalance(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	entry := models.LedgerEntry{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Kind:      models.KindDeposit,
		Amount:    amount,
		Balance:   current.Add(amount),
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.AppendEntries(ctx, entry); err != nil {
		return decimal.Zero, storageErr(err)
	}
	return entry.Balance, nil
}

// Withdraw appends a withdrawal entry and returns the new balance. It
// rejects with *InsufficientFundsError, appending nothing, when the amount
// exceeds the current balance.
func (l *Ledger) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	accountID = models.NormalizeEmail(accountID)
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}

	mu := l.getAccountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	current, err := l.currentBalance(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.Cmp(current) > 0 {
		return decimal.Zero, &InsufficientFundsError{Balance: current}
	}

	entry := models.LedgerEntry{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Kind:      models.KindWithdraw,
		Amount:    amount,
		Balance:   current.Sub(amount),
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.AppendEntries(ctx, entry); err != nil {
		return decimal.Zero, storageErr(err)
	}
	return entry.Balance, nil
}

// Transfer moves amount from sender to recipient as a double-entry pair:
// a transfer-out entry for the sender and a transfer-in entry for the
// recipient, appended as one atomic unit. Returns the sender's new balance.
//
// Both legs carry the same transfer ID suffixed -out / -in so they stay
// linked in the log.
func (l *Ledger) Transfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (decimal.Decimal, error) {
	senderID = models.NormalizeEmail(senderID)
	recipientID = models.NormalizeEmail(recipientID)

	// Validation happens before any lock or mutation; a rejected transfer
	// leaves the ledger untouched.
	known, err := l.directory.Exists(ctx, recipientID)
	if err != nil {
		return decimal.Zero, storageErr(err)
	}
	if !known {
		return decimal.Zero, ErrInvalidRecipient
	}
	if senderID == recipientID {
		return decimal.Zero, ErrInvalidArgument
	}
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}

	senderMu := l.getAccountLock(senderID)
	recipientMu := l.getAccountLock(recipientID)

	// Lock in lexicographic order to avoid deadlock with a concurrent
	// transfer in the opposite direction.
	if senderID < recipientID {
		senderMu.Lock()
		recipientMu.Lock()
	} else {
		recipientMu.Lock()
		senderMu.Lock()
	}
	defer senderMu.Unlock()
	defer recipientMu.Unlock()

	senderBalance, err := l.currentBalance(ctx, senderID)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.Cmp(senderBalance) > 0 {
		return decimal.Zero, &InsufficientFundsError{Balance: senderBalance}
	}

	recipientBalance, err := l.currentBalance(ctx, recipientID)
	if err != nil {
		return decimal.Zero, err
	}

	transferID := uuid.New().String()
	now := time.Now().UTC()

	out := models.LedgerEntry{
		ID:           transferID + "-out",
		AccountID:    senderID,
		Kind:         models.KindTransferOut,
		Amount:       amount,
		Balance:      senderBalance.Sub(amount),
		Counterparty: recipientID,
		CreatedAt:    now,
	}
	in := models.LedgerEntry{
		ID:           transferID + "-in",
		AccountID:    recipientID,
		Kind:         models.KindTransferIn,
		Amount:       amount,
		Balance:      recipientBalance.Add(amount),
		Counterparty: senderID,
		CreatedAt:    now,
	}

	if err := l.store.AppendEntries(ctx, out, in); err != nil {
		return decimal.Zero, storageErr(err)
	}
	return out.Balance, nil
}

// Balance resolves an account's current balance. An account with no
// entries resolves to zero.
func (l *Ledger) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return l.currentBalance(ctx, models.NormalizeEmail(accountID))
}

// History returns the account's most recent entries in append order.
// limit <= 0 returns the full history.
func (l *Ledger) History(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	entries, err := l.store.GetEntriesByAccount(ctx, models.NormalizeEmail(accountID))
	if err != nil {
		return nil, storageErr(err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
