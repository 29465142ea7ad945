package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domicoco/edge-bank/internal/ledger"
	"github.com/domicoco/edge-bank/internal/models"
	"github.com/domicoco/edge-bank/internal/storage/memory"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newTestLedger(t *testing.T, emails ...string) (*ledger.Ledger, *memory.LedgerStore) {
	t.Helper()
	store := memory.NewLedgerStore()
	dir := memory.NewDirectory()
	for _, email := range emails {
		require.NoError(t, dir.Create(context.Background(), models.Account{Email: email, Name: email}))
	}
	return ledger.NewLedger(store, dir), store
}

func entryCount(t *testing.T, store *memory.LedgerStore) int {
	t.Helper()
	entries, err := store.GetLedgerEntries(context.Background())
	require.NoError(t, err)
	return len(entries)
}

func TestDepositFreshAccount(t *testing.T) {
	l, _ := newTestLedger(t, "a@x")
	ctx := context.Background()

	balance, err := l.Deposit(ctx, "a@x", dec(t, "100.00"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(t, "100.00")))

	resolved, err := l.Balance(ctx, "a@x")
	require.NoError(t, err)
	assert.True(t, resolved.Equal(dec(t, "100.00")))
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	l, store := newTestLedger(t, "a@x")
	ctx := context.Background()

	_, err := l.Deposit(ctx, "a@x", dec(t, "100.00"))
	require.NoError(t, err)
	before := entryCount(t, store)

	_, err = l.Withdraw(ctx, "a@x", dec(t, "150.00"))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// The shortfall balance is reported to the caller.
	var shortfall *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &shortfall)
	assert.True(t, shortfall.Balance.Equal(dec(t, "100.00")))

	// No partial write on rejection.
	assert.Equal(t, before, entryCount(t, store))

	balance, err := l.Balance(ctx, "a@x")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(t, "100.00")))
}

func TestTransfer(t *testing.T) {
	l, store := newTestLedger(t, "a@x", "b@x")
	ctx := context.Background()

	_, err := l.Deposit(ctx, "a@x", dec(t, "100.00"))
	require.NoError(t, err)

	senderBalance, err := l.Transfer(ctx, "a@x", "b@x", dec(t, "40.00"))
	require.NoError(t, err)
	assert.True(t, senderBalance.Equal(dec(t, "60.00")))

	balA, err := l.Balance(ctx, "a@x")
	require.NoError(t, err)
	balB, err := l.Balance(ctx, "b@x")
	require.NoError(t, err)
	assert.True(t, balA.Equal(dec(t, "60.00")))
	assert.True(t, balB.Equal(dec(t, "40.00")))

	// Both legs are linked: same amount, mirrored counterparties.
	entries, err := store.GetLedgerEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	out, in := entries[1], entries[2]
	assert.Equal(t, models.KindTransferOut, out.Kind)
	assert.Equal(t, models.KindTransferIn, in.Kind)
	assert.True(t, out.Amount.Equal(in.Amount))
	assert.Equal(t, "b@x", out.Counterparty)
	assert.Equal(t, "a@x", in.Counterparty)
}

func TestTransferRejections(t *testing.T) {
	l, store := newTestLedger(t, "a@x", "b@x")
	ctx := context.Background()

	_, err := l.Deposit(ctx, "a@x", dec(t, "100.00"))
	require.NoError(t, err)
	before := entryCount(t, store)

	_, err = l.Transfer(ctx, "a@x", "a@x", dec(t, "10.00"))
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, err = l.Transfer(ctx, "a@x", "unknown@x", dec(t, "10.00"))
	assert.ErrorIs(t, err, ledger.ErrInvalidRecipient)

	_, err = l.Transfer(ctx, "a@x", "b@x", dec(t, "0"))
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, err = l.Transfer(ctx, "a@x", "b@x", dec(t, "-5.00"))
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, err = l.Transfer(ctx, "a@x", "b@x", dec(t, "1.005"))
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = l.Transfer(ctx, "a@x", "b@x", dec(t, "200.00"))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// Every rejection leaves the ledger untouched.
	assert.Equal(t, before, entryCount(t, store))
}

func TestDepositWithdrawRejections(t *testing.T) {
	l, store := newTestLedger(t, "a@x")
	ctx := context.Background()

	for _, amt := range []string{"0", "-1.00"} {
		_, err := l.Deposit(ctx, "a@x", dec(t, amt))
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument, "deposit %s", amt)
		_, err = l.Withdraw(ctx, "a@x", dec(t, amt))
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument, "withdraw %s", amt)
	}

	_, err := l.Deposit(ctx, "a@x", dec(t, "0.001"))
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	assert.Equal(t, 0, entryCount(t, store))
}

func TestBalanceUnknownAccountIsZero(t *testing.T) {
	l, _ := newTestLedger(t)

	balance, err := l.Balance(context.Background(), "nobody@x")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestBalanceResolutionIdempotent(t *testing.T) {
	l, _ := newTestLedger(t, "a@x")
	ctx := context.Background()

	_, err := l.Deposit(ctx, "a@x", dec(t, "12.34"))
	require.NoError(t, err)

	first, err := l.Balance(ctx, "a@x")
	require.NoError(t, err)
	second, err := l.Balance(ctx, "a@x")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestResolveAgreesWithReplay(t *testing.T) {
	l, store := newTestLedger(t, "a@x", "b@x")
	ctx := context.Background()

	_, err := l.Deposit(ctx, "a@x", dec(t, "500.00"))
	require.NoError(t, err)
	_, err = l.Withdraw(ctx, "a@x", dec(t, "120.50"))
	require.NoError(t, err)
	_, err = l.Transfer(ctx, "a@x", "b@x", dec(t, "79.50"))
	require.NoError(t, err)
	_, err = l.Deposit(ctx, "b@x", dec(t, "0.01"))
	require.NoError(t, err)

	for _, account := range []string{"a@x", "b@x"} {
		entries, err := store.GetEntriesByAccount(ctx, account)
		require.NoError(t, err)
		assert.True(t, ledger.Resolve(entries).Equal(ledger.Replay(entries)), "account %s", account)
	}
}

func TestHistory(t *testing.T) {
	l, _ := newTestLedger(t, "a@x")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.Deposit(ctx, "a@x", dec(t, "1.00"))
		require.NoError(t, err)
	}

	all, err := l.History(ctx, "a@x", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	tail, err := l.History(ctx, "a@x", 3)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	// The tail keeps append order; its last entry is the newest.
	assert.True(t, tail[2].Balance.Equal(dec(t, "5.00")))
}

func TestCaseNormalizedIdentity(t *testing.T) {
	l, _ := newTestLedger(t, "a@x")
	ctx := context.Background()

	_, err := l.Deposit(ctx, "  A@X  ", dec(t, "25.00"))
	require.NoError(t, err)

	balance, err := l.Balance(ctx, "a@x")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(t, "25.00")))
}

// TestConcurrentWithdrawalsCannotOverdraw drives parallel withdrawals
// against one account: the serialized read-validate-append sequence must
// never let two of them both see the same pre-withdrawal balance.
func TestConcurrentWithdrawalsCannotOverdraw(t *testing.T) {
	l, _ := newTestLedger(t, "a@x")
	ctx := context.Background()

	_, err := l.Deposit(ctx, "a@x", dec(t, "100.00"))
	require.NoError(t, err)

	const workers = 10
	amount := dec(t, "60.00")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.Withdraw(ctx, "a@x", amount); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Only one 60.00 withdrawal fits into 100.00.
	assert.Equal(t, 1, succeeded)

	balance, err := l.Balance(ctx, "a@x")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(t, "40.00")))
	assert.False(t, balance.IsNegative())
}

// TestConcurrentTransfersConserveFunds runs opposing transfer storms and
// checks that the sum of balances never changes.
func TestConcurrentTransfersConserveFunds(t *testing.T) {
	l, _ := newTestLedger(t, "a@x", "b@x")
	ctx := context.Background()

	_, err := l.Deposit(ctx, "a@x", dec(t, "1000.00"))
	require.NoError(t, err)
	_, err = l.Deposit(ctx, "b@x", dec(t, "1000.00"))
	require.NoError(t, err)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.Transfer(ctx, "a@x", "b@x", dec(t, "1.00")); err != nil {
				t.Errorf("a->b: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := l.Transfer(ctx, "b@x", "a@x", dec(t, "1.00")); err != nil {
				t.Errorf("b->a: %v", err)
			}
		}()
	}
	wg.Wait()

	balA, err := l.Balance(ctx, "a@x")
	require.NoError(t, err)
	balB, err := l.Balance(ctx, "b@x")
	require.NoError(t, err)

	assert.False(t, balA.IsNegative())
	assert.False(t, balB.IsNegative())
	assert.True(t, balA.Add(balB).Equal(dec(t, "2000.00")))
}

// TestTransferLegsNeverObservedAlone snapshots the whole log while
// transfers are in flight: every snapshot must contain as many
// transfer-out entries as transfer-in entries.
func TestTransferLegsNeverObservedAlone(t *testing.T) {
	l, store := newTestLedger(t, "a@x", "b@x")
	ctx := context.Background()

	_, err := l.Deposit(ctx, "a@x", dec(t, "1000.00"))
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			entries, err := store.GetLedgerEntries(ctx)
			if err != nil {
				t.Errorf("snapshot: %v", err)
				return
			}
			var outs, ins int
			for _, e := range entries {
				switch e.Kind {
				case models.KindTransferOut:
					outs++
				case models.KindTransferIn:
					ins++
				}
			}
			if outs != ins {
				t.Errorf("half-applied transfer observed: %d out, %d in", outs, ins)
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		_, err := l.Transfer(ctx, "a@x", "b@x", dec(t, "1.00"))
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()
}

// failingStore rejects every append, simulating a durable-write failure.
type failingStore struct {
	*memory.LedgerStore
}

func (f *failingStore) AppendEntries(ctx context.Context, entries ...models.LedgerEntry) error {
	return errors.New("disk full")
}

func TestStorageFailureIsWrapped(t *testing.T) {
	dir := memory.NewDirectory()
	require.NoError(t, dir.Create(context.Background(), models.Account{Email: "a@x"}))
	l := ledger.NewLedger(&failingStore{memory.NewLedgerStore()}, dir)

	_, err := l.Deposit(context.Background(), "a@x", dec(t, "10.00"))
	require.ErrorIs(t, err, ledger.ErrStorage)
	// The raw storage error text is not part of the sentinel.
	assert.NotErrorIs(t, err, ledger.ErrInvalidInput)
}
