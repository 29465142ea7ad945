package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/domicoco/edge-bank/internal/interfaces"
	"github.com/domicoco/edge-bank/internal/ledger"
	"github.com/domicoco/edge-bank/internal/models"
)

// Directory is an in-memory account directory keyed by normalized email.
type Directory struct {
	mu       sync.Mutex
	accounts map[string]models.Account
}

func NewDirectory() *Directory {
	return &Directory{accounts: make(map[string]models.Account)}
}

func (d *Directory) Exists(ctx context.Context, email string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.accounts[models.NormalizeEmail(email)]
	return ok, nil
}

func (d *Directory) Get(ctx context.Context, email string) (models.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.accounts[models.NormalizeEmail(email)]
	if !ok {
		return models.Account{}, ledger.ErrNotFound
	}
	return a, nil
}

func (d *Directory) Create(ctx context.Context, account models.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := models.NormalizeEmail(account.Email)
	if _, ok := d.accounts[key]; ok {
		return fmt.Errorf("account %s already registered", key)
	}
	account.Email = key
	d.accounts[key] = account
	return nil
}

func (d *Directory) GetCredential(ctx context.Context, email string) (string, error) {
	a, err := d.Get(ctx, email)
	if err != nil {
		return "", err
	}
	return a.PINHash, nil
}

func (d *Directory) SetCredential(ctx context.Context, email, pinHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := models.NormalizeEmail(email)
	a, ok := d.accounts[key]
	if !ok {
		return ledger.ErrNotFound
	}
	a.PINHash = pinHash
	d.accounts[key] = a
	return nil
}

func (d *Directory) GetSecurityAnswer(ctx context.Context, email string) (string, error) {
	a, err := d.Get(ctx, email)
	if err != nil {
		return "", err
	}
	return a.SecurityAnswer, nil
}

var _ interfaces.AccountDirectory = (*Directory)(nil)
