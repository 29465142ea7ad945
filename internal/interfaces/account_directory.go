package interfaces

import (
	"context"

	"github.com/domicoco/edge-bank/internal/models"
)

// AccountDirectory maps a normalized email identity to its profile and
// hashed credential. Lookup misses are reported as ledger.ErrNotFound by
// implementations.
type AccountDirectory interface {
	Exists(ctx context.Context, email string) (bool, error)
	Get(ctx context.Context, email string) (models.Account, error)
	Create(ctx context.Context, account models.Account) error
	GetCredential(ctx context.Context, email string) (string, error)
	SetCredential(ctx context.Context, email, pinHash string) error
	GetSecurityAnswer(ctx context.Context, email string) (string, error)
}
