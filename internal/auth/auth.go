// Package auth is the session gate in front of the ledger: registration,
// login, and security-question PIN recovery against the account directory.
// Login fails closed: an unknown email and a wrong PIN produce the same
// rejection so callers learn nothing about which factor failed.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/domicoco/edge-bank/internal/interfaces"
	"github.com/domicoco/edge-bank/internal/ledger"
	"github.com/domicoco/edge-bank/internal/models"
	"github.com/domicoco/edge-bank/internal/pin"
)

var (
	// ErrLoginFailed is the single generic rejection for any login miss.
	ErrLoginFailed = errors.New("wrong email or pin")

	// ErrRecoveryFailed is the single generic rejection for PIN recovery.
	ErrRecoveryFailed = errors.New("incorrect email or security answer")

	// ErrAlreadyRegistered marks a duplicate registration email.
	ErrAlreadyRegistered = errors.New("email already registered")
)

// Authenticator verifies identities against the account directory.
type Authenticator struct {
	directory interfaces.AccountDirectory
}

func NewAuthenticator(directory interfaces.AccountDirectory) *Authenticator {
	return &Authenticator{directory: directory}
}

// Register stores a new account with a hashed PIN. The plaintext PIN is
// never persisted.
func (a *Authenticator) Register(ctx context.Context, account models.Account, rawPIN string) error {
	account.Email = models.NormalizeEmail(account.Email)
	if account.Email == "" {
		return ledger.ErrInvalidInput
	}

	hash, err := pin.Hash(rawPIN)
	if err != nil {
		return err
	}

	exists, err := a.directory.Exists(ctx, account.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyRegistered
	}

	account.PINHash = hash
	account.SecurityAnswer = normalizeAnswer(account.SecurityAnswer)
	account.CreatedAt = time.Now().UTC()
	return a.directory.Create(ctx, account)
}

// Login verifies email + PIN. Every failure path returns ErrLoginFailed.
func (a *Authenticator) Login(ctx context.Context, email, rawPIN string) error {
	stored, err := a.directory.GetCredential(ctx, models.NormalizeEmail(email))
	if err != nil {
		return ErrLoginFailed
	}
	if !pin.Verify(rawPIN, stored) {
		return ErrLoginFailed
	}
	return nil
}

// ResetPIN replaces the stored credential after the security answer is
// verified. Mismatch and unknown email both return ErrRecoveryFailed.
func (a *Authenticator) ResetPIN(ctx context.Context, email, securityAnswer, newPIN string) error {
	email = models.NormalizeEmail(email)

	stored, err := a.directory.GetSecurityAnswer(ctx, email)
	if err != nil {
		return ErrRecoveryFailed
	}
	if normalizeAnswer(securityAnswer) != stored {
		return ErrRecoveryFailed
	}

	hash, err := pin.Hash(newPIN)
	if err != nil {
		return err
	}
	return a.directory.SetCredential(ctx, email, hash)
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
