package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors returned by the ledger and its stores. Callers match them
// with errors.Is; the HTTP layer maps each to a status code and a generic
// message so raw storage errors never leak.
var (
	// ErrInvalidInput marks a malformed amount (non-numeric or more than
	// two decimal places).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidArgument marks a non-positive amount or a self-transfer.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidRecipient marks a transfer to an unknown account.
	ErrInvalidRecipient = errors.New("recipient not found")

	// ErrInsufficientFunds marks a withdrawal or transfer exceeding the
	// current balance. Returned as *InsufficientFundsError.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotFound marks a missing account or credential. An account with
	// no ledger activity is not an error, it simply resolves to zero.
	ErrNotFound = errors.New("not found")

	// ErrStorage wraps durable read/write failures.
	ErrStorage = errors.New("storage failure")
)

// InsufficientFundsError reports the shortfall balance to the caller.
type InsufficientFundsError struct {
	Balance decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance is %s", e.Balance.StringFixed(2))
}

// Is makes errors.Is(err, ErrInsufficientFunds) match.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
