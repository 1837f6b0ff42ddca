package accounts

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNegativeBalance = errors.New("negative balance")
	ErrNotLocked       = errors.New("account row is not locked by this transaction")
	// ErrLockTimeout means the row lock could not be acquired in time.
	// The whole mutation was rolled back and may be retried.
	ErrLockTimeout = errors.New("lock wait timed out")
)

type Account struct {
	ID      int64
	Balance decimal.Decimal
}

// Store owns the persisted balances.
//
// Get never takes a lock. Mutations go through WithTx: fn runs inside one
// transaction, which commits if fn returns nil and rolls back otherwise.
// All row locks taken through the Tx are released when WithTx returns.
type Store interface {
	Create(ctx context.Context, initialBalance decimal.Decimal) (Account, error)
	Get(ctx context.Context, accountID int64) (Account, error)
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of the store inside a mutation scope.
type Tx interface {
	// LockAndGet takes an exclusive lock on the account row and returns its
	// current state. It blocks while another transaction holds the lock.
	LockAndGet(ctx context.Context, accountID int64) (Account, error)
	// SetBalance must only be called for rows locked by this Tx.
	SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
}
