// Package memory is an in-process accounts.Store.
//
// Every account row owns a one-slot channel used as its exclusive lock, so a
// waiting LockAndGet can give up when its context ends. Writes made inside
// WithTx are buffered and become visible only when the scope commits.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fastprodman/ledger/internal/repos/accounts"
	"github.com/shopspring/decimal"
)

var _ accounts.Store = (*Store)(nil)

var errLockWait = errors.New("lock wait exceeded")

type row struct {
	lock    chan struct{}
	balance decimal.Decimal // guarded by Store.mu
}

type Store struct {
	mu          sync.RWMutex
	rows        map[int64]*row
	lastID      int64
	lockTimeout time.Duration
}

type Option func(*Store)

// WithLockTimeout bounds how long LockAndGet waits for a row lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

func New(opts ...Option) *Store {
	s := &Store{rows: make(map[int64]*row)}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) Create(_ context.Context, initialBalance decimal.Decimal) (accounts.Account, error) {
	if initialBalance.IsNegative() {
		return accounts.Account{}, accounts.ErrNegativeBalance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	s.rows[s.lastID] = &row{
		lock:    make(chan struct{}, 1),
		balance: initialBalance,
	}

	return accounts.Account{ID: s.lastID, Balance: initialBalance}, nil
}

func (s *Store) Get(_ context.Context, accountID int64) (accounts.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[accountID]
	if !ok {
		return accounts.Account{}, accounts.ErrAccountNotFound
	}

	return accounts.Account{ID: accountID, Balance: r.balance}, nil
}

// WithTx runs fn in a mutation scope. Buffered writes are applied only if fn
// returns nil; held row locks are released on every exit path.
func (s *Store) WithTx(ctx context.Context, fn func(tx accounts.Tx) error) error {
	tx := &memTx{
		store:   s,
		held:    make(map[int64]*row, 2),
		pending: make(map[int64]decimal.Decimal, 2),
	}
	defer tx.release()

	err := fn(tx)
	if err != nil {
		return err
	}

	err = ctx.Err()
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	tx.commit()

	return nil
}

type memTx struct {
	store   *Store
	held    map[int64]*row
	pending map[int64]decimal.Decimal
}

func (t *memTx) LockAndGet(ctx context.Context, accountID int64) (accounts.Account, error) {
	if _, ok := t.held[accountID]; ok {
		return t.current(accountID), nil
	}

	t.store.mu.RLock()
	r, ok := t.store.rows[accountID]
	t.store.mu.RUnlock()

	if !ok {
		return accounts.Account{}, accounts.ErrAccountNotFound
	}

	if t.store.lockTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeoutCause(ctx, t.store.lockTimeout, errLockWait)
		defer cancel()
	}

	select {
	case r.lock <- struct{}{}:
	case <-ctx.Done():
		if errors.Is(context.Cause(ctx), errLockWait) {
			return accounts.Account{}, fmt.Errorf("lock account %d: %w", accountID, accounts.ErrLockTimeout)
		}

		return accounts.Account{}, fmt.Errorf("lock account %d: %w", accountID, ctx.Err())
	}

	t.held[accountID] = r

	return t.current(accountID), nil
}

func (t *memTx) SetBalance(_ context.Context, accountID int64, balance decimal.Decimal) error {
	if _, ok := t.held[accountID]; !ok {
		return fmt.Errorf("set balance of account %d: %w", accountID, accounts.ErrNotLocked)
	}

	if balance.IsNegative() {
		return accounts.ErrNegativeBalance
	}

	t.pending[accountID] = balance

	return nil
}

// current returns the balance as seen inside this scope.
func (t *memTx) current(accountID int64) accounts.Account {
	if b, ok := t.pending[accountID]; ok {
		return accounts.Account{ID: accountID, Balance: b}
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	return accounts.Account{ID: accountID, Balance: t.held[accountID].balance}
}

func (t *memTx) commit() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for id, b := range t.pending {
		t.held[id].balance = b
	}
}

func (t *memTx) release() {
	for id, r := range t.held {
		<-r.lock
		delete(t.held, id)
	}

	t.pending = nil
}
