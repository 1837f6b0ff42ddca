package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/fastprodman/ledger/internal/infra/pgutils"
	"github.com/fastprodman/ledger/internal/repos/accounts"
)

var _ accounts.Store = (*accountsRepo)(nil)

type accountsRepo struct {
	db          *sql.DB
	lockTimeout time.Duration
}

type Option func(*accountsRepo)

// WithLockTimeout bounds how long LockAndGet waits for a row lock.
func WithLockTimeout(d time.Duration) Option {
	return func(r *accountsRepo) { r.lockTimeout = d }
}

func New(db *sql.DB, opts ...Option) *accountsRepo {
	r := &accountsRepo{db: db}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *accountsRepo) WithTx(ctx context.Context, fn func(tx accounts.Tx) error) error {
	return pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if r.lockTimeout > 0 {
			err := pgutils.SetLocalLockTimeout(ctx, tx, r.lockTimeout)
			if err != nil {
				return err
			}
		}

		return fn(&txRepo{tx: tx})
	})
}

// txRepo is the accounts.Tx bound to one *sql.Tx.
type txRepo struct{ tx *sql.Tx }
