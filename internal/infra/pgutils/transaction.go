package pgutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// WithTx runs fn inside a transaction.
// It commits if fn returns nil, otherwise it rolls back.
// A panic in fn rolls the transaction back and is re-raised.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil) // default isolation level
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		p := recover()
		if p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	err = fn(tx)
	if err != nil {
		rbErr := tx.Rollback()
		// database/sql already rolls back on context cancellation.
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// SetLocalLockTimeout limits how long statements in tx wait for row locks.
// The setting ends with the transaction.
func SetLocalLockTimeout(ctx context.Context, tx *sql.Tx, d time.Duration) error {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}

	_, err := tx.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, fmt.Sprintf("%dms", ms))
	if err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	return nil
}
