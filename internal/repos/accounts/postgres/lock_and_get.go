package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/ledger/internal/infra/pgutils"
	"github.com/fastprodman/ledger/internal/repos/accounts"
)

func (t *txRepo) LockAndGet(ctx context.Context, accountID int64) (accounts.Account, error) {
	var acc accounts.Account

	err := t.tx.QueryRowContext(ctx, `
		SELECT id, balance
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID).Scan(&acc.ID, &acc.Balance)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return accounts.Account{}, accounts.ErrAccountNotFound
		case pgutils.HasCode(err, pgutils.CodeLockNotAvailable, pgutils.CodeDeadlockDetected):
			return accounts.Account{}, fmt.Errorf("lock account %d: %w: %w", accountID, accounts.ErrLockTimeout, err)
		default:
			return accounts.Account{}, fmt.Errorf("lock/get account: %w", err)
		}
	}

	return acc, nil
}
