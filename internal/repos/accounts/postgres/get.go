package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/ledger/internal/repos/accounts"
)

func (r *accountsRepo) Get(ctx context.Context, accountID int64) (accounts.Account, error) {
	var acc accounts.Account

	err := r.db.QueryRowContext(ctx, `
		SELECT id, balance
		FROM accounts
		WHERE id = $1
	`, accountID).Scan(&acc.ID, &acc.Balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}

		return accounts.Account{}, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}
