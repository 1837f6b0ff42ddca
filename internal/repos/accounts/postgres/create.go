package postgres

import (
	"context"
	"fmt"

	"github.com/fastprodman/ledger/internal/infra/pgutils"
	"github.com/fastprodman/ledger/internal/repos/accounts"
	"github.com/shopspring/decimal"
)

func (r *accountsRepo) Create(ctx context.Context, initialBalance decimal.Decimal) (accounts.Account, error) {
	if initialBalance.IsNegative() {
		return accounts.Account{}, accounts.ErrNegativeBalance
	}

	var id int64

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (balance)
		VALUES ($1)
		RETURNING id
	`, initialBalance).Scan(&id)
	if err != nil {
		if pgutils.HasCode(err, pgutils.CodeCheckViolation) {
			return accounts.Account{}, accounts.ErrNegativeBalance
		}

		return accounts.Account{}, fmt.Errorf("insert account: %w", err)
	}

	return accounts.Account{ID: id, Balance: initialBalance}, nil
}
