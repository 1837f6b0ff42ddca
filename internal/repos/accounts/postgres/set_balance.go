package postgres

import (
	"context"
	"fmt"

	"github.com/fastprodman/ledger/internal/infra/pgutils"
	"github.com/fastprodman/ledger/internal/repos/accounts"
	"github.com/shopspring/decimal"
)

func (t *txRepo) SetBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $2
		WHERE id = $1
	`, accountID, balance)
	if err != nil {
		if pgutils.HasCode(err, pgutils.CodeCheckViolation) {
			return accounts.ErrNegativeBalance
		}

		return fmt.Errorf("set balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return accounts.ErrAccountNotFound
	}

	return nil
}
