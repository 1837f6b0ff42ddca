package ledger

import (
	"context"
	"fmt"

	"github.com/fastprodman/ledger/internal/repos/accounts"
	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	FromID int64
	ToID   int64
	Amount decimal.Decimal
}

// Transfer moves Amount from FromID to ToID in one mutation scope.
//
// Row locks are always taken in ascending id order, whatever the direction
// of the transfer, so two transfers over the same pair can never wait on
// each other in a cycle. Either both balances change or neither does.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) error {
	err := CheckTransfer(req.FromID, req.ToID, req.Amount)
	if err != nil {
		return err
	}

	first, second := lockOrder(req.FromID, req.ToID)

	err = s.store.WithTx(ctx, func(tx accounts.Tx) error {
		lockedFirst, err := tx.LockAndGet(ctx, first)
		if err != nil {
			return fmt.Errorf("lock account %d: %w", first, err)
		}

		lockedSecond, err := tx.LockAndGet(ctx, second)
		if err != nil {
			return fmt.Errorf("lock account %d: %w", second, err)
		}

		from, to := lockedFirst, lockedSecond
		if from.ID != req.FromID {
			from, to = to, from
		}

		fromAfter := from.Balance.Sub(req.Amount)
		if CheckResultingBalance(fromAfter) != nil {
			return insufficientFunds(ReasonNotEnoughForTransfer)
		}

		toAfter := to.Balance.Add(req.Amount)

		err = tx.SetBalance(ctx, from.ID, fromAfter)
		if err != nil {
			return fmt.Errorf("debit account %d: %w", from.ID, err)
		}

		err = tx.SetBalance(ctx, to.ID, toAfter)
		if err != nil {
			return fmt.Errorf("credit account %d: %w", to.ID, err)
		}

		return nil
	})
	if err != nil {
		err = fromStore("transfer", err)
	}

	s.logOutcome(ctx, "transfer", err,
		"from_id", req.FromID, "to_id", req.ToID, "amount", req.Amount.String())

	return err
}

func lockOrder(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}

	return b, a
}
