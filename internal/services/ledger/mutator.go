package ledger

import (
	"context"
	"fmt"

	"github.com/fastprodman/ledger/internal/repos/accounts"
	"github.com/shopspring/decimal"
)

// Deposit adds a positive amount to the account.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (accounts.Account, error) {
	err := CheckAccountID(accountID)
	if err != nil {
		return accounts.Account{}, err
	}

	err = CheckDeposit(amount)
	if err != nil {
		return accounts.Account{}, err
	}

	return s.applyDelta(ctx, accountID, amount)
}

// Withdraw takes the withdrawal in delta form: delta must be negative.
func (s *Service) Withdraw(ctx context.Context, accountID int64, delta decimal.Decimal) (accounts.Account, error) {
	err := CheckAccountID(accountID)
	if err != nil {
		return accounts.Account{}, err
	}

	err = CheckWithdraw(delta)
	if err != nil {
		return accounts.Account{}, err
	}

	return s.applyDelta(ctx, accountID, delta)
}

// ApplyDelta adds delta to the balance. The sign selects the rule: a positive
// delta is a deposit, anything else is validated as a withdrawal.
func (s *Service) ApplyDelta(ctx context.Context, accountID int64, delta decimal.Decimal) (accounts.Account, error) {
	if delta.IsPositive() {
		return s.Deposit(ctx, accountID, delta)
	}

	return s.Withdraw(ctx, accountID, delta)
}

func (s *Service) applyDelta(ctx context.Context, accountID int64, delta decimal.Decimal) (accounts.Account, error) {
	var updated accounts.Account

	err := s.store.WithTx(ctx, func(tx accounts.Tx) error {
		acc, err := tx.LockAndGet(ctx, accountID)
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		after := acc.Balance.Add(delta)

		err = CheckResultingBalance(after)
		if err != nil {
			return err
		}

		err = tx.SetBalance(ctx, accountID, after)
		if err != nil {
			return fmt.Errorf("set balance: %w", err)
		}

		updated = accounts.Account{ID: accountID, Balance: after}

		return nil
	})
	if err != nil {
		err = fromStore("apply delta", err)
	}

	s.logOutcome(ctx, "balance change", err, "account_id", accountID, "delta", delta.String())

	if err != nil {
		return accounts.Account{}, err
	}

	return updated, nil
}
