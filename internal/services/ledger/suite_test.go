package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fastprodman/ledger/internal/repos/accounts"
	"github.com/fastprodman/ledger/internal/services/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// storeFactory returns an empty store. Account ids start at 1.
type storeFactory func(t *testing.T) accounts.Store

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T, svc *ledger.Service, balances ...string) []int64 {
	t.Helper()

	ids := make([]int64, 0, len(balances))

	for _, b := range balances {
		acc, err := svc.CreateAccount(t.Context(), dec(b))
		require.NoError(t, err)

		ids = append(ids, acc.ID)
	}

	return ids
}

func requireBalance(t *testing.T, svc *ledger.Service, id int64, want string) {
	t.Helper()

	acc, err := svc.GetAccount(t.Context(), id)
	require.NoError(t, err)
	require.Truef(t, dec(want).Equal(acc.Balance), "account %d: want %s, got %s", id, want, acc.Balance)
}

func requireRejected(t *testing.T, err error, kind error, reason string) {
	t.Helper()

	require.ErrorIs(t, err, kind)

	got, ok := ledger.Reason(err)
	require.True(t, ok, "expected a ledger rejection, got %v", err)
	assert.Equal(t, reason, got)
}

// runServiceSuite checks the ledger behaviour against any accounts.Store.
//
//nolint:maintidx
func runServiceSuite(t *testing.T, newStore storeFactory) {
	t.Helper()

	newService := func(t *testing.T) *ledger.Service {
		t.Helper()

		return ledger.New(newStore(t))
	}

	t.Run("create_and_get", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)

		acc, err := svc.CreateAccount(t.Context(), dec("15.10"))
		require.NoError(t, err)
		assert.Positive(t, acc.ID)

		requireBalance(t, svc, acc.ID, "15.10")

		other, err := svc.CreateAccount(t.Context(), decimal.Zero)
		require.NoError(t, err)
		assert.NotEqual(t, acc.ID, other.ID)
	})

	t.Run("create_negative_rejected", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)

		_, err := svc.CreateAccount(t.Context(), dec("-0.01"))
		requireRejected(t, err, ledger.ErrInvalidArgument, ledger.ReasonNegativeInitialBalance)
	})

	t.Run("get_missing", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)

		_, err := svc.GetAccount(t.Context(), 404)
		requireRejected(t, err, ledger.ErrNotFound, ledger.ReasonAccountNotFound)
	})

	t.Run("deposit_adds_decimal_amount", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)
		ids := seed(t, svc, "15.10")

		acc, err := svc.Deposit(t.Context(), ids[0], dec("100.50"))
		require.NoError(t, err)
		assert.True(t, dec("115.60").Equal(acc.Balance), "got %s", acc.Balance)

		requireBalance(t, svc, ids[0], "115.60")
	})

	t.Run("withdraw_takes_negative_delta", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)
		ids := seed(t, svc, "10", "20", "46.00")

		acc, err := svc.Withdraw(t.Context(), ids[2], dec("-20"))
		require.NoError(t, err)
		assert.True(t, dec("26.00").Equal(acc.Balance), "got %s", acc.Balance)

		requireBalance(t, svc, ids[2], "26")
		requireBalance(t, svc, ids[0], "10")
		requireBalance(t, svc, ids[1], "20")
	})

	t.Run("withdraw_insufficient_leaves_balance", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)
		ids := seed(t, svc, "5")

		_, err := svc.Withdraw(t.Context(), ids[0], dec("-5.01"))
		requireRejected(t, err, ledger.ErrInsufficientFunds, ledger.ReasonInsufficientFunds)

		requireBalance(t, svc, ids[0], "5")

		acc, err := svc.Withdraw(t.Context(), ids[0], dec("-5"))
		require.NoError(t, err)
		assert.True(t, acc.Balance.IsZero())
	})

	t.Run("sign_rules", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)
		ids := seed(t, svc, "50")

		_, err := svc.Deposit(t.Context(), ids[0], decimal.Zero)
		requireRejected(t, err, ledger.ErrInvalidArgument, ledger.ReasonAmountNotPositive)

		_, err = svc.Deposit(t.Context(), ids[0], dec("-1"))
		requireRejected(t, err, ledger.ErrInvalidArgument, ledger.ReasonAmountNotPositive)

		_, err = svc.Withdraw(t.Context(), ids[0], dec("1"))
		requireRejected(t, err, ledger.ErrInvalidArgument, ledger.ReasonAmountNotNegative)

		_, err = svc.Withdraw(t.Context(), ids[0], decimal.Zero)
		requireRejected(t, err, ledger.ErrInvalidArgument, ledger.ReasonAmountNotNegative)

		_, err = svc.ApplyDelta(t.Context(), ids[0], decimal.Zero)
		requireRejected(t, err, ledger.ErrInvalidArgument, ledger.ReasonAmountNotNegative)

		requireBalance(t, svc, ids[0], "50")
	})

	t.Run("mutations_on_missing_account", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)

		_, err := svc.Deposit(t.Context(), 999, dec("1"))
		requireRejected(t, err, ledger.ErrNotFound, ledger.ReasonAccountNotFound)

		_, err = svc.Withdraw(t.Context(), 999, dec("-1"))
		requireRejected(t, err, ledger.ErrNotFound, ledger.ReasonAccountNotFound)

		_, err = svc.Deposit(t.Context(), 0, dec("1"))
		requireRejected(t, err, ledger.ErrInvalidArgument, ledger.ReasonAccountIDNotPositive)
	})

	t.Run("deposit_then_withdraw_restores", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)
		ids := seed(t, svc, "12.34")

		_, err := svc.ApplyDelta(t.Context(), ids[0], dec("7.66"))
		require.NoError(t, err)
		requireBalance(t, svc, ids[0], "20")

		_, err = svc.ApplyDelta(t.Context(), ids[0], dec("-7.66"))
		require.NoError(t, err)
		requireBalance(t, svc, ids[0], "12.34")
	})

	t.Run("transfer_rejections_leave_balances", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)
		ids := seed(t, svc, "10", "20", "30")
		missing := ids[2] + 100

		tests := []struct {
			name   string
			req    ledger.TransferRequest
			kind   error
			reason string
		}{
			{"from_missing", ledger.TransferRequest{FromID: missing, ToID: ids[0], Amount: dec("1")}, ledger.ErrNotFound, ledger.ReasonAccountNotFound},
			{"to_missing", ledger.TransferRequest{FromID: ids[0], ToID: missing, Amount: dec("1")}, ledger.ErrNotFound, ledger.ReasonAccountNotFound},
			{"same_missing_account", ledger.TransferRequest{FromID: missing, ToID: missing, Amount: dec("1")}, ledger.ErrInvalidArgument, ledger.ReasonSameAccount},
			{"same_account", ledger.TransferRequest{FromID: ids[0], ToID: ids[0], Amount: dec("1")}, ledger.ErrInvalidArgument, ledger.ReasonSameAccount},
			{"negative_amount", ledger.TransferRequest{FromID: ids[0], ToID: ids[1], Amount: dec("-1")}, ledger.ErrInvalidArgument, ledger.ReasonAmountNotPositive},
			{"zero_amount", ledger.TransferRequest{FromID: ids[0], ToID: ids[1], Amount: decimal.Zero}, ledger.ErrInvalidArgument, ledger.ReasonAmountNotPositive},
			{"not_enough", ledger.TransferRequest{FromID: ids[0], ToID: ids[1], Amount: dec("10.5")}, ledger.ErrInsufficientFunds, ledger.ReasonNotEnoughForTransfer},
			{"not_enough_reverse_order", ledger.TransferRequest{FromID: ids[1], ToID: ids[0], Amount: dec("20.01")}, ledger.ErrInsufficientFunds, ledger.ReasonNotEnoughForTransfer},
		}

		for _, tt := range tests {
			err := svc.Transfer(t.Context(), tt.req)
			requireRejected(t, err, tt.kind, tt.reason)
		}

		requireBalance(t, svc, ids[0], "10")
		requireBalance(t, svc, ids[1], "20")
		requireBalance(t, svc, ids[2], "30")
	})

	t.Run("transfer_round_trip_conserves", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)
		ids := seed(t, svc, "100.25", "0.75")

		require.NoError(t, svc.Transfer(t.Context(), ledger.TransferRequest{FromID: ids[1], ToID: ids[0], Amount: dec("0.75")}))
		requireBalance(t, svc, ids[0], "101")
		requireBalance(t, svc, ids[1], "0")

		require.NoError(t, svc.Transfer(t.Context(), ledger.TransferRequest{FromID: ids[0], ToID: ids[1], Amount: dec("0.75")}))
		requireBalance(t, svc, ids[0], "100.25")
		requireBalance(t, svc, ids[1], "0.75")
	})

	t.Run("concurrent_transfers_scenario", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)
		ids := seed(t, svc, "10", "20", "30")

		ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
		defer cancel()

		transfers := []ledger.TransferRequest{
			{FromID: ids[0], ToID: ids[1], Amount: dec("3")},
			{FromID: ids[1], ToID: ids[0], Amount: dec("4")},
			{FromID: ids[0], ToID: ids[2], Amount: dec("2")},
			{FromID: ids[1], ToID: ids[2], Amount: dec("4")},
		}

		var g errgroup.Group
		for _, req := range transfers {
			g.Go(func() error { return svc.Transfer(ctx, req) })
		}

		require.NoError(t, g.Wait())

		requireBalance(t, svc, ids[0], "9")
		requireBalance(t, svc, ids[1], "15")
		requireBalance(t, svc, ids[2], "36")
	})

	t.Run("opposite_transfers_do_not_deadlock", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)
		ids := seed(t, svc, "1000", "1000")

		ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
		defer cancel()

		const rounds = 20

		var g errgroup.Group
		for i := range rounds {
			g.Go(func() error {
				return svc.Transfer(ctx, ledger.TransferRequest{FromID: ids[0], ToID: ids[1], Amount: decimal.NewFromInt(int64(i + 1))})
			})
			g.Go(func() error {
				return svc.Transfer(ctx, ledger.TransferRequest{FromID: ids[1], ToID: ids[0], Amount: decimal.NewFromInt(int64(rounds - i))})
			})
		}

		require.NoError(t, g.Wait())

		// Both directions moved 1+2+...+20 in total.
		requireBalance(t, svc, ids[0], "1000")
		requireBalance(t, svc, ids[1], "1000")
	})

	t.Run("concurrent_withdrawals_never_overdraw", func(t *testing.T) {
		t.Parallel()

		svc := newService(t)
		ids := seed(t, svc, "100")

		ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
		defer cancel()

		var ok, rejected atomic.Int32

		var g errgroup.Group
		for range 15 {
			g.Go(func() error {
				_, err := svc.Withdraw(ctx, ids[0], dec("-10"))
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, ledger.ErrInsufficientFunds):
					rejected.Add(1)
				default:
					return fmt.Errorf("unexpected error: %w", err)
				}

				return nil
			})
		}

		require.NoError(t, g.Wait())
		assert.Equal(t, int32(10), ok.Load())
		assert.Equal(t, int32(5), rejected.Load())

		requireBalance(t, svc, ids[0], "0")
	})
}
