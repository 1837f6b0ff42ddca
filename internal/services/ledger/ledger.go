package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fastprodman/ledger/internal/repos/accounts"
	"github.com/shopspring/decimal"
)

// Service applies balance mutations on top of an accounts.Store.
// It keeps no balances of its own; every call reads through the store.
type Service struct {
	store accounts.Store
	log   *slog.Logger
}

func New(store accounts.Store) *Service {
	return &Service{
		store: store,
		log:   slog.Default().With("component", "ledger"),
	}
}

// CreateAccount opens an account with a non-negative initial balance.
func (s *Service) CreateAccount(ctx context.Context, initialBalance decimal.Decimal) (accounts.Account, error) {
	err := CheckInitialBalance(initialBalance)
	if err != nil {
		return accounts.Account{}, err
	}

	acc, err := s.store.Create(ctx, initialBalance)
	if err != nil {
		return accounts.Account{}, fromStore("create account", err)
	}

	s.log.InfoContext(ctx, "account created", "account_id", acc.ID, "balance", acc.Balance.String())

	return acc, nil
}

// GetAccount reads an account without locking it.
func (s *Service) GetAccount(ctx context.Context, accountID int64) (accounts.Account, error) {
	err := CheckAccountID(accountID)
	if err != nil {
		return accounts.Account{}, err
	}

	acc, err := s.store.Get(ctx, accountID)
	if err != nil {
		return accounts.Account{}, fromStore("get account", err)
	}

	return acc, nil
}

// fromStore maps store sentinels onto ledger error kinds and wraps the rest.
func fromStore(op string, err error) error {
	var lerr *Error

	switch {
	case errors.As(err, &lerr):
		return lerr
	case errors.Is(err, accounts.ErrAccountNotFound):
		return notFound(ReasonAccountNotFound)
	case errors.Is(err, accounts.ErrNegativeBalance):
		return insufficientFunds(ReasonInsufficientFunds)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// logOutcome records how a mutation ended. Business rejections are expected
// and logged at info; anything else is an infrastructure fault.
func (s *Service) logOutcome(ctx context.Context, msg string, err error, attrs ...any) {
	if err == nil {
		s.log.InfoContext(ctx, msg+" committed", attrs...)
		return
	}

	reason, ok := Reason(err)
	if ok {
		s.log.InfoContext(ctx, msg+" rejected", append(attrs, "reason", reason)...)
		return
	}

	s.log.ErrorContext(ctx, msg+" failed", append(attrs, "error", err)...)
}
