package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/fastprodman/ledger/internal/repos/accounts"
	"github.com/fastprodman/ledger/internal/services/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Ledger is the set of operations the HTTP layer exposes.
type Ledger interface {
	CreateAccount(ctx context.Context, initialBalance decimal.Decimal) (accounts.Account, error)
	GetAccount(ctx context.Context, accountID int64) (accounts.Account, error)
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (accounts.Account, error)
	Withdraw(ctx context.Context, accountID int64, delta decimal.Decimal) (accounts.Account, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) error
}

// HandlerProvider wraps a Ledger and exposes HTTP handlers.
type HandlerProvider struct {
	svc Ledger
}

// NewHandler returns a new Handler provider.
func NewHandler(svc Ledger) *HandlerProvider {
	return &HandlerProvider{svc: svc}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		// Headers are already sent; all that is left is to log it.
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLedgerError maps ledger error kinds onto HTTP statuses. The reason of a
// business rejection goes back to the caller verbatim; other errors do not.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	reason, _ := ledger.Reason(err)

	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, reason)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, reason)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, reason)
	case errors.Is(err, accounts.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "account is busy, retry later")
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type accountResponse struct {
	ID      int64  `json:"id"`
	Balance string `json:"balance"`
}

func toAccountResponse(acc accounts.Account) accountResponse {
	return accountResponse{ID: acc.ID, Balance: acc.Balance.String()}
}

// parseAccountIDFromPath reads `{accountId}` from chi routes like:
//
//	GET /accounts/{accountId}
//	PUT /accounts/{accountId}/deposits
func parseAccountIDFromPath(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "accountId")
	if idStr == "" {
		return 0, errors.New("missing accountId")
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid accountId: %w", err)
	}

	return id, nil
}

var errAmountMissing = errors.New("amount is not present in request")

// parseAmountQuery reads the decimal `amount` query parameter.
func parseAmountQuery(r *http.Request) (decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("amount"))
	if raw == "" {
		return decimal.Zero, errAmountMissing
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New("invalid amount")
	}

	return amount, nil
}

type transferRequest struct {
	FromID *int64           `json:"fromId"`
	ToID   *int64           `json:"toId"`
	Amount *decimal.Decimal `json:"amount"`
}

func (req transferRequest) validate() error {
	if req.FromID == nil || req.ToID == nil {
		return errors.New("account id is not present")
	}

	if req.Amount == nil {
		return errAmountMissing
	}

	return nil
}

// --- Handlers ---

// CreateAccountHandler handles POST /accounts?amount=
func (h *HandlerProvider) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmountQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := h.svc.CreateAccount(r.Context(), amount)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// GetAccountHandler handles GET /accounts/{accountId}
func (h *HandlerProvider) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountId in path")
		return
	}

	acc, err := h.svc.GetAccount(r.Context(), accountID)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// DepositHandler handles PUT /accounts/{accountId}/deposits?amount=
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.svc.Deposit)
}

// WithdrawHandler handles PUT /accounts/{accountId}/withdrawals?amount=
// The amount is a negative delta, e.g. amount=-20.
func (h *HandlerProvider) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.svc.Withdraw)
}

type mutation func(ctx context.Context, accountID int64, amount decimal.Decimal) (accounts.Account, error)

func (h *HandlerProvider) mutate(w http.ResponseWriter, r *http.Request, apply mutation) {
	accountID, err := parseAccountIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountId in path")
		return
	}

	amount, err := parseAmountQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := apply(r.Context(), accountID, amount)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// TransferHandler handles POST /accounts/transactions
func (h *HandlerProvider) TransferHandler(w http.ResponseWriter, r *http.Request) {
	// Limit body size; disallow unknown fields
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	var req transferRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(&req)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty body")
			return
		}

		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err = req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.svc.Transfer(r.Context(), ledger.TransferRequest{
		FromID: *req.FromID,
		ToID:   *req.ToID,
		Amount: *req.Amount,
	})
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fromId": *req.FromID,
		"toId":   *req.ToID,
		"amount": req.Amount.String(),
	})
}
