package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs a chi router with all API endpoints registered.
func NewRouter(svc Ledger) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.CreateAccountHandler)
		r.Post("/transactions", h.TransferHandler)
		r.Get("/{accountId}", h.GetAccountHandler)
		r.Put("/{accountId}/deposits", h.DepositHandler)
		r.Put("/{accountId}/withdrawals", h.WithdrawHandler)
	})

	return r
}
