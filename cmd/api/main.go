package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/ledger/internal/api"
	"github.com/fastprodman/ledger/internal/infra/logging"
	"github.com/fastprodman/ledger/internal/infra/pgutils"
	"github.com/fastprodman/ledger/internal/repos/accounts"
	"github.com/fastprodman/ledger/internal/repos/accounts/memory"
	pgaccounts "github.com/fastprodman/ledger/internal/repos/accounts/postgres"
	"github.com/fastprodman/ledger/internal/services/ledger"
	"github.com/fastprodman/ledger/pkg/envconf"
	"github.com/fastprodman/ledger/pkg/shutdownqueue"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	// A missing .env is fine; the real environment still applies.
	_ = godotenv.Load()

	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel, "app", "ledger-api")

	sq := shutdownqueue.New()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := sq.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	store, err := openStore(ctx, cfg, sq)
	if err != nil {
		return err
	}

	ledgerSrv := ledger.New(store)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, ledgerSrv)

	sq.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	})

	slog.Info("API started", "port", cfg.Port, "store", cfg.Store)

	// Returning lets the deferred shutdown queue stop the server, which in
	// turn ends the ListenAndServe goroutine.
	<-gctx.Done()

	if ctx.Err() != nil {
		return nil
	}

	return g.Wait()
}

func openStore(ctx context.Context, cfg *apiConfig, sq *shutdownqueue.Queue) (accounts.Store, error) {
	switch cfg.Store {
	case storeMemory:
		slog.Warn("using in-memory account store; balances are lost on exit")

		return memory.New(memory.WithLockTimeout(cfg.Postgres.LockTimeout)), nil
	case storePostgres:
		if cfg.Postgres.DSN == "" {
			return nil, errors.New("PG_DSN is required for the postgres store")
		}

		db, err := pgutils.OpenDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}

		sq.Add(func(context.Context) error {
			return closeDB(db)
		})

		return pgaccounts.New(db, pgaccounts.WithLockTimeout(cfg.Postgres.LockTimeout)), nil
	default:
		return nil, fmt.Errorf("unknown LEDGER_STORE %q", cfg.Store)
	}
}

func closeDB(db *sql.DB) error {
	slog.Info("Close database pool")

	err := db.Close()
	if err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
