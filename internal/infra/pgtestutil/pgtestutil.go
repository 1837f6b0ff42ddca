// Package pgtestutil hands each test its own freshly migrated PostgreSQL
// database.
//
// The server is taken from PG_TEST_DSN. When that is unset a disposable
// postgres container is started once per test binary. Tests are skipped when
// neither is available or when running with -short.
package pgtestutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/ledger/internal/infra/pgutils"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DSNEnv        = "PG_TEST_DSN"
	image         = "postgres:16-alpine"
	migrationsDir = "cmd/migrator/migrations"
)

var (
	serverOnce sync.Once
	serverDSN  string
	serverErr  error
)

// NewTestDB creates a uniquely named database, applies the schema migrations
// and returns a handle plus a cleanup that drops the database again.
func NewTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres tests skipped in -short mode")
	}

	baseDSN := resolveServer(t)

	adminDSN, err := ReplaceDBInDSN(baseDSN, "postgres")
	if err != nil {
		t.Fatalf("admin dsn: %v", err)
	}

	admin, err := sql.Open("pgx", adminDSN)
	if err != nil {
		t.Fatalf("open admin: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	err = admin.PingContext(ctx)
	if err != nil {
		_ = admin.Close()
		t.Skipf("postgres not reachable: %v", err)
	}

	dbName := sanitizeForPgIdent(uniqueDBName("testdb", t.Name()))

	const maxAttempts = 5
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, err = admin.ExecContext(ctx,
			fmt.Sprintf(`CREATE DATABASE "%s" WITH TEMPLATE template0 ENCODING 'UTF8'`, dbName))
		if err == nil {
			break
		}
		if !pgutils.HasCode(err, pgutils.CodeDuplicateDatabase, pgutils.CodeUniqueViolation) || attempt == maxAttempts {
			_ = admin.Close()
			t.Fatalf("create database: %v", err)
		}
		dbName = sanitizeForPgIdent(uniqueDBName("testdb", t.Name()))
	}

	testDSN, err := ReplaceDBInDSN(baseDSN, dbName)
	if err != nil {
		_ = admin.Close()
		t.Fatalf("test dsn: %v", err)
	}

	db, err := sql.Open("pgx", testDSN)
	if err != nil {
		_ = admin.Close()
		t.Fatalf("open test db: %v", err)
	}

	db.SetConnMaxIdleTime(100 * time.Millisecond)
	db.SetConnMaxLifetime(30 * time.Second)

	err = migrateUp(db)
	if err != nil {
		_ = db.Close()
		_ = admin.Close()
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		_ = db.Close()

		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()

		_, derr := admin.ExecContext(dctx,
			fmt.Sprintf(`DROP DATABASE IF EXISTS "%s" WITH (FORCE)`, dbName))
		if derr != nil {
			t.Logf("drop database %s: %v", dbName, derr)
		}

		_ = admin.Close()
	}

	return db, cleanup
}

// ReplaceDBInDSN swaps the database name in a URL-form Postgres DSN.
func ReplaceDBInDSN(dsn, newDB string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("dsn %q is not in URL form", dsn)
	}

	u.Path = "/" + newDB

	return u.String(), nil
}

func resolveServer(t *testing.T) string {
	t.Helper()

	dsn := os.Getenv(DSNEnv)
	if dsn != "" {
		return dsn
	}

	serverOnce.Do(func() {
		serverDSN, serverErr = startContainer()
	})

	if serverErr != nil {
		t.Skipf("no postgres available (%s unset, container: %v)", DSNEnv, serverErr)
	}

	return serverDSN
}

// startContainer runs a postgres container. It is left to the testcontainers
// reaper to remove once the test binary exits.
func startContainer() (dsn string, err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, image,
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", fmt.Errorf("run container: %w", err)
	}

	dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", fmt.Errorf("connection string: %w", err)
	}

	return dsn, nil
}

func migrateUp(db *sql.DB) error {
	absPath, err := migrationsAbsPath()
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	src, err := (&file.File{}).Open(absPath)
	if err != nil {
		return fmt.Errorf("open migrations dir: %w", err)
	}

	m, err := migrate.NewWithInstance("file", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	return nil
}

func migrationsAbsPath() (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("runtime.Caller failed")
	}
	// internal/infra/pgtestutil -> internal/infra -> internal -> repo root
	repoRoot := filepath.Join(filepath.Dir(thisFile), "..", "..", "..")

	abs, err := filepath.Abs(filepath.Join(repoRoot, migrationsDir))
	if err != nil {
		return "", fmt.Errorf("abs migrations path: %w", err)
	}

	return abs, nil
}

func uniqueDBName(prefix, testName string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(testName))

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	return fmt.Sprintf("%s_%08x_%s", prefix, h.Sum32(), suffix)
}

func sanitizeForPgIdent(s string) string {
	s = strings.ToLower(s)
	repl := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_", "-", "_")
	s = repl.Replace(s)
	if len(s) <= 63 {
		return s
	}
	return s[:31] + "_" + s[len(s)-31:]
}
