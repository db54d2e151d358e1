// Package sqlite implements store.Store on an SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/bxservice/hibiscus-recon/internal/model"
	"github.com/bxservice/hibiscus-recon/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeFormat stores every timestamp as sortable text.
const timeFormat = time.RFC3339Nano

// Store is an SQLite backed store.Store.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies
// pending migrations.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// one writer at a time avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database %s: %w", path, err)
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	// m.Close would close s.db as well
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		s.log.Debug().Msg("no new database migrations to apply")
	case err != nil:
		return fmt.Errorf("applying migrations: %w", err)
	default:
		s.log.Info().Msg("database migrations applied")
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func mustAffect(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, store.ErrNotFound)
	}
	return nil
}

// FindBankAccounts implements store.BankAccounts.
func (s *Store) FindBankAccounts(ctx context.Context, accountNo, routingNo string) ([]model.BankAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, account_no, routing_no FROM bank_accounts
		 WHERE account_no = ? AND routing_no = ? ORDER BY id`, accountNo, routingNo)
	if err != nil {
		return nil, fmt.Errorf("querying bank accounts: %w", err)
	}
	defer rows.Close()

	var out []model.BankAccount
	for rows.Next() {
		var ba model.BankAccount
		if err := rows.Scan(&ba.ID, &ba.Name, &ba.AccountNo, &ba.RoutingNo); err != nil {
			return nil, fmt.Errorf("scanning bank account: %w", err)
		}
		out = append(out, ba)
	}
	return out, rows.Err()
}

// CreateBankAccount implements store.BankAccounts.
func (s *Store) CreateBankAccount(ctx context.Context, ba *model.BankAccount) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bank_accounts (name, account_no, routing_no) VALUES (?, ?, ?)`,
		ba.Name, ba.AccountNo, ba.RoutingNo)
	if err != nil {
		return fmt.Errorf("inserting bank account: %w", err)
	}
	ba.ID, err = res.LastInsertId()
	return err
}
