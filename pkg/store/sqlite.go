// Package store is the external persistence boundary: user identities
// with their password hashes, plus the opening stock balances a user's
// wallets are seeded from on first login.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/moss-street/tradeserver/pkg/apperr"
)

// schema holds three tables: users, stock, wallets. stock/wallets exist
// so the store can seed a user's opening balances; the live,
// mutated-every-fill balances are the in-memory Wallet cells a Market's
// Ledger owns — this table is the durable source of truth only, never
// touched by the matching engine.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT UNIQUE,
	password TEXT,
	first_name TEXT,
	last_name TEXT
);
CREATE TABLE IF NOT EXISTS stock (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE,
	symbol TEXT,
	exchange_name TEXT
);
CREATE TABLE IF NOT EXISTS wallets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	stock_id INTEGER,
	user_id INTEGER,
	balance DOUBLE
);
`

// UserRow is the persisted shape of a user identity; pkg/core.User is
// built from one plus an in-memory ledger.
type UserRow struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

// WalletRow is one opening balance for a user in a given symbol, as
// recorded in the wallets table at account-opening time.
type WalletRow struct {
	Symbol  string
	Balance string
}

// Store wraps a SQLite-backed users table. Thread-safe: database/sql
// pools its own connections.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at uri and
// ensures its schema exists.
func Open(uri string) (*Store, error) {
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", uri, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user row, returning it with its assigned id.
// A duplicate email yields AlreadyExists.
func (s *Store) CreateUser(email, passwordHash, firstName, lastName string) (UserRow, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (email, password, first_name, last_name) VALUES (?, ?, ?, ?)`,
		email, passwordHash, firstName, lastName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return UserRow{}, apperr.New(apperr.KindAlreadyExists, "email already registered: "+email)
		}
		return UserRow{}, apperr.Wrap(apperr.KindStoreError, err, "create user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return UserRow{}, apperr.Wrap(apperr.KindStoreError, err, "read inserted user id")
	}
	return UserRow{ID: id, Email: email, PasswordHash: passwordHash, FirstName: firstName, LastName: lastName}, nil
}

// FindUserByEmail looks up a user by email, or NotFound if none exists.
func (s *Store) FindUserByEmail(email string) (UserRow, error) {
	row := s.db.QueryRow(
		`SELECT id, email, password, first_name, last_name FROM users WHERE email = ?`,
		email,
	)
	var u UserRow
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName); err != nil {
		if err == sql.ErrNoRows {
			return UserRow{}, apperr.New(apperr.KindNotFound, "no user with email: "+email)
		}
		return UserRow{}, apperr.Wrap(apperr.KindStoreError, err, "find user by email")
	}
	return u, nil
}

// FindUserByID looks up a user by id, or NotFound if none exists.
func (s *Store) FindUserByID(id int64) (UserRow, error) {
	row := s.db.QueryRow(
		`SELECT id, email, password, first_name, last_name FROM users WHERE id = ?`,
		id,
	)
	var u UserRow
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName); err != nil {
		if err == sql.ErrNoRows {
			return UserRow{}, apperr.New(apperr.KindNotFound, fmt.Sprintf("no user with id: %d", id))
		}
		return UserRow{}, apperr.Wrap(apperr.KindStoreError, err, "find user by id")
	}
	return u, nil
}

// ensureStock returns the stock row id for symbol, inserting a minimal
// row (name == symbol, no exchange) on first use.
func (s *Store) ensureStock(symbol string) (int64, error) {
	row := s.db.QueryRow(`SELECT id FROM stock WHERE symbol = ?`, symbol)
	var id int64
	err := row.Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, apperr.Wrap(apperr.KindStoreError, err, "look up stock")
	}
	res, err := s.db.Exec(`INSERT INTO stock (name, symbol, exchange_name) VALUES (?, ?, ?)`, symbol, symbol, "")
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStoreError, err, "insert stock")
	}
	return res.LastInsertId()
}

// SeedWallet records an opening balance for userID in symbol, inserting
// a wallets row. Called once per (user, symbol) at account setup; the
// matching engine never calls back into the store to mutate balances.
func (s *Store) SeedWallet(userID int64, symbol string, balance string) error {
	stockID, err := s.ensureStock(symbol)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(
		`INSERT INTO wallets (stock_id, user_id, balance) VALUES (?, ?, ?)`,
		stockID, userID, balance,
	); err != nil {
		return apperr.Wrap(apperr.KindStoreError, err, "seed wallet")
	}
	return nil
}

// LoadWallets returns every opening balance recorded for userID, joined
// back to its symbol.
func (s *Store) LoadWallets(userID int64) ([]WalletRow, error) {
	rows, err := s.db.Query(
		`SELECT stock.symbol, wallets.balance FROM wallets
		 JOIN stock ON stock.id = wallets.stock_id
		 WHERE wallets.user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreError, err, "load wallets")
	}
	defer rows.Close()

	var out []WalletRow
	for rows.Next() {
		var w WalletRow
		if err := rows.Scan(&w.Symbol, &w.Balance); err != nil {
			return nil, apperr.Wrap(apperr.KindStoreError, err, "scan wallet row")
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. go-sqlite3 surfaces this as a sqlite3.Error with an
// ErrConstraintUnique extended code, but matching on the message avoids
// pulling in the driver's internal error type across this boundary.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
