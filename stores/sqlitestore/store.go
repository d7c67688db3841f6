// Package sqlitestore persists linked accounts in a SQLite table keyed by
// external account id.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	goLink "github.com/MrEthical07/goLink"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// ErrConflict is returned by Save when another writer already linked one of
// the buffered external account ids.
var ErrConflict = errors.New("sqlitestore: external account already linked")

// Store buffers Set calls and inserts them in one transaction on Save.
// Exists and Get read the table only.
type Store struct {
	sqlDB *sql.DB

	mu       sync.Mutex
	buffered map[string]goLink.LinkedAccount
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{
		sqlDB:    sqlDB,
		buffered: map[string]goLink.LinkedAccount{},
	}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Exists(ctx context.Context, externalAccountID string) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM linked_accounts WHERE external_account_id = ?`,
		externalAccountID,
	).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query linked account: %w", err)
	}
	return true, nil
}

// Get returns one saved record.
func (s *Store) Get(ctx context.Context, externalAccountID string) (goLink.LinkedAccount, bool, error) {
	var (
		record   goLink.LinkedAccount
		linkedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT external_account_id, local_account, linked_at FROM linked_accounts WHERE external_account_id = ?`,
		externalAccountID,
	).Scan(&record.ExternalAccountID, &record.LocalAccount, &linkedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return goLink.LinkedAccount{}, false, nil
	case err != nil:
		return goLink.LinkedAccount{}, false, fmt.Errorf("get linked account: %w", err)
	}
	record.LinkedAt = fromMillis(linkedAt)
	return record, true, nil
}

// ListByAccount returns every saved record of a local account ordered by
// link time.
func (s *Store) ListByAccount(ctx context.Context, localAccount string) ([]goLink.LinkedAccount, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT external_account_id, local_account, linked_at
		 FROM linked_accounts
		 WHERE local_account = ?
		 ORDER BY linked_at, external_account_id`,
		localAccount,
	)
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	defer rows.Close()

	var out []goLink.LinkedAccount
	for rows.Next() {
		var (
			record   goLink.LinkedAccount
			linkedAt int64
		)
		if err := rows.Scan(&record.ExternalAccountID, &record.LocalAccount, &linkedAt); err != nil {
			return nil, fmt.Errorf("scan linked account: %w", err)
		}
		record.LinkedAt = fromMillis(linkedAt)
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate linked accounts: %w", err)
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, externalAccountID string, record goLink.LinkedAccount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if externalAccountID == "" {
		return fmt.Errorf("external account id is required")
	}
	if strings.TrimSpace(record.LocalAccount) == "" {
		return fmt.Errorf("local account is required")
	}
	record.ExternalAccountID = externalAccountID
	if record.LinkedAt.IsZero() {
		record.LinkedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.buffered[externalAccountID] = record
	s.mu.Unlock()
	return nil
}

// Save inserts every buffered record in one transaction. Nothing is written
// when any insert fails. The buffer is cleared either way.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer clear(s.buffered)

	if len(s.buffered) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for id, record := range s.buffered {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO linked_accounts (external_account_id, local_account, linked_at) VALUES (?, ?, ?)`,
			id,
			record.LocalAccount,
			toMillis(record.LinkedAt),
		)
		if isPrimaryKeyConflict(err) {
			return fmt.Errorf("%w: %s", ErrConflict, id)
		}
		if err != nil {
			return fmt.Errorf("insert linked account: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func isPrimaryKeyConflict(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "linked_accounts.external_account_id")
}
