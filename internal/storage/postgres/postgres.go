package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PREETHAM1590/waste-wise/internal/storage"
	_ "github.com/lib/pq"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Storage struct {
	*repos
	db *sql.DB
}

var _ storage.Store = (*Storage)(nil)

func New(dbUrl string) (*Storage, error) {
	db, err := sql.Open("postgres", dbUrl)
	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already opened database handle.
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{repos: &repos{db: db}, db: db}
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// WithTx begins a transaction, runs fn against repositories bound to it and
// commits on success. On error or panic the transaction is rolled back; a
// failed rollback or commit is joined as storage.ErrOutcomeUnknown.
func (s *Storage) WithTx(ctx context.Context, fn func(ctx context.Context, repos storage.Repositories) error) (err error) {
	const op = "storage.postgres.WithTx"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("%s: rollback: %w: %w", op, storage.ErrOutcomeUnknown, rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("%s: commit: %w: %w", op, storage.ErrOutcomeUnknown, cErr)
		}
	}()

	err = fn(ctx, &repos{db: tx})
	return err
}

type repos struct {
	db DBTX
}

func (r *repos) Users() storage.Users                       { return &Users{db: r.db} }
func (r *repos) WasteItems() storage.WasteItems             { return &WasteItems{db: r.db} }
func (r *repos) Transactions() storage.Transactions         { return &Transactions{db: r.db} }
func (r *repos) Challenges() storage.Challenges             { return &Challenges{db: r.db} }
func (r *repos) MarketplaceItems() storage.MarketplaceItems { return &MarketplaceItems{db: r.db} }

func exists(ctx context.Context, db DBTX, query string, id string) (bool, error) {
	var ok bool
	if err := db.QueryRowContext(ctx, query, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func closeRows(rows *sql.Rows, err *error) {
	if cErr := rows.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
