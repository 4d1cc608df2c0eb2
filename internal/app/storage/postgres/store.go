package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/canteen_pos/internal/app/storage"
	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.StudentStore = (*Store)(nil)
var _ storage.AdminStore = (*Store)(nil)
var _ storage.ShopStore = (*Store)(nil)
var _ storage.MenuStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.ReportStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// withTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error and committed otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.StorageUnavailable(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return mapError(err, "", nil)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.StorageUnavailable(err)
	}
	return nil
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// mapError turns driver errors into service errors. Errors that already carry
// a service code pass through untouched.
func mapError(err error, resource string, key interface{}) error {
	if err == nil {
		return nil
	}
	if apperrors.GetServiceError(err) != nil {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, key)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return apperrors.DuplicateName(resource, fmt.Sprint(key))
		case pqForeignKeyViolation:
			return apperrors.NotFound(resource, key)
		}
	}
	return apperrors.StorageUnavailable(err)
}

func expectRow(res sql.Result, resource string, key interface{}) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return apperrors.StorageUnavailable(err)
	}
	if rows == 0 {
		return apperrors.NotFound(resource, key)
	}
	return nil
}
