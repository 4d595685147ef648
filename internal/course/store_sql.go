package course

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
)

// SQLStore persists categories, courses, modules, contents and enrollments.
// Inside InTx the store is rebound to the transaction; it must not reach for
// the pool while a transaction is open.
type SQLStore struct {
	sqldb *sql.DB
	q     db.Querier
}

func NewSQLStore(d *sql.DB) *SQLStore { return &SQLStore{sqldb: d, q: d} }

// InTx runs fn with a store bound to one transaction. Nested calls reuse it.
func (s *SQLStore) InTx(ctx context.Context, fn func(*SQLStore) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	return db.WithTx(ctx, s.sqldb, nil, func(tx *sql.Tx) error {
		return fn(&SQLStore{sqldb: s.sqldb, q: tx})
	})
}

type scanner interface{ Scan(...any) error }

func notFound(err error, noun string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("%s not found", noun)
	}
	return err
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
