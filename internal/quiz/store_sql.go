package quiz

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
)

// SQLStore persists quizzes, questions, attempts and answers. Like the course
// store it is rebound to the transaction inside InTx.
type SQLStore struct {
	sqldb *sql.DB
	q     db.Querier
}

func NewSQLStore(d *sql.DB) *SQLStore { return &SQLStore{sqldb: d, q: d} }

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

// Owner identifies the course a quiz or content belongs to.
type Owner struct {
	CourseID     string
	InstructorID string
}

// OwnerOfContent resolves the course of a content.
func (s *SQLStore) OwnerOfContent(ctx context.Context, contentID string) (Owner, error) {
	var o Owner
	err := s.q.QueryRowContext(ctx, `SELECT c.id, c.instructor_id
		FROM contents ct
		JOIN modules m ON m.id = ct.module_id
		JOIN courses c ON c.id = m.course_id
		WHERE ct.id=$1`, contentID).Scan(&o.CourseID, &o.InstructorID)
	return o, notFound(err, "content")
}

// ActiveEnrollment reports whether userID is actively enrolled in courseID.
func (s *SQLStore) ActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE user_id=$1 AND course_id=$2 AND status='ACTIVE'`,
		userID, courseID).Scan(&n)
	return n > 0, err
}

func (s *SQLStore) UserExists(ctx context.Context, userID string) error {
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=$1`, userID).Scan(&one)
	return notFound(err, "user")
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

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullBool(p *bool) sql.NullBool {
	if p == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *p, Valid: true}
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}
