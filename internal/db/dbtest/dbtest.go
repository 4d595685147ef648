// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mind-engage/courseware/internal/db"
)

// Open returns a fresh in-memory sqlite database with the full schema.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	d, err := db.Open(context.Background(), db.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// Exec runs a statement and fails the test on error.
func Exec(t testing.TB, d *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := d.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// User inserts a user row with the given id and role.
func User(t testing.TB, d *sql.DB, id, role string) {
	t.Helper()
	Exec(t, d, `INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, 'x', $4, 0, 0)`, id, id, id+"@example.com", role)
}

// Course inserts an approved, published course owned by instructorID.
func Course(t testing.TB, d *sql.DB, id, instructorID string) {
	t.Helper()
	Exec(t, d, `INSERT INTO courses (id, title, slug, description, level, price, duration, instructor_id,
		is_published, is_approved, created_at, updated_at)
		VALUES ($1, $1, $1, 'd', 'BEGINNER', '0', 60, $2, $3, $3, 0, 0)`, id, instructorID, true)
}

// Enroll inserts an enrollment with the given status.
func Enroll(t testing.TB, d *sql.DB, userID, courseID, status string) {
	t.Helper()
	Exec(t, d, `INSERT INTO enrollments (id, user_id, course_id, status, enrolled_at)
		VALUES ($1, $2, $3, $4, 0)`, userID+"-"+courseID, userID, courseID, status)
}

// Module inserts a module at order under courseID.
func Module(t testing.TB, d *sql.DB, id, courseID string, order int) {
	t.Helper()
	Exec(t, d, `INSERT INTO modules (id, course_id, title, sort_order, created_at, updated_at)
		VALUES ($1, $2, $1, $3, 0, 0)`, id, courseID, order)
}

// Content inserts a QUIZ content at order under moduleID.
func Content(t testing.TB, d *sql.DB, id, moduleID, authorID string, order int) {
	t.Helper()
	Exec(t, d, `INSERT INTO contents (id, module_id, author_id, title, type, content_data, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $1, 'QUIZ', 'quiz', $4, 0, 0)`, id, moduleID, authorID, order)
}
