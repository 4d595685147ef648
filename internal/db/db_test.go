package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *sql.DB {
	t.Helper()
	d, err := Open(context.Background(), DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenCreatesSchema(t *testing.T) {
	d := openMem(t)
	for _, table := range []string{
		"users", "refresh_tokens", "categories", "courses", "course_categories",
		"modules", "contents", "quizzes", "questions", "quiz_attempts", "answers",
		"enrollments", "assignments", "submissions",
	} {
		var name string
		err := d.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&name)
		assert.NoError(t, err, table)
	}
	// idempotent
	require.NoError(t, EnsureSchema(context.Background(), d, DriverSQLite))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	d := openMem(t)
	ctx := context.Background()
	now := Unix(time.Now())

	boom := errors.New("boom")
	err := WithTx(ctx, d, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
			"c1", "Go", "go", now); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestWithTxCommits(t *testing.T) {
	d := openMem(t)
	ctx := context.Background()
	err := WithTx(ctx, d, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
			"c1", "Go", "go", Unix(time.Now()))
		return err
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestForeignKeysEnforced(t *testing.T) {
	d := openMem(t)
	_, err := d.Exec(`INSERT INTO modules (id, course_id, title, sort_order, created_at, updated_at)
		VALUES ('m1', 'missing', 't', 1, 0, 0)`)
	assert.Error(t, err)
}

func TestParseDriver(t *testing.T) {
	for in, want := range map[string]Driver{"": DriverSQLite, "sqlite3": DriverSQLite, "PG": DriverPostgres, "pgx": DriverPostgres} {
		got, err := ParseDriver(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseDriver("mysql")
	assert.Error(t, err)
}

func TestNullTimeRoundTrip(t *testing.T) {
	assert.Nil(t, NullTime(NullUnix(nil)))
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got := NullTime(NullUnix(&ts))
	require.NotNil(t, got)
	assert.True(t, ts.Equal(*got))
}

func TestSplitSQL(t *testing.T) {
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, splitSQL(" SELECT 1;\n\nSELECT 2; ;"))
}

func TestPage(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: 10}, NewPage(0, 0))
	assert.Equal(t, Page{Page: 3, Limit: 100}, NewPage(3, 500))
	assert.Equal(t, 20, NewPage(3, 10).Offset())

	p := NewPaged[string](nil, NewPage(2, 10), 21)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 2, p.CurrentPage)
	assert.NotNil(t, p.Items)
	assert.Equal(t, 0, NewPaged([]int{}, NewPage(1, 10), 0).TotalPages)
}
