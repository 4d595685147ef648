package ordering

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
)

var items = Collection{Table: "items", Parent: "parent_id", Noun: "item"}

func openItems(t *testing.T) *sql.DB {
	t.Helper()
	d, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	d.SetMaxOpenConns(1)
	t.Cleanup(func() { d.Close() })
	_, err = d.Exec(`CREATE TABLE items (id TEXT PRIMARY KEY, parent_id TEXT NOT NULL, sort_order INTEGER NOT NULL)`)
	require.NoError(t, err)
	return d
}

func insert(t *testing.T, d *sql.DB, parent string, n int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%d", parent, i+1)
		next, err := items.Next(ctx, d, parent)
		require.NoError(t, err)
		_, err = d.Exec(`INSERT INTO items (id, parent_id, sort_order) VALUES ($1, $2, $3)`, id, parent, next)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

// orders returns item ids keyed by their order.
func orders(t *testing.T, d *sql.DB, parent string) map[int]string {
	t.Helper()
	rows, err := d.Query(`SELECT id, sort_order FROM items WHERE parent_id=$1`, parent)
	require.NoError(t, err)
	defer rows.Close()
	out := map[int]string{}
	for rows.Next() {
		var id string
		var o int
		require.NoError(t, rows.Scan(&id, &o))
		_, dup := out[o]
		require.False(t, dup, "duplicate order %d", o)
		out[o] = id
	}
	require.NoError(t, rows.Err())
	return out
}

func assertContiguous(t *testing.T, got map[int]string, n int) {
	t.Helper()
	require.Len(t, got, n)
	for i := 1; i <= n; i++ {
		_, ok := got[i]
		assert.True(t, ok, "missing order %d", i)
	}
}

func move(t *testing.T, d *sql.DB, parent, id string, to int) error {
	t.Helper()
	return db.WithTx(context.Background(), d, nil, func(tx *sql.Tx) error {
		return items.Move(context.Background(), tx, parent, id, to)
	})
}

func TestInsertAssignsCountPlusOne(t *testing.T) {
	d := openItems(t)
	ids := insert(t, d, "p", 4)
	insert(t, d, "other", 2)

	got := orders(t, d, "p")
	assertContiguous(t, got, 4)
	for i, id := range ids {
		assert.Equal(t, id, got[i+1])
	}
}

func TestMoveDownAndUp(t *testing.T) {
	d := openItems(t)
	ids := insert(t, d, "p", 5) // A B C D E

	require.NoError(t, move(t, d, "p", ids[1], 4)) // B to 4: A C D B E
	got := orders(t, d, "p")
	assertContiguous(t, got, 5)
	assert.Equal(t, []string{ids[0], ids[2], ids[3], ids[1], ids[4]},
		[]string{got[1], got[2], got[3], got[4], got[5]})

	require.NoError(t, move(t, d, "p", ids[4], 1)) // E to 1: E A C D B
	got = orders(t, d, "p")
	assertContiguous(t, got, 5)
	assert.Equal(t, []string{ids[4], ids[0], ids[2], ids[3], ids[1]},
		[]string{got[1], got[2], got[3], got[4], got[5]})
}

func TestMoveRoundTripRestoresOrder(t *testing.T) {
	d := openItems(t)
	ids := insert(t, d, "p", 6)
	before := orders(t, d, "p")

	require.NoError(t, move(t, d, "p", ids[1], 5))
	require.NoError(t, move(t, d, "p", ids[1], 2))
	assert.Equal(t, before, orders(t, d, "p"))
}

func TestMoveLeavesOtherParentsAlone(t *testing.T) {
	d := openItems(t)
	ids := insert(t, d, "p", 3)
	insert(t, d, "q", 3)
	before := orders(t, d, "q")

	require.NoError(t, move(t, d, "p", ids[0], 3))
	assert.Equal(t, before, orders(t, d, "q"))
}

func TestMoveOutOfRange(t *testing.T) {
	d := openItems(t)
	ids := insert(t, d, "p", 3)
	before := orders(t, d, "p")

	for _, to := range []int{0, -1, 4} {
		err := move(t, d, "p", ids[0], to)
		require.Error(t, err)
		assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err), "to=%d", to)
	}
	assert.Equal(t, before, orders(t, d, "p"))
}

func TestMoveUnknownItem(t *testing.T) {
	d := openItems(t)
	insert(t, d, "p", 2)
	err := move(t, d, "p", "nope", 1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteCompacts(t *testing.T) {
	d := openItems(t)
	ids := insert(t, d, "p", 5)
	ctx := context.Background()

	cur, err := items.Current(ctx, d, "p", ids[1])
	require.NoError(t, err)
	_, err = d.Exec(`DELETE FROM items WHERE id=$1`, ids[1])
	require.NoError(t, err)
	require.NoError(t, items.Compact(ctx, d, "p", cur))

	got := orders(t, d, "p")
	assertContiguous(t, got, 4)
	assert.Equal(t, []string{ids[0], ids[2], ids[3], ids[4]},
		[]string{got[1], got[2], got[3], got[4]})

	next, err := items.Next(ctx, d, "p")
	require.NoError(t, err)
	assert.Equal(t, 5, next)
}

func TestCountPropagatesDriverError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM modules`).
		WithArgs("course-1").
		WillReturnError(boom)

	_, err = Modules.Next(context.Background(), mockDB, "course-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveSameOrderIsNoop(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT sort_order FROM questions`).
		WithArgs("q-2", "quiz-1").
		WillReturnRows(sqlmock.NewRows([]string{"sort_order"}).AddRow(2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM questions`).
		WithArgs("quiz-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	require.NoError(t, Questions.Move(context.Background(), mockDB, "quiz-1", "q-2", 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A seeded mix of inserts, moves and deletes checked against a slice model
// after every step.
func TestRandomSequenceStaysContiguous(t *testing.T) {
	d := openItems(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	var model []string
	seq := 0

	for step := 0; step < 300; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(model) == 0:
			seq++
			id := fmt.Sprintf("p-%d", seq)
			next, err := items.Next(ctx, d, "p")
			require.NoError(t, err)
			_, err = d.Exec(`INSERT INTO items (id, parent_id, sort_order) VALUES ($1, $2, $3)`, id, "p", next)
			require.NoError(t, err)
			model = append(model, id)
		case op == 1:
			from, to := rng.Intn(len(model)), rng.Intn(len(model))
			id := model[from]
			require.NoError(t, move(t, d, "p", id, to+1), "step %d", step)
			model = append(model[:from], model[from+1:]...)
			model = append(model[:to], append([]string{id}, model[to:]...)...)
		default:
			at := rng.Intn(len(model))
			id := model[at]
			cur, err := items.Current(ctx, d, "p", id)
			require.NoError(t, err)
			_, err = d.Exec(`DELETE FROM items WHERE id=$1`, id)
			require.NoError(t, err)
			require.NoError(t, items.Compact(ctx, d, "p", cur))
			model = append(model[:at], model[at+1:]...)
		}

		got := orders(t, d, "p")
		assertContiguous(t, got, len(model))
		for i, id := range model {
			require.Equal(t, id, got[i+1], "step %d order %d", step, i+1)
		}
	}
}
