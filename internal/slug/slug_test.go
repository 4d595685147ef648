package slug

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Web Development":        "web-development",
		"  Go & Rust -- 2024!  ": "go-rust-2024",
		"Café Résumé":            "cafe-resume",
		"***":                    "item",
		"":                       "item",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), in)
	}
}

func TestMakeTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "abcd "
	}
	got := Make(long)
	assert.LessOrEqual(t, len(got), maxLen)
	assert.NotEqual(t, '-', rune(got[len(got)-1]))
}

func TestUnique(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	now := time.UnixMilli(1700000000123)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM courses WHERE slug=\$1 AND id<>\$2`).
		WithArgs("go-basics", "").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	got, err := Unique(context.Background(), mockDB, "courses", "go-basics", "", now)
	require.NoError(t, err)
	assert.Equal(t, "go-basics", got)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM courses`).
		WithArgs("go-basics", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	got, err = Unique(context.Background(), mockDB, "courses", "go-basics", "c1", now)
	require.NoError(t, err)
	assert.Equal(t, "go-basics-1700000000123", got)

	assert.NoError(t, mock.ExpectationsWereMet())
}
