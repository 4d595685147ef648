package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
)

type SQLStore struct {
	sqldb *sql.DB
}

func NewSQLStore(d *sql.DB) *SQLStore { return &SQLStore{sqldb: d} }

const userCols = `id, first_name, last_name, username, gender, email, password_hash, role, bio, phone,
	avatar, avatar_ref, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var created, updated int64
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Gender, &u.Email, &u.PasswordHash,
		&u.Role, &u.Bio, &u.Phone, &u.Avatar, &u.AvatarRef, &created, &updated)
	if err != nil {
		return User{}, err
	}
	u.CreatedAt, u.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return u, nil
}

func (s *SQLStore) getBy(ctx context.Context, col, v string) (User, error) {
	u, err := scanUser(s.sqldb.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE %s=$1`, userCols, col), v))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.NotFound("user not found")
	}
	return u, err
}

func (s *SQLStore) ByID(ctx context.Context, id string) (User, error) { return s.getBy(ctx, "id", id) }

func (s *SQLStore) ByEmail(ctx context.Context, email string) (User, error) {
	return s.getBy(ctx, "email", email)
}

// Taken reports whether another user already uses username or email.
func (s *SQLStore) Taken(ctx context.Context, username, email, excludeID string) (bool, error) {
	var n int
	err := s.sqldb.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE (username=$1 OR email=$2) AND id<>$3`,
		username, email, excludeID).Scan(&n)
	return n > 0, err
}

func (s *SQLStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.sqldb.ExecContext(ctx, `INSERT INTO users (`+userCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		u.ID, u.FirstName, u.LastName, u.Username, u.Gender, u.Email, u.PasswordHash, u.Role,
		u.Bio, u.Phone, u.Avatar, u.AvatarRef, db.Unix(u.CreatedAt), db.Unix(u.UpdatedAt))
	return err
}

func (s *SQLStore) Update(ctx context.Context, u User) error {
	_, err := s.sqldb.ExecContext(ctx, `UPDATE users SET first_name=$1, last_name=$2, username=$3, email=$4,
		bio=$5, phone=$6, avatar=$7, avatar_ref=$8, role=$9, updated_at=$10 WHERE id=$11`,
		u.FirstName, u.LastName, u.Username, u.Email, u.Bio, u.Phone, u.Avatar, u.AvatarRef, u.Role,
		db.Unix(u.UpdatedAt), u.ID)
	return err
}

func (s *SQLStore) SetPassword(ctx context.Context, userID, hash string, now time.Time) error {
	_, err := s.sqldb.ExecContext(ctx, `UPDATE users SET password_hash=$1, updated_at=$2 WHERE id=$3`,
		hash, db.Unix(now), userID)
	return err
}

func (s *SQLStore) CountRole(ctx context.Context, role string) (int, error) {
	var n int
	err := s.sqldb.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role=$1`, role).Scan(&n)
	return n, err
}

// List pages through users ordered by username. Empty role or search match
// everyone; search looks at username and email, case-insensitively.
func (s *SQLStore) List(ctx context.Context, role, search string, p db.Page) ([]User, int, error) {
	where := `WHERE ($1 = '' OR role = $1) AND ($2 = '' OR LOWER(username) LIKE $3 OR LOWER(email) LIKE $3)`
	like := "%" + strings.ToLower(search) + "%"
	var total int
	if err := s.sqldb.QueryRowContext(ctx, `SELECT COUNT(*) FROM users `+where, role, search, like).
		Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.sqldb.QueryContext(ctx, `SELECT `+userCols+` FROM users `+where+
		` ORDER BY username LIMIT $4 OFFSET $5`, role, search, like, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (s *SQLStore) records(ctx context.Context, query, userID string) ([]Record, error) {
	rows, err := s.sqldb.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		var r Record
		var at int64
		if err := rows.Scan(&r.ID, &r.Ref, &r.Status, &at); err != nil {
			return nil, err
		}
		r.At = db.FromUnix(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Activity collects the enrollments, quiz attempts and submissions of a user.
func (s *SQLStore) Activity(ctx context.Context, userID string) (Export, error) {
	var (
		e   Export
		err error
	)
	if e.Enrollments, err = s.records(ctx, `SELECT id, course_id, status, enrolled_at
		FROM enrollments WHERE user_id=$1 ORDER BY enrolled_at, id`, userID); err != nil {
		return Export{}, err
	}
	if e.Attempts, err = s.records(ctx, `SELECT id, quiz_id, status, started_at
		FROM quiz_attempts WHERE user_id=$1 ORDER BY started_at, id`, userID); err != nil {
		return Export{}, err
	}
	if e.Submissions, err = s.records(ctx, `SELECT id, assignment_id, status, created_at
		FROM submissions WHERE user_id=$1 ORDER BY created_at, id`, userID); err != nil {
		return Export{}, err
	}
	return e, nil
}

func (s *SQLStore) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt, now time.Time) error {
	_, err := s.sqldb.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at) VALUES ($1,$2,$3,$4,$5)`,
		uuid.NewString(), userID, token, db.Unix(expiresAt), db.Unix(now))
	return err
}

// RefreshTokenOwner returns the user a stored, unexpired token belongs to.
func (s *SQLStore) RefreshTokenOwner(ctx context.Context, token string, now time.Time) (string, error) {
	var userID string
	err := s.sqldb.QueryRowContext(ctx,
		`SELECT user_id FROM refresh_tokens WHERE token=$1 AND expires_at > $2`,
		token, db.Unix(now)).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.Unauthorized("invalid refresh token")
	}
	return userID, err
}

func (s *SQLStore) DeleteRefreshTokens(ctx context.Context, userID string) error {
	_, err := s.sqldb.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id=$1`, userID)
	return err
}
