package course

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mind-engage/courseware/internal/db"
)

const enrollmentCols = `id, user_id, course_id, status, enrolled_at, completed_at`

func scanEnrollment(row scanner) (Enrollment, error) {
	var e Enrollment
	var enrolled int64
	var completed sql.NullInt64
	if err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Status, &enrolled, &completed); err != nil {
		return Enrollment{}, err
	}
	e.EnrolledAt = db.FromUnix(enrolled)
	e.CompletedAt = db.NullTime(completed)
	return e, nil
}

func (s *SQLStore) EnrollmentByID(ctx context.Context, id string) (Enrollment, error) {
	e, err := scanEnrollment(s.q.QueryRowContext(ctx, `SELECT `+enrollmentCols+` FROM enrollments WHERE id=$1`, id))
	return e, notFound(err, "enrollment")
}

// EnrollmentOf loads the user's enrollment in a course, any status.
func (s *SQLStore) EnrollmentOf(ctx context.Context, userID, courseID string) (Enrollment, error) {
	e, err := scanEnrollment(s.q.QueryRowContext(ctx,
		`SELECT `+enrollmentCols+` FROM enrollments WHERE user_id=$1 AND course_id=$2`, userID, courseID))
	return e, notFound(err, "enrollment")
}

func (s *SQLStore) CreateEnrollment(ctx context.Context, e *Enrollment) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO enrollments (`+enrollmentCols+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.UserID, e.CourseID, e.Status, db.Unix(e.EnrolledAt), db.NullUnix(e.CompletedAt))
	return err
}

func (s *SQLStore) SetEnrollmentStatus(ctx context.Context, id, status string) error {
	_, err := s.q.ExecContext(ctx, `UPDATE enrollments SET status=$1 WHERE id=$2`, status, id)
	return err
}

func (s *SQLStore) DeleteEnrollment(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM enrollments WHERE id=$1`, id)
	return err
}

// CourseEnrollments lists a course's enrollments except dropped ones.
func (s *SQLStore) CourseEnrollments(ctx context.Context, courseID string) ([]EnrollmentRow, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT e.id, e.user_id, e.course_id, e.status, e.enrolled_at, e.completed_at,
		u.username, u.email, u.first_name, u.last_name
		FROM enrollments e JOIN users u ON u.id=e.user_id
		WHERE e.course_id=$1 AND e.status<>$2 ORDER BY e.enrolled_at DESC`, courseID, EnrollmentDropped)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []EnrollmentRow{}
	for rows.Next() {
		var r EnrollmentRow
		var enrolled int64
		var completed sql.NullInt64
		if err := rows.Scan(&r.ID, &r.UserID, &r.CourseID, &r.Status, &enrolled, &completed,
			&r.Username, &r.Email, &r.FirstName, &r.LastName); err != nil {
			return nil, err
		}
		r.EnrolledAt = db.FromUnix(enrolled)
		r.CompletedAt = db.NullTime(completed)
		out = append(out, r)
	}
	return out, rows.Err()
}
