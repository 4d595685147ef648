package course

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mind-engage/courseware/internal/db"
)

const courseCols = `id, title, slug, description, level, price, duration, thumbnail, thumbnail_ref,
	instructor_id, is_published, is_approved, created_at, updated_at`

func scanCourse(row scanner) (Course, error) {
	var c Course
	var created, updated int64
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.Level, &c.Price, &c.Duration,
		&c.Thumbnail, &c.ThumbnailRef, &c.InstructorID, &c.IsPublished, &c.IsApproved, &created, &updated)
	if err != nil {
		return Course{}, err
	}
	c.CreatedAt, c.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return c, nil
}

func (s *SQLStore) CourseByID(ctx context.Context, id string) (Course, error) {
	c, err := scanCourse(s.q.QueryRowContext(ctx, `SELECT `+courseCols+` FROM courses WHERE id=$1`, id))
	return c, notFound(err, "course")
}

func (s *SQLStore) CreateCourse(ctx context.Context, c *Course) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO courses (`+courseCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		c.ID, c.Title, c.Slug, c.Description, c.Level, c.Price.StringFixed(2), c.Duration, c.Thumbnail,
		c.ThumbnailRef, c.InstructorID, c.IsPublished, c.IsApproved, db.Unix(c.CreatedAt), db.Unix(c.UpdatedAt))
	return err
}

func (s *SQLStore) UpdateCourse(ctx context.Context, c Course) error {
	_, err := s.q.ExecContext(ctx, `UPDATE courses SET title=$1, slug=$2, description=$3, level=$4, price=$5,
		duration=$6, thumbnail=$7, thumbnail_ref=$8, is_published=$9, is_approved=$10, updated_at=$11
		WHERE id=$12`,
		c.Title, c.Slug, c.Description, c.Level, c.Price.StringFixed(2), c.Duration, c.Thumbnail, c.ThumbnailRef,
		c.IsPublished, c.IsApproved, db.Unix(c.UpdatedAt), c.ID)
	return err
}

func (s *SQLStore) DeleteCourse(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM courses WHERE id=$1`, id)
	return err
}

func (s *SQLStore) ListCourses(ctx context.Context, search string, p db.Page) ([]Course, int, error) {
	like := "%" + strings.ToLower(search) + "%"
	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses WHERE LOWER(title) LIKE $1`, like).
		Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+courseCols+` FROM courses WHERE LOWER(title) LIKE $1
		ORDER BY created_at DESC, title LIMIT $2 OFFSET $3`, like, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (s *SQLStore) Instructor(ctx context.Context, userID string) (Instructor, error) {
	var in Instructor
	err := s.q.QueryRowContext(ctx, `SELECT id, username, first_name, last_name, avatar FROM users WHERE id=$1`, userID).
		Scan(&in.ID, &in.Username, &in.FirstName, &in.LastName, &in.Avatar)
	return in, notFound(err, "instructor")
}

func (s *SQLStore) CountEnrollments(ctx context.Context, courseID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE course_id=$1 AND status=$2`, courseID, EnrollmentActive).Scan(&n)
	return n, err
}

// ModuleBriefs lists a course's modules in order.
func (s *SQLStore) ModuleBriefs(ctx context.Context, courseID string) ([]ModuleBrief, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, title, description, sort_order FROM modules WHERE course_id=$1 ORDER BY sort_order`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ModuleBrief{}
	for rows.Next() {
		var m ModuleBrief
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Order); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
