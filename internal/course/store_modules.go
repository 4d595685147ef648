package course

import (
	"context"

	"github.com/google/uuid"

	"github.com/mind-engage/courseware/internal/db"
)

const moduleCols = `id, course_id, title, description, sort_order, is_published, created_at, updated_at`

func scanModule(row scanner) (Module, error) {
	var m Module
	var created, updated int64
	if err := row.Scan(&m.ID, &m.CourseID, &m.Title, &m.Description, &m.Order, &m.IsPublished, &created, &updated); err != nil {
		return Module{}, err
	}
	m.CreatedAt, m.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return m, nil
}

// ModuleByID loads a module of courseID.
func (s *SQLStore) ModuleByID(ctx context.Context, courseID, id string) (Module, error) {
	m, err := scanModule(s.q.QueryRowContext(ctx,
		`SELECT `+moduleCols+` FROM modules WHERE id=$1 AND course_id=$2`, id, courseID))
	return m, notFound(err, "module")
}

func (s *SQLStore) CreateModule(ctx context.Context, m *Module) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO modules (`+moduleCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.CourseID, m.Title, m.Description, m.Order, m.IsPublished, db.Unix(m.CreatedAt), db.Unix(m.UpdatedAt))
	return err
}

// UpdateModule writes the module's fields. Order is managed by ordering.
func (s *SQLStore) UpdateModule(ctx context.Context, m Module) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE modules SET title=$1, description=$2, is_published=$3, updated_at=$4 WHERE id=$5`,
		m.Title, m.Description, m.IsPublished, db.Unix(m.UpdatedAt), m.ID)
	return err
}

func (s *SQLStore) DeleteModule(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM modules WHERE id=$1`, id)
	return err
}

func (s *SQLStore) ListModules(ctx context.Context, courseID string, p db.Page) ([]Module, int, error) {
	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM modules WHERE course_id=$1`, courseID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+moduleCols+` FROM modules WHERE course_id=$1
		ORDER BY sort_order LIMIT $2 OFFSET $3`, courseID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// ContentRefsOfCourse lists the media refs held by contents of a course.
func (s *SQLStore) ContentRefsOfCourse(ctx context.Context, courseID string) ([]string, error) {
	return s.refs(ctx, `SELECT c.content_ref FROM contents c JOIN modules m ON m.id=c.module_id
		WHERE m.course_id=$1 AND c.content_ref<>''`, courseID)
}

// ContentRefsOfModule lists the media refs held by contents of a module.
func (s *SQLStore) ContentRefsOfModule(ctx context.Context, moduleID string) ([]string, error) {
	return s.refs(ctx, `SELECT content_ref FROM contents WHERE module_id=$1 AND content_ref<>''`, moduleID)
}

func (s *SQLStore) refs(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
