package course

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mind-engage/courseware/internal/db"
)

const categoryCols = `id, name, slug, description, parent_id, created_at`

func scanCategory(row scanner) (Category, error) {
	var c Category
	var parent sql.NullString
	var created int64
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &parent, &created); err != nil {
		return Category{}, err
	}
	c.ParentID = stringPtr(parent)
	c.CreatedAt = db.FromUnix(created)
	return c, nil
}

func (s *SQLStore) CategoryByID(ctx context.Context, id string) (Category, error) {
	c, err := scanCategory(s.q.QueryRowContext(ctx, `SELECT `+categoryCols+` FROM categories WHERE id=$1`, id))
	return c, notFound(err, "category")
}

func (s *SQLStore) CategoryBySlug(ctx context.Context, slug string) (Category, error) {
	c, err := scanCategory(s.q.QueryRowContext(ctx, `SELECT `+categoryCols+` FROM categories WHERE slug=$1`, slug))
	return c, notFound(err, "category")
}

// CategoryExists reports whether a category matches name or slug. With a
// non-nil parentID the name check is limited to that parent's children.
func (s *SQLStore) CategoryExists(ctx context.Context, name, slug string, parentID *string, excludeID string) (bool, error) {
	var n int
	var err error
	if parentID == nil {
		err = s.q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM categories WHERE (LOWER(name)=LOWER($1) OR slug=$2) AND id<>$3`,
			name, slug, excludeID).Scan(&n)
	} else {
		err = s.q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM categories WHERE parent_id=$1 AND (LOWER(name)=LOWER($2) OR slug=$3) AND id<>$4`,
			*parentID, name, slug, excludeID).Scan(&n)
	}
	return n > 0, err
}

func (s *SQLStore) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO categories (`+categoryCols+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.Name, c.Slug, c.Description, nullString(c.ParentID), db.Unix(c.CreatedAt))
	return err
}

func (s *SQLStore) UpdateCategory(ctx context.Context, c Category) error {
	_, err := s.q.ExecContext(ctx, `UPDATE categories SET name=$1, slug=$2, description=$3 WHERE id=$4`,
		c.Name, c.Slug, c.Description, c.ID)
	return err
}

// RootCategories lists parentless categories whose name contains search.
func (s *SQLStore) RootCategories(ctx context.Context, search string, p db.Page) ([]Category, int, error) {
	like := "%" + strings.ToLower(search) + "%"
	var total int
	if err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE parent_id IS NULL AND LOWER(name) LIKE $1`, like,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+categoryCols+` FROM categories
		WHERE parent_id IS NULL AND LOWER(name) LIKE $1
		ORDER BY created_at DESC, name LIMIT $2 OFFSET $3`, like, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// AllCategories returns every category, oldest first.
func (s *SQLStore) AllCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+categoryCols+` FROM categories ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountChildCategories(ctx context.Context, id string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id=$1`, id).Scan(&n)
	return n, err
}

// DeleteCategory removes a category and its course links.
func (s *SQLStore) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM course_categories WHERE category_id=$1`, id); err != nil {
		return fmt.Errorf("unlink category %s: %w", id, err)
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM categories WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) CountCategories(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	ph := make([]string, len(ids))
	for i, id := range ids {
		args[i] = id
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE id IN (`+strings.Join(ph, ",")+`)`, args...).Scan(&n)
	return n, err
}

// ReplaceCourseCategories swaps the course's category links for ids.
func (s *SQLStore) ReplaceCourseCategories(ctx context.Context, courseID string, ids []string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM course_categories WHERE course_id=$1`, courseID); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO course_categories (course_id, category_id) VALUES ($1,$2)`, courseID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) CoursesInCategory(ctx context.Context, categoryID string) ([]CourseCard, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT c.id, c.title, c.slug, c.thumbnail, c.price
		FROM courses c JOIN course_categories cc ON cc.course_id=c.id
		WHERE cc.category_id=$1 ORDER BY c.created_at DESC`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CourseCard{}
	for rows.Next() {
		var c CourseCard
		if err := rows.Scan(&c.ID, &c.Title, &c.Slug, &c.Thumbnail, &c.Price); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) CourseCategoryNames(ctx context.Context, courseID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT cat.name FROM categories cat
		JOIN course_categories cc ON cc.category_id=cat.id
		WHERE cc.course_id=$1 ORDER BY cat.name`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
