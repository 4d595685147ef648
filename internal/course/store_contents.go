package course

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mind-engage/courseware/internal/db"
)

const contentCols = `id, module_id, author_id, title, type, content_data, content_ref, duration, sort_order,
	is_published, created_at, updated_at`

func scanContent(row scanner) (Content, error) {
	var c Content
	var dur sql.NullInt64
	var created, updated int64
	if err := row.Scan(&c.ID, &c.ModuleID, &c.AuthorID, &c.Title, &c.Type, &c.ContentData, &c.ContentRef, &dur,
		&c.Order, &c.IsPublished, &created, &updated); err != nil {
		return Content{}, err
	}
	c.Duration = intPtr(dur)
	c.CreatedAt, c.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return c, nil
}

// ContentByID loads a content of moduleID.
func (s *SQLStore) ContentByID(ctx context.Context, moduleID, id string) (Content, error) {
	c, err := scanContent(s.q.QueryRowContext(ctx,
		`SELECT `+contentCols+` FROM contents WHERE id=$1 AND module_id=$2`, id, moduleID))
	return c, notFound(err, "content")
}

func (s *SQLStore) CreateContent(ctx context.Context, c *Content) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO contents (`+contentCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		c.ID, c.ModuleID, c.AuthorID, c.Title, c.Type, c.ContentData, c.ContentRef, nullInt(c.Duration), c.Order,
		c.IsPublished, db.Unix(c.CreatedAt), db.Unix(c.UpdatedAt))
	return err
}

// UpdateContent writes the content's fields. Order is managed by ordering.
func (s *SQLStore) UpdateContent(ctx context.Context, c Content) error {
	_, err := s.q.ExecContext(ctx, `UPDATE contents SET title=$1, type=$2, content_data=$3, content_ref=$4,
		duration=$5, is_published=$6, updated_at=$7 WHERE id=$8`,
		c.Title, c.Type, c.ContentData, c.ContentRef, nullInt(c.Duration), c.IsPublished, db.Unix(c.UpdatedAt), c.ID)
	return err
}

func (s *SQLStore) DeleteContent(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM contents WHERE id=$1`, id)
	return err
}

func (s *SQLStore) ListContents(ctx context.Context, moduleID string, p db.Page) ([]Content, int, error) {
	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM contents WHERE module_id=$1`, moduleID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+contentCols+` FROM contents WHERE module_id=$1
		ORDER BY sort_order LIMIT $2 OFFSET $3`, moduleID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
