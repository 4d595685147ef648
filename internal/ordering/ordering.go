// Package ordering keeps the sort_order column of sibling rows a contiguous
// 1..N sequence under insert, move and delete.
package ordering

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
)

// Collection names a table whose rows are ordered within a parent.
type Collection struct {
	Table  string
	Parent string // parent foreign key column
	Noun   string // used in error messages
}

var (
	Modules   = Collection{Table: "modules", Parent: "course_id", Noun: "module"}
	Contents  = Collection{Table: "contents", Parent: "module_id", Noun: "content"}
	Questions = Collection{Table: "questions", Parent: "quiz_id", Noun: "question"}
)

// Count returns the number of children under parentID.
func (c Collection) Count(ctx context.Context, q db.Querier, parentID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s=$1`, c.Table, c.Parent),
		parentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.Table, err)
	}
	return n, nil
}

// Next is the order a new child of parentID receives.
func (c Collection) Next(ctx context.Context, q db.Querier, parentID string) (int, error) {
	n, err := c.Count(ctx, q, parentID)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// Current returns the stored order of itemID under parentID.
func (c Collection) Current(ctx context.Context, q db.Querier, parentID, itemID string) (int, error) {
	var cur int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT sort_order FROM %s WHERE id=$1 AND %s=$2`, c.Table, c.Parent),
		itemID, parentID,
	).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound("%s not found", c.Noun)
	}
	if err != nil {
		return 0, fmt.Errorf("load %s order: %w", c.Noun, err)
	}
	return cur, nil
}

// Move places itemID at newOrder and shifts the siblings in between by one.
// The caller runs it inside a transaction so the shift and the final update
// commit together.
func (c Collection) Move(ctx context.Context, q db.Querier, parentID, itemID string, newOrder int) error {
	old, err := c.Current(ctx, q, parentID, itemID)
	if err != nil {
		return err
	}
	n, err := c.Count(ctx, q, parentID)
	if err != nil {
		return err
	}
	if newOrder < 1 || newOrder > n {
		return apperr.BadRequest("order must be between 1 and %d", n)
	}
	if newOrder == old {
		return nil
	}

	var shift string
	lo, hi := old, newOrder
	if newOrder > old {
		shift = "sort_order - 1"
	} else {
		shift = "sort_order + 1"
		lo, hi = newOrder, old
	}
	// The window includes the moved item; it is overwritten right after.
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET sort_order = %s WHERE %s=$1 AND sort_order >= $2 AND sort_order <= $3`,
			c.Table, shift, c.Parent),
		parentID, lo, hi,
	); err != nil {
		return fmt.Errorf("shift %s: %w", c.Table, err)
	}
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET sort_order=$1 WHERE id=$2`, c.Table),
		newOrder, itemID,
	); err != nil {
		return fmt.Errorf("set %s order: %w", c.Noun, err)
	}
	return nil
}

// Compact closes the gap left by a deleted child that held deletedOrder.
func (c Collection) Compact(ctx context.Context, q db.Querier, parentID string, deletedOrder int) error {
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET sort_order = sort_order - 1 WHERE %s=$1 AND sort_order > $2`, c.Table, c.Parent),
		parentID, deletedOrder,
	); err != nil {
		return fmt.Errorf("compact %s: %w", c.Table, err)
	}
	return nil
}
