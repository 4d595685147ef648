package course

import (
	"context"
	"strings"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/rbac"
	"github.com/mind-engage/courseware/internal/slug"
)

func requireAdmin(id rbac.Identity, action string) error {
	if !id.IsAdmin() {
		return apperr.Forbidden("only admins can %s", action)
	}
	return nil
}

// CreateCategory creates a root category.
func (s *Service) CreateCategory(ctx context.Context, id rbac.Identity, name, description string) (Category, error) {
	if err := requireAdmin(id, "create categories"); err != nil {
		return Category{}, err
	}
	name = strings.TrimSpace(name)
	sl := slug.Make(name)
	exists, err := s.store.CategoryExists(ctx, name, sl, nil, "")
	if err != nil {
		return Category{}, apperr.Wrap(err, "failed to create category")
	}
	if exists {
		return Category{}, apperr.Conflict("category with same name or slug already exists")
	}
	c := Category{Name: name, Slug: sl, Description: description, CreatedAt: s.now()}
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		return Category{}, apperr.Wrap(err, "failed to create category")
	}
	return c, nil
}

// CreateChildCategory creates a category under parentID.
func (s *Service) CreateChildCategory(ctx context.Context, id rbac.Identity, parentID, name, description string) (Category, error) {
	if err := requireAdmin(id, "create categories"); err != nil {
		return Category{}, err
	}
	var c Category
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		parent, err := st.CategoryByID(ctx, parentID)
		if apperr.IsNotFound(err) {
			return apperr.NotFound("parent category not found")
		}
		if err != nil {
			return err
		}
		name = strings.TrimSpace(name)
		base := slug.Make(parent.Slug + " " + name)
		exists, err := st.CategoryExists(ctx, name, base, &parent.ID, "")
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("child category with same name or slug already exists")
		}
		sl, err := slug.Unique(ctx, st.q, "categories", base, "", s.now())
		if err != nil {
			return err
		}
		c = Category{Name: name, Slug: sl, Description: description, ParentID: &parent.ID, CreatedAt: s.now()}
		return st.CreateCategory(ctx, &c)
	})
	return c, apperr.Wrap(err, "failed to create child category")
}

func (s *Service) ListCategories(ctx context.Context, search string, page db.Page) (db.Paged[Category], error) {
	items, total, err := s.store.RootCategories(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return db.Paged[Category]{}, apperr.Wrap(err, "failed to list categories")
	}
	return db.NewPaged(items, page, total), nil
}

// CategoryTree returns root categories with their direct children.
func (s *Service) CategoryTree(ctx context.Context) ([]CategoryNode, error) {
	all, err := s.store.AllCategories(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to get category tree")
	}
	children := map[string][]CategoryNode{}
	for _, c := range all {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], CategoryNode{ID: c.ID, Name: c.Name, Slug: c.Slug})
		}
	}
	out := []CategoryNode{}
	for _, c := range all {
		if c.ParentID == nil {
			out = append(out, CategoryNode{ID: c.ID, Name: c.Name, Slug: c.Slug, Children: children[c.ID]})
		}
	}
	return out, nil
}

// CategoryDetails returns the category at slug with its courses.
func (s *Service) CategoryDetails(ctx context.Context, sl string) (CategoryDetails, error) {
	c, err := s.store.CategoryBySlug(ctx, sl)
	if err != nil {
		return CategoryDetails{}, apperr.Wrap(err, "failed to get category details")
	}
	courses, err := s.store.CoursesInCategory(ctx, c.ID)
	if err != nil {
		return CategoryDetails{}, apperr.Wrap(err, "failed to get category details")
	}
	return CategoryDetails{Category: c, Courses: courses}, nil
}

// UpdateCategory renames or re-describes a category. A new name regenerates the slug.
func (s *Service) UpdateCategory(ctx context.Context, id rbac.Identity, categoryID string, in CategoryInput) (Category, error) {
	if err := requireAdmin(id, "update categories"); err != nil {
		return Category{}, err
	}
	var c Category
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		var err error
		c, err = st.CategoryByID(ctx, categoryID)
		if err != nil {
			return err
		}
		return s.applyCategoryInput(ctx, st, &c, in)
	})
	return c, apperr.Wrap(err, "failed to update category")
}

// UpdateChildCategory updates a category that must be a child of parentID.
func (s *Service) UpdateChildCategory(ctx context.Context, id rbac.Identity, parentID, childID string, in CategoryInput) (Category, error) {
	if err := requireAdmin(id, "update categories"); err != nil {
		return Category{}, err
	}
	var c Category
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := st.CategoryByID(ctx, parentID); err != nil {
			return err
		}
		var err error
		c, err = st.CategoryByID(ctx, childID)
		if apperr.IsNotFound(err) || (err == nil && (c.ParentID == nil || *c.ParentID != parentID)) {
			return apperr.NotFound("child category not found")
		}
		if err != nil {
			return err
		}
		return s.applyCategoryInput(ctx, st, &c, in)
	})
	return c, apperr.Wrap(err, "failed to update child category")
}

func (s *Service) applyCategoryInput(ctx context.Context, st *SQLStore, c *Category, in CategoryInput) error {
	if in.Name != nil && strings.TrimSpace(*in.Name) != c.Name {
		name := strings.TrimSpace(*in.Name)
		exists, err := st.CategoryExists(ctx, name, "", c.ParentID, c.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("category with same name already exists")
		}
		sl, err := slug.Unique(ctx, st.q, "categories", slug.Make(name), c.ID, s.now())
		if err != nil {
			return err
		}
		c.Name, c.Slug = name, sl
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	return st.UpdateCategory(ctx, *c)
}

// DeleteCategory removes a leaf category.
func (s *Service) DeleteCategory(ctx context.Context, id rbac.Identity, categoryID string) error {
	if err := requireAdmin(id, "delete categories"); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := st.CategoryByID(ctx, categoryID); err != nil {
			return err
		}
		n, err := st.CountChildCategories(ctx, categoryID)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.BadRequest("cannot delete category with child categories")
		}
		return st.DeleteCategory(ctx, categoryID)
	})
	return apperr.Wrap(err, "failed to delete category")
}

// DeleteCategoryTree removes a category with all its descendants and their
// course links in one transaction, children before parents.
func (s *Service) DeleteCategoryTree(ctx context.Context, id rbac.Identity, categoryID string) (int, error) {
	if err := requireAdmin(id, "delete categories"); err != nil {
		return 0, err
	}
	var deleted int
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := st.CategoryByID(ctx, categoryID); err != nil {
			return err
		}
		all, err := st.AllCategories(ctx)
		if err != nil {
			return err
		}
		children := map[string][]string{}
		for _, c := range all {
			if c.ParentID != nil {
				children[*c.ParentID] = append(children[*c.ParentID], c.ID)
			}
		}
		for _, cid := range postOrder(categoryID, children) {
			if err := st.DeleteCategory(ctx, cid); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Wrap(err, "failed to delete category with children")
	}
	s.log.WithField("category_id", categoryID).WithField("deleted", deleted).Info("category tree deleted")
	return deleted, nil
}

// postOrder lists root's subtree with every node after all of its
// descendants. It walks an explicit stack; a node is emitted at most once.
func postOrder(root string, children map[string][]string) []string {
	type frame struct {
		id       string
		expanded bool
	}
	var out []string
	seen := map[string]bool{}
	stack := []frame{{id: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.expanded {
			out = append(out, f.id)
			continue
		}
		if seen[f.id] {
			continue
		}
		seen[f.id] = true
		stack = append(stack, frame{id: f.id, expanded: true})
		for _, c := range children[f.id] {
			stack = append(stack, frame{id: c})
		}
	}
	return out
}

// AssignCategories replaces the categories of a course.
func (s *Service) AssignCategories(ctx context.Context, id rbac.Identity, courseID string, categoryIDs []string) ([]string, error) {
	if !id.IsInstructor() && !id.IsAdmin() {
		return nil, apperr.Forbidden("only instructors and admins can assign categories")
	}
	ids := dedupe(categoryIDs)
	var names []string
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := ownedCourse(ctx, st, id, courseID); err != nil {
			return err
		}
		n, err := st.CountCategories(ctx, ids)
		if err != nil {
			return err
		}
		if n != len(ids) {
			return apperr.BadRequest("some of the categories are not valid")
		}
		if err := st.ReplaceCourseCategories(ctx, courseID, ids); err != nil {
			return err
		}
		names, err = st.CourseCategoryNames(ctx, courseID)
		return err
	})
	return names, apperr.Wrap(err, "failed to assign categories to course")
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
