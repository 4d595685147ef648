package course

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/ordering"
	"github.com/mind-engage/courseware/internal/rbac"
)

// CreateModule appends a module to the end of the course.
func (s *Service) CreateModule(ctx context.Context, id rbac.Identity, courseID, title, description string) (Module, error) {
	var m Module
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := ownedCourse(ctx, st, id, courseID); err != nil {
			return err
		}
		next, err := ordering.Modules.Next(ctx, st.q, courseID)
		if err != nil {
			return err
		}
		now := s.now()
		m = Module{CourseID: courseID, Title: title, Description: description, Order: next, CreatedAt: now, UpdatedAt: now}
		return st.CreateModule(ctx, &m)
	})
	return m, apperr.Wrap(err, "failed to create module")
}

// UpdateModule changes fields and, when Order is set, moves the module.
func (s *Service) UpdateModule(ctx context.Context, id rbac.Identity, courseID, moduleID string, in ModuleInput) (Module, error) {
	var m Module
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := ownedCourse(ctx, st, id, courseID); err != nil {
			return err
		}
		var err error
		if m, err = st.ModuleByID(ctx, courseID, moduleID); err != nil {
			return err
		}
		if in.Order != nil && *in.Order != m.Order {
			if err := ordering.Modules.Move(ctx, st.q, courseID, moduleID, *in.Order); err != nil {
				return err
			}
			s.log.WithFields(logrus.Fields{"module_id": moduleID, "from": m.Order, "to": *in.Order}).Debug("module moved")
			m.Order = *in.Order
		}
		if in.Title != nil {
			m.Title = *in.Title
		}
		if in.Description != nil {
			m.Description = *in.Description
		}
		m.UpdatedAt = s.now()
		return st.UpdateModule(ctx, m)
	})
	return m, apperr.Wrap(err, "failed to update module")
}

// DeleteModule removes a module and closes the gap in the course's order.
func (s *Service) DeleteModule(ctx context.Context, id rbac.Identity, courseID, moduleID string) error {
	var refs []string
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := ownedCourse(ctx, st, id, courseID); err != nil {
			return err
		}
		m, err := st.ModuleByID(ctx, courseID, moduleID)
		if err != nil {
			return err
		}
		if refs, err = st.ContentRefsOfModule(ctx, moduleID); err != nil {
			return err
		}
		if err := st.DeleteModule(ctx, moduleID); err != nil {
			return err
		}
		return ordering.Modules.Compact(ctx, st.q, courseID, m.Order)
	})
	if err != nil {
		return apperr.Wrap(err, "failed to delete module")
	}
	s.dropMedia(ctx, refs...)
	return nil
}

func (s *Service) ListModules(ctx context.Context, courseID string, page db.Page) (db.Paged[Module], error) {
	if _, err := s.store.CourseByID(ctx, courseID); err != nil {
		return db.Paged[Module]{}, apperr.Wrap(err, "failed to list modules")
	}
	items, total, err := s.store.ListModules(ctx, courseID, page)
	if err != nil {
		return db.Paged[Module]{}, apperr.Wrap(err, "failed to list modules")
	}
	return db.NewPaged(items, page, total), nil
}

func (s *Service) GetModule(ctx context.Context, courseID, moduleID string) (Module, error) {
	if _, err := s.store.CourseByID(ctx, courseID); err != nil {
		return Module{}, apperr.Wrap(err, "failed to get module")
	}
	m, err := s.store.ModuleByID(ctx, courseID, moduleID)
	return m, apperr.Wrap(err, "failed to get module")
}

// PublishModule marks a module published. Admin only.
func (s *Service) PublishModule(ctx context.Context, id rbac.Identity, courseID, moduleID string) (Module, error) {
	if err := requireAdmin(id, "publish modules"); err != nil {
		return Module{}, err
	}
	m, err := s.GetModule(ctx, courseID, moduleID)
	if err != nil {
		return Module{}, err
	}
	if m.IsPublished {
		return Module{}, apperr.BadRequest("module already published")
	}
	m.IsPublished = true
	m.UpdatedAt = s.now()
	if err := s.store.UpdateModule(ctx, m); err != nil {
		return Module{}, apperr.Wrap(err, "failed to publish module")
	}
	return m, nil
}
