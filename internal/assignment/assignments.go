package assignment

import (
	"context"
	"strings"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/rbac"
)

func (s *Service) CreateAssignment(ctx context.Context, id rbac.Identity, courseID string, in NewAssignment) (Assignment, error) {
	a := Assignment{
		CourseID:       courseID,
		CreatorID:      id.UserID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Instruction:    in.Instruction,
		Attachment:     in.Attachment,
		DueDate:        in.DueDate.UTC(),
		PointsPossible: in.PointsPossible,
	}
	if a.Attachment == nil {
		a.Attachment = []string{}
	}
	now := s.now()
	if a.Title == "" {
		return Assignment{}, apperr.BadRequest("title is required")
	}
	if !a.DueDate.After(now) {
		return Assignment{}, apperr.BadRequest("due date must be in the future")
	}
	if a.PointsPossible < 0 {
		return Assignment{}, apperr.BadRequest("points possible must not be negative")
	}
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if err := requireOwner(ctx, st, id, courseID); err != nil {
			return err
		}
		a.CreatedAt, a.UpdatedAt = now, now
		return st.CreateAssignment(ctx, &a)
	})
	if err != nil {
		return Assignment{}, apperr.Wrap(err, "failed to create assignment")
	}
	s.log.WithField("assignment_id", a.ID).WithField("course_id", courseID).Info("assignment created")
	return a, nil
}

// ListAssignments lists a course's assignments. Enrolled students only see
// published ones.
func (s *Service) ListAssignments(ctx context.Context, id rbac.Identity, courseID string) ([]Assignment, error) {
	acc, err := courseAccess(ctx, s.store, id, courseID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to list assignments")
	}
	if acc == accessNone {
		return nil, apperr.Forbidden("you are not enrolled in this course")
	}
	out, err := s.store.ListAssignments(ctx, courseID, acc == accessStudent)
	return out, apperr.Wrap(err, "failed to list assignments")
}

func (s *Service) GetAssignment(ctx context.Context, id rbac.Identity, courseID, assignmentID string) (Assignment, error) {
	acc, err := courseAccess(ctx, s.store, id, courseID)
	if err != nil {
		return Assignment{}, apperr.Wrap(err, "failed to get assignment")
	}
	if acc == accessNone {
		return Assignment{}, apperr.Forbidden("you are not enrolled in this course")
	}
	a, err := s.store.AssignmentByID(ctx, courseID, assignmentID)
	if err != nil {
		return Assignment{}, apperr.Wrap(err, "failed to get assignment")
	}
	if acc == accessStudent && !a.IsPublished {
		return Assignment{}, apperr.NotFound("assignment not found")
	}
	return a, nil
}

func (s *Service) UpdateAssignment(ctx context.Context, id rbac.Identity, courseID, assignmentID string, in AssignmentInput) (Assignment, error) {
	var a Assignment
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if err := requireOwner(ctx, st, id, courseID); err != nil {
			return err
		}
		var err error
		if a, err = st.AssignmentByID(ctx, courseID, assignmentID); err != nil {
			return err
		}
		if in.Title != nil {
			if a.Title = strings.TrimSpace(*in.Title); a.Title == "" {
				return apperr.BadRequest("title is required")
			}
		}
		if in.Description != nil {
			a.Description = *in.Description
		}
		if in.Instruction != nil {
			a.Instruction = *in.Instruction
		}
		if in.Attachment != nil {
			a.Attachment = in.Attachment
		}
		if in.DueDate != nil {
			a.DueDate = in.DueDate.UTC()
		}
		if in.PointsPossible != nil {
			if *in.PointsPossible < 0 {
				return apperr.BadRequest("points possible must not be negative")
			}
			a.PointsPossible = *in.PointsPossible
		}
		a.UpdatedAt = s.now()
		return st.UpdateAssignment(ctx, a)
	})
	return a, apperr.Wrap(err, "failed to update assignment")
}

// DeleteAssignment removes an assignment with its submissions.
func (s *Service) DeleteAssignment(ctx context.Context, id rbac.Identity, courseID, assignmentID string) error {
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if err := requireOwner(ctx, st, id, courseID); err != nil {
			return err
		}
		if _, err := st.AssignmentByID(ctx, courseID, assignmentID); err != nil {
			return err
		}
		if err := st.DeleteSubmissions(ctx, assignmentID); err != nil {
			return err
		}
		return st.DeleteAssignment(ctx, assignmentID)
	})
	if err != nil {
		return apperr.Wrap(err, "failed to delete assignment")
	}
	s.log.WithField("assignment_id", assignmentID).Info("assignment deleted")
	return nil
}

// PublishAssignment makes an assignment visible to students. Admin only.
func (s *Service) PublishAssignment(ctx context.Context, id rbac.Identity, courseID, assignmentID string) (Assignment, error) {
	if !id.IsAdmin() {
		return Assignment{}, apperr.Forbidden("only admins can publish assignments")
	}
	var a Assignment
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		var err error
		if a, err = st.AssignmentByID(ctx, courseID, assignmentID); err != nil {
			return err
		}
		if a.IsPublished {
			return apperr.BadRequest("assignment is already published")
		}
		a.IsPublished, a.UpdatedAt = true, s.now()
		return st.UpdateAssignment(ctx, a)
	})
	return a, apperr.Wrap(err, "failed to publish assignment")
}
