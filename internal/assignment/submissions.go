package assignment

import (
	"context"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/rbac"
)

// openAssignment loads a published assignment for an enrolled student.
func openAssignment(ctx context.Context, st *SQLStore, id rbac.Identity, courseID, assignmentID string) (Assignment, error) {
	if err := requireStudent(ctx, st, id, courseID); err != nil {
		return Assignment{}, err
	}
	a, err := st.AssignmentByID(ctx, courseID, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if !a.IsPublished {
		return Assignment{}, apperr.NotFound("assignment not found")
	}
	return a, nil
}

// Draft creates or replaces the caller's working copy. A submission that has
// been turned in can only be edited again once it is returned.
func (s *Service) Draft(ctx context.Context, id rbac.Identity, courseID, assignmentID, content string, attachment []string) (Submission, error) {
	if attachment == nil {
		attachment = []string{}
	}
	var sub Submission
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := openAssignment(ctx, st, id, courseID, assignmentID); err != nil {
			return err
		}
		now := s.now()
		prev, err := st.SubmissionOf(ctx, assignmentID, id.UserID)
		if apperr.IsNotFound(err) {
			sub = Submission{
				AssignmentID: assignmentID,
				UserID:       id.UserID,
				Content:      content,
				Attachment:   attachment,
				Status:       StatusDraft,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			return st.CreateSubmission(ctx, &sub)
		}
		if err != nil {
			return err
		}
		if prev.Status != StatusDraft && prev.Status != StatusReturned {
			return apperr.BadRequest("submission has already been turned in")
		}
		sub = prev
		sub.Content, sub.Attachment, sub.Status, sub.UpdatedAt = content, attachment, StatusDraft, now
		return st.UpdateSubmission(ctx, sub)
	})
	return sub, apperr.Wrap(err, "failed to save draft")
}

// Submit turns in the caller's draft. Past the due date it is marked LATE.
func (s *Service) Submit(ctx context.Context, id rbac.Identity, courseID, assignmentID, submissionID string) (Submission, error) {
	var sub Submission
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		a, err := openAssignment(ctx, st, id, courseID, assignmentID)
		if err != nil {
			return err
		}
		if sub, err = st.SubmissionByID(ctx, assignmentID, submissionID); err != nil {
			return err
		}
		if sub.UserID != id.UserID {
			return apperr.Forbidden("this submission does not belong to you")
		}
		if sub.Status != StatusDraft && sub.Status != StatusReturned {
			return apperr.BadRequest("submission has already been turned in")
		}
		now := s.now()
		sub.Status = StatusSubmitted
		if now.After(a.DueDate) {
			sub.Status = StatusLate
		}
		sub.SubmittedAt, sub.UpdatedAt = &now, now
		return st.UpdateSubmission(ctx, sub)
	})
	if err != nil {
		return Submission{}, apperr.Wrap(err, "failed to submit assignment")
	}
	s.log.WithField("submission_id", sub.ID).WithField("status", sub.Status).Info("submission turned in")
	return sub, nil
}

// GetSubmission is readable by its author and the course's instructor.
func (s *Service) GetSubmission(ctx context.Context, id rbac.Identity, courseID, assignmentID, submissionID string) (Submission, error) {
	acc, err := courseAccess(ctx, s.store, id, courseID)
	if err != nil {
		return Submission{}, apperr.Wrap(err, "failed to get submission")
	}
	if _, err := s.store.AssignmentByID(ctx, courseID, assignmentID); err != nil {
		return Submission{}, apperr.Wrap(err, "failed to get submission")
	}
	sub, err := s.store.SubmissionByID(ctx, assignmentID, submissionID)
	if err != nil {
		return Submission{}, apperr.Wrap(err, "failed to get submission")
	}
	if acc != accessOwner && sub.UserID != id.UserID {
		return Submission{}, apperr.Forbidden("you cannot view this submission")
	}
	return sub, nil
}

// MySubmission returns the caller's own submission to an assignment.
func (s *Service) MySubmission(ctx context.Context, id rbac.Identity, courseID, assignmentID string) (Submission, error) {
	if _, err := openAssignment(ctx, s.store, id, courseID, assignmentID); err != nil {
		return Submission{}, apperr.Wrap(err, "failed to get submission")
	}
	sub, err := s.store.SubmissionOf(ctx, assignmentID, id.UserID)
	return sub, apperr.Wrap(err, "failed to get submission")
}

func (s *Service) ListSubmissions(ctx context.Context, id rbac.Identity, courseID, assignmentID string, page db.Page) (db.Paged[Submission], error) {
	if err := requireOwner(ctx, s.store, id, courseID); err != nil {
		return db.Paged[Submission]{}, apperr.Wrap(err, "failed to list submissions")
	}
	if _, err := s.store.AssignmentByID(ctx, courseID, assignmentID); err != nil {
		return db.Paged[Submission]{}, apperr.Wrap(err, "failed to list submissions")
	}
	items, total, err := s.store.ListSubmissions(ctx, assignmentID, page)
	if err != nil {
		return db.Paged[Submission]{}, apperr.Wrap(err, "failed to list submissions")
	}
	return db.NewPaged(items, page, total), nil
}

// review loads a turned-in submission for the course's instructor and hands
// it to fn before saving.
func (s *Service) review(ctx context.Context, id rbac.Identity, courseID, assignmentID, submissionID string, fn func(Assignment, *Submission) error) (Submission, error) {
	var sub Submission
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if err := requireOwner(ctx, st, id, courseID); err != nil {
			return err
		}
		a, err := st.AssignmentByID(ctx, courseID, assignmentID)
		if err != nil {
			return err
		}
		if sub, err = st.SubmissionByID(ctx, assignmentID, submissionID); err != nil {
			return err
		}
		if !sub.handedIn() {
			return apperr.BadRequest("submission has not been turned in")
		}
		if err := fn(a, &sub); err != nil {
			return err
		}
		sub.UpdatedAt = s.now()
		return st.UpdateSubmission(ctx, sub)
	})
	return sub, err
}

// Grade scores a turned-in submission out of the assignment's points.
func (s *Service) Grade(ctx context.Context, id rbac.Identity, courseID, assignmentID, submissionID string, grade float64, feedback string) (Submission, error) {
	sub, err := s.review(ctx, id, courseID, assignmentID, submissionID, func(a Assignment, sub *Submission) error {
		if grade < 0 || grade > a.PointsPossible {
			return apperr.BadRequest("grade must be between 0 and %g", a.PointsPossible)
		}
		now := s.now()
		sub.Status, sub.Grade, sub.Feedback, sub.GradedAt = StatusGraded, &grade, feedback, &now
		return nil
	})
	if err != nil {
		return Submission{}, apperr.Wrap(err, "failed to grade submission")
	}
	s.log.WithField("submission_id", submissionID).WithField("grade", grade).Info("submission graded")
	return sub, nil
}

// Return hands a submission back to its author for rework.
func (s *Service) Return(ctx context.Context, id rbac.Identity, courseID, assignmentID, submissionID, feedback string) (Submission, error) {
	sub, err := s.review(ctx, id, courseID, assignmentID, submissionID, func(_ Assignment, sub *Submission) error {
		sub.Status, sub.Feedback = StatusReturned, feedback
		return nil
	})
	return sub, apperr.Wrap(err, "failed to return submission")
}
