package course

import (
	"context"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/rbac"
)

// Join requests enrollment in a course; the owner accepts or rejects it.
func (s *Service) Join(ctx context.Context, id rbac.Identity, courseID string) (Enrollment, error) {
	if !id.IsStudent() {
		return Enrollment{}, apperr.Forbidden("only students can join courses")
	}
	var e Enrollment
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := st.CourseByID(ctx, courseID); err != nil {
			return err
		}
		_, err := st.EnrollmentOf(ctx, id.UserID, courseID)
		if err == nil {
			return apperr.Conflict("user is already enrolled in the course")
		}
		if !apperr.IsNotFound(err) {
			return err
		}
		e = Enrollment{UserID: id.UserID, CourseID: courseID, Status: EnrollmentPending, EnrolledAt: s.now()}
		return st.CreateEnrollment(ctx, &e)
	})
	return e, apperr.Wrap(err, "failed to join course")
}

// Leave drops the caller's active enrollment.
func (s *Service) Leave(ctx context.Context, id rbac.Identity, courseID string) (Enrollment, error) {
	var e Enrollment
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		var err error
		e, err = st.EnrollmentOf(ctx, id.UserID, courseID)
		if apperr.IsNotFound(err) || (err == nil && e.Status != EnrollmentActive) {
			return apperr.BadRequest("user is not enrolled in the course")
		}
		if err != nil {
			return err
		}
		e.Status = EnrollmentDropped
		return st.SetEnrollmentStatus(ctx, e.ID, e.Status)
	})
	return e, apperr.Wrap(err, "failed to leave course")
}

func (s *Service) decide(ctx context.Context, id rbac.Identity, enrollmentID, status, verb string) (Enrollment, error) {
	var e Enrollment
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		var err error
		if e, err = st.EnrollmentByID(ctx, enrollmentID); err != nil {
			return err
		}
		c, err := st.CourseByID(ctx, e.CourseID)
		if err != nil {
			return err
		}
		if c.InstructorID != id.UserID && !id.IsAdmin() {
			return apperr.Forbidden("only the instructor can %s the enrollment", verb)
		}
		if e.Status != EnrollmentPending {
			return apperr.BadRequest("enrollment is not pending")
		}
		e.Status = status
		return st.SetEnrollmentStatus(ctx, e.ID, status)
	})
	return e, apperr.Wrap(err, "failed to "+verb+" enrollment")
}

// Accept activates a pending enrollment.
func (s *Service) Accept(ctx context.Context, id rbac.Identity, enrollmentID string) (Enrollment, error) {
	return s.decide(ctx, id, enrollmentID, EnrollmentActive, "accept")
}

// Reject refuses a pending enrollment.
func (s *Service) Reject(ctx context.Context, id rbac.Identity, enrollmentID string) (Enrollment, error) {
	return s.decide(ctx, id, enrollmentID, EnrollmentRejected, "reject")
}

// Kick removes a student's active enrollment from the course.
func (s *Service) Kick(ctx context.Context, id rbac.Identity, courseID, userID string) error {
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := ownedCourse(ctx, st, id, courseID); err != nil {
			if apperr.KindOf(err) == apperr.KindForbidden {
				return apperr.Forbidden("only the instructor can kick out the user from the course")
			}
			return err
		}
		e, err := st.EnrollmentOf(ctx, userID, courseID)
		if apperr.IsNotFound(err) || (err == nil && e.Status != EnrollmentActive) {
			return apperr.BadRequest("user is not enrolled in the course")
		}
		if err != nil {
			return err
		}
		return st.DeleteEnrollment(ctx, e.ID)
	})
	return apperr.Wrap(err, "failed to kick out user from course")
}

// Enrollments lists the course's enrollments for its owner, dropped ones excluded.
func (s *Service) Enrollments(ctx context.Context, id rbac.Identity, courseID string) ([]EnrollmentRow, error) {
	if _, err := ownedCourse(ctx, s.store, id, courseID); err != nil {
		return nil, apperr.Wrap(err, "failed to get all enrollments")
	}
	rows, err := s.store.CourseEnrollments(ctx, courseID)
	return rows, apperr.Wrap(err, "failed to get all enrollments")
}
