// Package assignment manages course assignments and the students'
// submissions to them.
//
// A submission starts as a DRAFT, is turned in as SUBMITTED (or LATE past the
// due date), and is then either GRADED or RETURNED to the student, who may
// edit and turn it in again.
package assignment

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/rbac"
)

type Service struct {
	store *SQLStore
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(store *SQLStore, log logrus.FieldLogger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// access is what the caller may do in a course.
type access int

const (
	accessNone access = iota
	accessStudent
	accessOwner
)

func courseAccess(ctx context.Context, st *SQLStore, id rbac.Identity, courseID string) (access, error) {
	instructor, err := st.CourseInstructor(ctx, courseID)
	if err != nil {
		return accessNone, err
	}
	if id.IsAdmin() || instructor == id.UserID {
		return accessOwner, nil
	}
	ok, err := st.ActiveEnrollment(ctx, id.UserID, courseID)
	if err != nil || !ok {
		return accessNone, err
	}
	return accessStudent, nil
}

func requireOwner(ctx context.Context, st *SQLStore, id rbac.Identity, courseID string) error {
	a, err := courseAccess(ctx, st, id, courseID)
	if err != nil {
		return err
	}
	if a != accessOwner {
		return apperr.Forbidden("you are not the instructor of this course")
	}
	return nil
}

func requireStudent(ctx context.Context, st *SQLStore, id rbac.Identity, courseID string) error {
	a, err := courseAccess(ctx, st, id, courseID)
	if err != nil {
		return err
	}
	if a != accessStudent {
		return apperr.Forbidden("you are not enrolled in this course")
	}
	return nil
}
