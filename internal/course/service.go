// Package course manages the catalog side of the LMS: categories, courses,
// their ordered modules and contents, and enrollments.
package course

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/rbac"
	"github.com/mind-engage/courseware/internal/storage"
)

type Service struct {
	store *SQLStore
	media storage.MediaStore
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(store *SQLStore, media storage.MediaStore, log logrus.FieldLogger) *Service {
	return &Service{store: store, media: media, log: log, now: time.Now}
}

// ownedCourse loads a course the caller may manage: its instructor or an admin.
func ownedCourse(ctx context.Context, st *SQLStore, id rbac.Identity, courseID string) (Course, error) {
	c, err := st.CourseByID(ctx, courseID)
	if err != nil {
		return Course{}, err
	}
	if c.InstructorID != id.UserID && !id.IsAdmin() {
		return Course{}, apperr.Forbidden("you are not the instructor of this course")
	}
	return c, nil
}

// dropMedia deletes assets after the rows referencing them are gone. Failures
// only leave orphan files, so they are logged.
func (s *Service) dropMedia(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.media.Delete(ctx, ref); err != nil {
			s.log.WithError(err).WithField("ref", ref).Warn("media not deleted")
		}
	}
}
