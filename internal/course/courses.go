package course

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/rbac"
	"github.com/mind-engage/courseware/internal/slug"
	"github.com/mind-engage/courseware/internal/storage"
)

type NewCourse struct {
	Title       string
	Description string
	Level       string
	Price       decimal.Decimal
	Duration    int
}

// CreateCourse creates an unapproved, unpublished course owned by the caller.
func (s *Service) CreateCourse(ctx context.Context, id rbac.Identity, in NewCourse, thumb *storage.Upload) (Course, error) {
	if !id.IsInstructor() && !id.IsAdmin() {
		return Course{}, apperr.Forbidden("user is not an instructor or admin")
	}
	if in.Price.IsNegative() {
		return Course{}, apperr.BadRequest("price must not be negative")
	}
	now := s.now()
	c := Course{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Level:        in.Level,
		Price:        in.Price,
		Duration:     in.Duration,
		InstructorID: id.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	sl, err := slug.Unique(ctx, s.store.q, "courses", slug.Make(c.Title), "", now)
	if err != nil {
		return Course{}, apperr.Wrap(err, "failed to create course")
	}
	c.Slug = sl

	if thumb != nil {
		url, ref, err := s.media.Upload(ctx, storage.FolderThumbnails, thumb.Filename, thumb.Body)
		if err != nil {
			return Course{}, apperr.Internal(err, "failed to upload thumbnail")
		}
		c.Thumbnail, c.ThumbnailRef = url, ref
	}
	if err := s.store.CreateCourse(ctx, &c); err != nil {
		s.dropMedia(ctx, c.ThumbnailRef)
		return Course{}, apperr.Wrap(err, "failed to create course")
	}
	s.log.WithField("course_id", c.ID).WithField("instructor_id", id.UserID).Info("course created")
	return c, nil
}

func (s *Service) ListCourses(ctx context.Context, search string, page db.Page) (db.Paged[CourseDetail], error) {
	courses, total, err := s.store.ListCourses(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return db.Paged[CourseDetail]{}, apperr.Wrap(err, "failed to list courses")
	}
	out := make([]CourseDetail, 0, len(courses))
	for _, c := range courses {
		d, err := s.detail(ctx, c)
		if err != nil {
			return db.Paged[CourseDetail]{}, apperr.Wrap(err, "failed to list courses")
		}
		out = append(out, d)
	}
	return db.NewPaged(out, page, total), nil
}

func (s *Service) GetCourse(ctx context.Context, courseID string) (CourseDetail, error) {
	c, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return CourseDetail{}, apperr.Wrap(err, "failed to get course")
	}
	d, err := s.detail(ctx, c)
	return d, apperr.Wrap(err, "failed to get course")
}

func (s *Service) detail(ctx context.Context, c Course) (CourseDetail, error) {
	d := CourseDetail{Course: c}
	var err error
	if d.Instructor, err = s.store.Instructor(ctx, c.InstructorID); err != nil {
		return d, err
	}
	if d.Categories, err = s.store.CourseCategoryNames(ctx, c.ID); err != nil {
		return d, err
	}
	if d.Modules, err = s.store.ModuleBriefs(ctx, c.ID); err != nil {
		return d, err
	}
	d.EnrollmentCount, err = s.store.CountEnrollments(ctx, c.ID)
	return d, err
}

// UpdateCourse changes course fields; a new title regenerates the slug and a
// new thumbnail replaces the old asset.
func (s *Service) UpdateCourse(ctx context.Context, id rbac.Identity, courseID string, in CourseInput, thumb *storage.Upload) (Course, error) {
	c, err := ownedCourse(ctx, s.store, id, courseID)
	if err != nil {
		return Course{}, apperr.Wrap(err, "failed to update course")
	}
	now := s.now()
	if in.Title != nil && strings.TrimSpace(*in.Title) != c.Title {
		c.Title = strings.TrimSpace(*in.Title)
		if c.Slug, err = slug.Unique(ctx, s.store.q, "courses", slug.Make(c.Title), c.ID, now); err != nil {
			return Course{}, apperr.Wrap(err, "failed to update course")
		}
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Level != nil {
		c.Level = *in.Level
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return Course{}, apperr.BadRequest("price must not be negative")
		}
		c.Price = *in.Price
	}
	if in.Duration != nil {
		c.Duration = *in.Duration
	}
	oldRef := ""
	if thumb != nil {
		url, ref, err := s.media.Upload(ctx, storage.FolderThumbnails, thumb.Filename, thumb.Body)
		if err != nil {
			return Course{}, apperr.Internal(err, "failed to upload thumbnail")
		}
		oldRef = c.ThumbnailRef
		c.Thumbnail, c.ThumbnailRef = url, ref
	}
	c.UpdatedAt = now
	if err := s.store.UpdateCourse(ctx, c); err != nil {
		return Course{}, apperr.Wrap(err, "failed to update course")
	}
	s.dropMedia(ctx, oldRef)
	return c, nil
}

// DeleteCourse removes a course with everything under it and its media.
func (s *Service) DeleteCourse(ctx context.Context, id rbac.Identity, courseID string) error {
	var refs []string
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		c, err := ownedCourse(ctx, st, id, courseID)
		if err != nil {
			return err
		}
		if refs, err = st.ContentRefsOfCourse(ctx, courseID); err != nil {
			return err
		}
		refs = append(refs, c.ThumbnailRef)
		return st.DeleteCourse(ctx, courseID)
	})
	if err != nil {
		return apperr.Wrap(err, "failed to delete course")
	}
	s.dropMedia(ctx, refs...)
	s.log.WithField("course_id", courseID).Info("course deleted")
	return nil
}

// ApproveCourse marks a course approved. Admin only.
func (s *Service) ApproveCourse(ctx context.Context, id rbac.Identity, courseID string) (Course, error) {
	if err := requireAdmin(id, "approve courses"); err != nil {
		return Course{}, err
	}
	c, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return Course{}, apperr.Wrap(err, "failed to approve course")
	}
	if c.IsApproved {
		return Course{}, apperr.BadRequest("course is already approved")
	}
	c.IsApproved = true
	c.UpdatedAt = s.now()
	if err := s.store.UpdateCourse(ctx, c); err != nil {
		return Course{}, apperr.Wrap(err, "failed to approve course")
	}
	return c, nil
}

// PublishCourse publishes an approved course. Owner only.
func (s *Service) PublishCourse(ctx context.Context, id rbac.Identity, courseID string) (Course, error) {
	c, err := s.store.CourseByID(ctx, courseID)
	if err != nil {
		return Course{}, apperr.Wrap(err, "failed to publish course")
	}
	if c.InstructorID != id.UserID {
		return Course{}, apperr.Forbidden("only the instructor can publish the course")
	}
	if !c.IsApproved {
		return Course{}, apperr.BadRequest("course is not approved")
	}
	if c.IsPublished {
		return Course{}, apperr.BadRequest("course is already published")
	}
	c.IsPublished = true
	c.UpdatedAt = s.now()
	if err := s.store.UpdateCourse(ctx, c); err != nil {
		return Course{}, apperr.Wrap(err, "failed to publish course")
	}
	return c, nil
}
