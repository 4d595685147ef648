package course

import (
	"context"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/ordering"
	"github.com/mind-engage/courseware/internal/rbac"
	"github.com/mind-engage/courseware/internal/storage"
)

func isFileType(t string) bool {
	return t == ContentVideo || t == ContentAudio || t == ContentDocument
}

func isTimed(t string) bool { return t == ContentVideo || t == ContentAudio }

// ValidContentType reports whether t is a known content type.
func ValidContentType(t string) bool {
	switch t {
	case ContentText, ContentVideo, ContentAudio, ContentDocument,
		ContentQuiz, ContentAssignment, ContentPresentation, ContentLink:
		return true
	}
	return false
}

// checkContent validates the type-specific requirements of a content.
func checkContent(typ, data string, duration *int, hasFile bool) error {
	switch {
	case !ValidContentType(typ):
		return apperr.BadRequest("invalid content type: %s", typ)
	case isFileType(typ):
		if isTimed(typ) && (duration == nil || *duration <= 0) {
			return apperr.BadRequest("duration is required for video or audio content")
		}
		if !hasFile {
			return apperr.BadRequest("file is required for %s content type", typ)
		}
	case data == "":
		return apperr.BadRequest("content data is required for %s content type", typ)
	}
	return nil
}

// moduleOfOwnedCourse loads moduleID and checks the caller manages its course.
func moduleOfOwnedCourse(ctx context.Context, st *SQLStore, id rbac.Identity, moduleID string) (Module, error) {
	var courseID string
	err := st.q.QueryRowContext(ctx, `SELECT course_id FROM modules WHERE id=$1`, moduleID).Scan(&courseID)
	if err != nil {
		return Module{}, notFound(err, "module")
	}
	if _, err := ownedCourse(ctx, st, id, courseID); err != nil {
		if apperr.KindOf(err) == apperr.KindForbidden {
			return Module{}, apperr.Forbidden("you are not the instructor of this module")
		}
		return Module{}, err
	}
	return st.ModuleByID(ctx, courseID, moduleID)
}

// CreateContent appends a content to the module. File types upload file to
// the media store.
func (s *Service) CreateContent(ctx context.Context, id rbac.Identity, moduleID string, in ContentInput, file *storage.Upload) (Content, error) {
	c := Content{ModuleID: moduleID, AuthorID: id.UserID}
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Type != nil {
		c.Type = *in.Type
	}
	if in.ContentData != nil {
		c.ContentData = *in.ContentData
	}
	c.Duration = in.Duration
	if err := checkContent(c.Type, c.ContentData, c.Duration, file != nil); err != nil {
		return Content{}, err
	}

	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := moduleOfOwnedCourse(ctx, st, id, moduleID); err != nil {
			return err
		}
		if isFileType(c.Type) {
			url, ref, err := s.media.Upload(ctx, storage.FolderContents, file.Filename, file.Body)
			if err != nil {
				return apperr.Internal(err, "failed to upload content file")
			}
			c.ContentData, c.ContentRef = url, ref
		}
		next, err := ordering.Contents.Next(ctx, st.q, moduleID)
		if err != nil {
			return err
		}
		now := s.now()
		c.Order, c.CreatedAt, c.UpdatedAt = next, now, now
		return st.CreateContent(ctx, &c)
	})
	if err != nil {
		s.dropMedia(ctx, c.ContentRef)
		return Content{}, apperr.Wrap(err, "failed to create content")
	}
	return c, nil
}

// UpdateContent changes fields, moves the content when Order is set, and
// replaces its asset when a new file or plain content data arrives.
func (s *Service) UpdateContent(ctx context.Context, id rbac.Identity, moduleID, contentID string, in ContentInput, file *storage.Upload) (Content, error) {
	var c Content
	var oldRef, newRef string
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := moduleOfOwnedCourse(ctx, st, id, moduleID); err != nil {
			return err
		}
		var err error
		if c, err = st.ContentByID(ctx, moduleID, contentID); err != nil {
			return err
		}
		if in.Order != nil && *in.Order != c.Order {
			if err := ordering.Contents.Move(ctx, st.q, moduleID, contentID, *in.Order); err != nil {
				return err
			}
			c.Order = *in.Order
		}
		if in.Title != nil {
			c.Title = *in.Title
		}
		if in.Type != nil {
			c.Type = *in.Type
		}
		if in.Duration != nil {
			c.Duration = in.Duration
		}
		switch {
		case file != nil:
			url, ref, err := s.media.Upload(ctx, storage.FolderContents, file.Filename, file.Body)
			if err != nil {
				return apperr.Internal(err, "failed to upload content file")
			}
			oldRef, newRef = c.ContentRef, ref
			c.ContentData, c.ContentRef = url, ref
		case in.ContentData != nil:
			oldRef = c.ContentRef
			c.ContentData, c.ContentRef = *in.ContentData, ""
		}
		if err := checkContent(c.Type, c.ContentData, c.Duration, c.ContentRef != ""); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		return st.UpdateContent(ctx, c)
	})
	if err != nil {
		s.dropMedia(ctx, newRef)
		return Content{}, apperr.Wrap(err, "failed to update content")
	}
	s.dropMedia(ctx, oldRef)
	return c, nil
}

// DeleteContent removes a content, closes the order gap and deletes its asset.
func (s *Service) DeleteContent(ctx context.Context, id rbac.Identity, moduleID, contentID string) error {
	var ref string
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, err := moduleOfOwnedCourse(ctx, st, id, moduleID); err != nil {
			return err
		}
		c, err := st.ContentByID(ctx, moduleID, contentID)
		if err != nil {
			return err
		}
		ref = c.ContentRef
		if err := st.DeleteContent(ctx, contentID); err != nil {
			return err
		}
		return ordering.Contents.Compact(ctx, st.q, moduleID, c.Order)
	})
	if err != nil {
		return apperr.Wrap(err, "failed to delete content")
	}
	s.dropMedia(ctx, ref)
	return nil
}

func (s *Service) moduleExists(ctx context.Context, moduleID string) error {
	var one int
	err := s.store.q.QueryRowContext(ctx, `SELECT 1 FROM modules WHERE id=$1`, moduleID).Scan(&one)
	return notFound(err, "module")
}

func (s *Service) ListContents(ctx context.Context, moduleID string, page db.Page) (db.Paged[Content], error) {
	if err := s.moduleExists(ctx, moduleID); err != nil {
		return db.Paged[Content]{}, apperr.Wrap(err, "failed to list contents")
	}
	items, total, err := s.store.ListContents(ctx, moduleID, page)
	if err != nil {
		return db.Paged[Content]{}, apperr.Wrap(err, "failed to list contents")
	}
	return db.NewPaged(items, page, total), nil
}

func (s *Service) GetContent(ctx context.Context, moduleID, contentID string) (Content, error) {
	if err := s.moduleExists(ctx, moduleID); err != nil {
		return Content{}, apperr.Wrap(err, "failed to get content")
	}
	c, err := s.store.ContentByID(ctx, moduleID, contentID)
	return c, apperr.Wrap(err, "failed to get content")
}

// PublishContent marks a content published. Admin only.
func (s *Service) PublishContent(ctx context.Context, id rbac.Identity, moduleID, contentID string) (Content, error) {
	if err := requireAdmin(id, "publish contents"); err != nil {
		return Content{}, err
	}
	c, err := s.GetContent(ctx, moduleID, contentID)
	if err != nil {
		return Content{}, err
	}
	if c.IsPublished {
		return Content{}, apperr.BadRequest("content already published")
	}
	c.IsPublished = true
	c.UpdatedAt = s.now()
	if err := s.store.UpdateContent(ctx, c); err != nil {
		return Content{}, apperr.Wrap(err, "failed to publish content")
	}
	return c, nil
}
