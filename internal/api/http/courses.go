package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/course"
	"github.com/mind-engage/courseware/internal/storage"
)

type courseRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string          `json:"description" validate:"omitempty,min=1,max=2000"`
	Level       *string          `json:"level" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Price       *decimal.Decimal `json:"price"`
	Duration    *int             `json:"duration" validate:"omitempty,gte=0"`
}

type assignCategoriesRequest struct {
	CategoryIDs []string `json:"categoryIds" validate:"required,min=1,dive,required"`
}

// readCourse fills a courseRequest from JSON or from a multipart form with an
// optional "thumbnail" file.
func readCourse(w http.ResponseWriter, r *http.Request, maxUpload int64) (courseRequest, *storage.Upload, func(), error) {
	var req courseRequest
	if !isMultipart(r) {
		if !decode(w, r, &req) {
			return req, nil, func() {}, errHandled
		}
		return req, nil, func() {}, nil
	}
	cleanup, err := multipartForm(w, r, maxUpload)
	if err != nil {
		return req, nil, cleanup, err
	}
	req.Title, req.Description, req.Level = formString(r, "title"), formString(r, "description"), formString(r, "level")
	if req.Duration, err = formInt(r, "duration"); err != nil {
		return req, nil, cleanup, err
	}
	if p := formString(r, "price"); p != nil && *p != "" {
		d, err := decimal.NewFromString(strings.TrimSpace(*p))
		if err != nil {
			return req, nil, cleanup, apperr.BadRequest("price must be a number")
		}
		req.Price = &d
	}
	if !check(w, &req) {
		return req, nil, cleanup, errHandled
	}
	thumb, closeFile, err := formFile(r, "thumbnail")
	return req, thumb, func() { closeFile(); cleanup() }, err
}

// MountCourses serves /api/courses.
func MountCourses(r chi.Router, g Guards, svc *course.Service, maxUpload int64, log logrus.FieldLogger) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListCourses(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")), pageOf(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	r.Get("/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.GetCourse(r.Context(), param(r, "courseId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})

	r.With(g.Perm("course:create")).Post("/create", func(w http.ResponseWriter, r *http.Request) {
		req, thumb, cleanup, err := readCourse(w, r, maxUpload)
		defer cleanup()
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if !requireFields(w, map[string]bool{
			"title": req.Title != nil, "description": req.Description != nil, "level": req.Level != nil,
			"price": req.Price != nil, "duration": req.Duration != nil,
		}) {
			return
		}
		c, err := svc.CreateCourse(r.Context(), identity(r), course.NewCourse{
			Title: *req.Title, Description: *req.Description, Level: *req.Level,
			Price: *req.Price, Duration: *req.Duration,
		}, thumb)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	})

	r.With(g.Perm("course:manage")).Patch("/{courseId}/update", func(w http.ResponseWriter, r *http.Request) {
		req, thumb, cleanup, err := readCourse(w, r, maxUpload)
		defer cleanup()
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		c, err := svc.UpdateCourse(r.Context(), identity(r), param(r, "courseId"), course.CourseInput{
			Title: req.Title, Description: req.Description, Level: req.Level, Price: req.Price, Duration: req.Duration,
		}, thumb)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})

	r.With(g.Perm("course:manage")).Delete("/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteCourse(r.Context(), identity(r), param(r, "courseId")); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "course deleted"})
	})

	r.With(g.Admin).Post("/{courseId}/approve", func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.ApproveCourse(r.Context(), identity(r), param(r, "courseId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})

	r.With(g.Perm("course:manage")).Post("/{courseId}/publish", func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.PublishCourse(r.Context(), identity(r), param(r, "courseId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})

	r.With(g.Perm("category:assign")).Put("/{courseId}/categories", func(w http.ResponseWriter, r *http.Request) {
		var req assignCategoriesRequest
		if !decode(w, r, &req) {
			return
		}
		names, err := svc.AssignCategories(r.Context(), identity(r), param(r, "courseId"), req.CategoryIDs)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"courseId": param(r, "courseId"), "categories": names})
	})
}
