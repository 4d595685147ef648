package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/course"
	"github.com/mind-engage/courseware/internal/storage"
)

type moduleRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type moduleUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Order       *int    `json:"order" validate:"omitempty,gte=1"`
}

// MountModules serves /api/modules.
func MountModules(r chi.Router, g Guards, svc *course.Service, log logrus.FieldLogger) {
	r.Get("/list/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListModules(r.Context(), param(r, "courseId"), pageOf(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	r.Get("/{courseId}/{moduleId}", func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.GetModule(r.Context(), param(r, "courseId"), param(r, "moduleId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	})

	r.With(g.Perm("module:manage")).Post("/create/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		var req moduleRequest
		if !decode(w, r, &req) {
			return
		}
		m, err := svc.CreateModule(r.Context(), identity(r), param(r, "courseId"), req.Title, req.Description)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	})

	r.With(g.Perm("module:manage")).Patch("/update/{courseId}/{moduleId}", func(w http.ResponseWriter, r *http.Request) {
		var req moduleUpdateRequest
		if !decode(w, r, &req) {
			return
		}
		m, err := svc.UpdateModule(r.Context(), identity(r), param(r, "courseId"), param(r, "moduleId"),
			course.ModuleInput{Title: req.Title, Description: req.Description, Order: req.Order})
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	})

	r.With(g.Perm("module:manage")).Delete("/delete/{courseId}/{moduleId}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteModule(r.Context(), identity(r), param(r, "courseId"), param(r, "moduleId")); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "module deleted"})
	})

	r.With(g.Admin).Post("/publish/{courseId}/{moduleId}", func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.PublishModule(r.Context(), identity(r), param(r, "courseId"), param(r, "moduleId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	})
}

type contentRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=100"`
	Type        *string `json:"type" validate:"omitempty,oneof=TEXT VIDEO AUDIO DOCUMENT QUIZ ASSIGNMENT PRESENTATION LINK"`
	ContentData *string `json:"contentData"`
	Duration    *int    `json:"duration" validate:"omitempty,gte=1"`
	Order       *int    `json:"order" validate:"omitempty,gte=1"`
}

func (c contentRequest) input() course.ContentInput {
	return course.ContentInput{Title: c.Title, Type: c.Type, ContentData: c.ContentData, Duration: c.Duration, Order: c.Order}
}

// readContent fills a contentRequest from JSON or from a multipart form with
// an optional "file".
func readContent(w http.ResponseWriter, r *http.Request, maxUpload int64) (contentRequest, *storage.Upload, func(), error) {
	var req contentRequest
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
	req.Title, req.Type, req.ContentData = formString(r, "title"), formString(r, "type"), formString(r, "contentData")
	if req.Duration, err = formInt(r, "duration"); err != nil {
		return req, nil, cleanup, err
	}
	if req.Order, err = formInt(r, "order"); err != nil {
		return req, nil, cleanup, err
	}
	if !check(w, &req) {
		return req, nil, cleanup, errHandled
	}
	file, closeFile, err := formFile(r, "file")
	return req, file, func() { closeFile(); cleanup() }, err
}

// MountContents serves /api/contents.
func MountContents(r chi.Router, g Guards, svc *course.Service, maxUpload int64, log logrus.FieldLogger) {
	r.Get("/list/{moduleId}", func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListContents(r.Context(), param(r, "moduleId"), pageOf(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	r.Get("/get/{moduleId}/{contentId}", func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.GetContent(r.Context(), param(r, "moduleId"), param(r, "contentId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})

	r.With(g.Perm("content:manage")).Post("/create/{moduleId}", func(w http.ResponseWriter, r *http.Request) {
		req, file, cleanup, err := readContent(w, r, maxUpload)
		defer cleanup()
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if !requireFields(w, map[string]bool{"title": req.Title != nil, "type": req.Type != nil}) {
			return
		}
		c, err := svc.CreateContent(r.Context(), identity(r), param(r, "moduleId"), req.input(), file)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	})

	r.With(g.Perm("content:manage")).Patch("/update/{moduleId}/{contentId}", func(w http.ResponseWriter, r *http.Request) {
		req, file, cleanup, err := readContent(w, r, maxUpload)
		defer cleanup()
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		c, err := svc.UpdateContent(r.Context(), identity(r), param(r, "moduleId"), param(r, "contentId"), req.input(), file)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})

	r.With(g.Perm("content:manage")).Delete("/delete/{moduleId}/{contentId}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteContent(r.Context(), identity(r), param(r, "moduleId"), param(r, "contentId")); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "content deleted"})
	})

	r.With(g.Admin).Post("/publish/{moduleId}/{contentId}", func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.PublishContent(r.Context(), identity(r), param(r, "moduleId"), param(r, "contentId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})
}

// MountEnrollments serves /api/enrollments. Every route requires
// authentication.
func MountEnrollments(r chi.Router, g Guards, svc *course.Service, log logrus.FieldLogger) {
	r.With(g.Perm("enrollment:join")).Post("/enroll/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.Join(r.Context(), identity(r), param(r, "courseId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	})

	r.With(g.Perm("enrollment:leave")).Post("/leave/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.Leave(r.Context(), identity(r), param(r, "courseId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	})

	r.With(g.Perm("enrollment:manage")).Patch("/approve/{enrollmentId}", func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.Accept(r.Context(), identity(r), param(r, "enrollmentId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	})

	r.With(g.Perm("enrollment:manage")).Patch("/reject/{enrollmentId}", func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.Reject(r.Context(), identity(r), param(r, "enrollmentId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	})

	r.With(g.Perm("enrollment:manage")).Delete("/kick/{userId}/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Kick(r.Context(), identity(r), param(r, "courseId"), param(r, "userId")); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "user removed from course"})
	})

	r.With(g.Perm("enrollment:manage")).Get("/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.Enrollments(r.Context(), identity(r), param(r, "courseId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	})
}
