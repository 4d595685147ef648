package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/course"
)

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type categoryUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// MountCategories serves /api/categories. Reads are public; writes are admin
// only.
func MountCategories(r chi.Router, g Guards, svc *course.Service, log logrus.FieldLogger) {
	r.Get("/list", func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListCategories(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")), pageOf(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	r.Get("/tree", func(w http.ResponseWriter, r *http.Request) {
		tree, err := svc.CategoryTree(r.Context())
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, tree)
	})

	r.Get("/{slug}", func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.CategoryDetails(r.Context(), param(r, "slug"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})

	r.Group(func(r chi.Router) {
		r.Use(g.Admin)

		r.Post("/create", func(w http.ResponseWriter, r *http.Request) {
			var req categoryRequest
			if !decode(w, r, &req) {
				return
			}
			c, err := svc.CreateCategory(r.Context(), identity(r), req.Name, req.Description)
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			writeJSON(w, http.StatusCreated, c)
		})

		r.Post("/create-child/{parentId}", func(w http.ResponseWriter, r *http.Request) {
			var req categoryRequest
			if !decode(w, r, &req) {
				return
			}
			c, err := svc.CreateChildCategory(r.Context(), identity(r), param(r, "parentId"), req.Name, req.Description)
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			writeJSON(w, http.StatusCreated, c)
		})

		r.Patch("/update/{categoryId}", func(w http.ResponseWriter, r *http.Request) {
			var req categoryUpdateRequest
			if !decode(w, r, &req) {
				return
			}
			c, err := svc.UpdateCategory(r.Context(), identity(r), param(r, "categoryId"),
				course.CategoryInput{Name: req.Name, Description: req.Description})
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			writeJSON(w, http.StatusOK, c)
		})

		r.Patch("/update-child/{categoryId}/{childId}", func(w http.ResponseWriter, r *http.Request) {
			var req categoryUpdateRequest
			if !decode(w, r, &req) {
				return
			}
			c, err := svc.UpdateChildCategory(r.Context(), identity(r), param(r, "categoryId"), param(r, "childId"),
				course.CategoryInput{Name: req.Name, Description: req.Description})
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			writeJSON(w, http.StatusOK, c)
		})

		r.Delete("/delete/{categoryId}", func(w http.ResponseWriter, r *http.Request) {
			if err := svc.DeleteCategory(r.Context(), identity(r), param(r, "categoryId")); err != nil {
				writeError(w, r, log, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
		})

		r.Delete("/delete-with-children/{categoryId}", func(w http.ResponseWriter, r *http.Request) {
			n, err := svc.DeleteCategoryTree(r.Context(), identity(r), param(r, "categoryId"))
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"message": "category tree deleted", "deleted": n})
		})
	})
}
