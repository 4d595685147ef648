package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/user"
)

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required,max=20"`
	LastName  string `json:"lastName" validate:"required,max=20"`
	Username  string `json:"username" validate:"required,max=20"`
	Gender    string `json:"gender" validate:"required,oneof=MALE FEMALE"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72,password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN INSTRUCTOR STUDENT"`
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72,password,nefield=OldPassword"`
}

type profileRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=20"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=20"`
	Username  *string `json:"username" validate:"omitempty,min=1,max=20"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
}

func (p profileRequest) input() user.ProfileInput {
	return user.ProfileInput{
		FirstName: p.FirstName, LastName: p.LastName, Username: p.Username,
		Email: p.Email, Bio: p.Bio, Phone: p.Phone,
	}
}

// MountAuth serves /api/auth.
func MountAuth(r chi.Router, g Guards, svc *user.Service, log logrus.FieldLogger) {
	r.Post("/register", func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decode(w, r, &req) {
			return
		}
		u, err := svc.Register(r.Context(), user.RegisterInput{
			FirstName: req.FirstName, LastName: req.LastName, Username: req.Username,
			Gender: req.Gender, Email: req.Email, Password: req.Password,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	})

	r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decode(w, r, &req) {
			return
		}
		t, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	})

	r.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !decode(w, r, &req) {
			return
		}
		t, err := svc.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	})

	r.With(g.Authed).Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context(), identity(r)); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	})
}

// MountUsers serves /api/user. Every route requires authentication.
func MountUsers(r chi.Router, svc *user.Service, maxUpload int64, log logrus.FieldLogger) {
	r.Get("/profile", func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.Profile(r.Context(), identity(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	})

	r.Post("/change-password", func(w http.ResponseWriter, r *http.Request) {
		var req passwordRequest
		if !decode(w, r, &req) {
			return
		}
		if err := svc.ChangePassword(r.Context(), identity(r), req.OldPassword, req.NewPassword); err != nil {
			writeError(w, r, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// Accepts JSON, or a multipart form with an optional "avatar" file.
	r.Patch("/edit-profile", func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if !isMultipart(r) {
			if !decode(w, r, &req) {
				return
			}
			u, err := svc.EditProfile(r.Context(), identity(r), req.input(), nil)
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			writeJSON(w, http.StatusOK, u)
			return
		}
		cleanup, err := multipartForm(w, r, maxUpload)
		defer cleanup()
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		req = profileRequest{
			FirstName: formString(r, "firstName"), LastName: formString(r, "lastName"),
			Username: formString(r, "username"), Email: formString(r, "email"),
			Bio: formString(r, "bio"), Phone: formString(r, "phone"),
		}
		if !check(w, &req) {
			return
		}
		avatar, closeFile, err := formFile(r, "avatar")
		defer closeFile()
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		u, err := svc.EditProfile(r.Context(), identity(r), req.input(), avatar)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	})
}

// MountAdminUsers serves admin user management under /api/users.
func MountAdminUsers(r chi.Router, svc *user.Service, log logrus.FieldLogger) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := svc.ListUsers(r.Context(), identity(r), q.Get("role"), strings.TrimSpace(q.Get("search")), pageOf(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	r.Get("/{userId}/export", func(w http.ResponseWriter, r *http.Request) {
		e, err := svc.Export(r.Context(), identity(r), param(r, "userId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "user_"+e.User.ID+".json"))
		writeJSON(w, http.StatusOK, e)
	})

	r.Patch("/{userId}/role", func(w http.ResponseWriter, r *http.Request) {
		var req roleRequest
		if !decode(w, r, &req) {
			return
		}
		u, err := svc.SetRole(r.Context(), identity(r), param(r, "userId"), req.Role)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	})
}
