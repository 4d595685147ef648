// Package http holds the REST handlers of the LMS API and the router that
// mounts them under /api.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/rbac"
	"github.com/mind-engage/courseware/internal/storage"
)

var validate = newValidator()

// errHandled marks a failure whose response has already been written.
var errHandled = errors.New("response already written")

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password", strongPassword)
	return v
}

// strongPassword wants a lower and upper case letter, a digit and one of
// @$!%*?&, and nothing outside those classes.
func strongPassword(fl validator.FieldLevel) bool {
	var lower, upper, digit, special bool
	for _, c := range fl.Field().String() {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune("@$!%*?&", c):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

type errorBody struct {
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status. Internal errors are logged and their
// detail is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	if errors.Is(err, errHandled) {
		return
	}
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	writeJSON(w, status, errorBody{Message: apperr.Message(err), Status: status})
}

func writeValidation(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "invalid input", Status: http.StatusBadRequest})
		return
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fieldMessage(fe)
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Message: "validation failed", Status: http.StatusBadRequest, Errors: fields})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "password":
		return "must mix upper and lower case letters, a digit and one of @$!%*?&"
	}
	return "is invalid (" + fe.Tag() + ")"
}

// decode reads a JSON body into dst and validates it. It writes the 400
// itself and reports false when the request must stop.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "malformed JSON body", Status: http.StatusBadRequest})
		return false
	}
	return check(w, dst)
}

func check(w http.ResponseWriter, v any) bool {
	if err := validate.Struct(v); err != nil {
		writeValidation(w, err)
		return false
	}
	return true
}

func identity(r *http.Request) rbac.Identity {
	id, _ := rbac.IdentityFromContext(r.Context())
	return id
}

func pageOf(r *http.Request) db.Page {
	q := r.URL.Query()
	p, _ := strconv.Atoi(q.Get("page"))
	l, _ := strconv.Atoi(q.Get("limit"))
	return db.NewPage(p, l)
}

func param(r *http.Request, name string) string { return chi.URLParam(r, name) }

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// multipartForm parses an upload request capped at maxBytes. The returned
// cleanup removes temp files.
func multipartForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return func() {}, apperr.BadRequest("upload exceeds %d MB", maxBytes>>20)
		}
		return func() {}, apperr.BadRequest("malformed multipart form")
	}
	return func() { _ = r.MultipartForm.RemoveAll() }, nil
}

// formFile returns the named upload, or nil when absent.
func formFile(r *http.Request, field string) (*storage.Upload, func(), error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, apperr.BadRequest("invalid %s upload", field)
	}
	return &storage.Upload{Filename: hdr.Filename, Body: f}, func() { f.Close() }, nil
}

// formString returns a pointer to the form value, nil when the key is absent.
func formString(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	vs, ok := r.MultipartForm.Value[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	return &vs[0]
}

func formInt(r *http.Request, key string) (*int, error) {
	s := formString(r, key)
	if s == nil || *s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		return nil, apperr.BadRequest("%s must be an integer", key)
	}
	return &n, nil
}

// requireFields writes a 400 naming every field whose presence flag is false.
func requireFields(w http.ResponseWriter, present map[string]bool) bool {
	missing := map[string]string{}
	for name, ok := range present {
		if !ok {
			missing[name] = "is required"
		}
	}
	if len(missing) == 0 {
		return true
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Message: "validation failed", Status: http.StatusBadRequest, Errors: missing})
	return false
}
