package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/storage"
)

// MountMedia serves /api/media. POST /upload stores a "file" field as an
// assignment or submission attachment and returns its URL.
func MountMedia(r chi.Router, g Guards, media storage.MediaStore, maxUpload int64, log logrus.FieldLogger) {
	r.With(g.Authed).Post("/upload", func(w http.ResponseWriter, r *http.Request) {
		if !isMultipart(r) {
			writeError(w, r, log, apperr.BadRequest("multipart form with a file is required"))
			return
		}
		cleanup, err := multipartForm(w, r, maxUpload)
		defer cleanup()
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		f, closeFile, err := formFile(r, "file")
		defer closeFile()
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if f == nil {
			writeError(w, r, log, apperr.BadRequest("file is required"))
			return
		}
		url, ref, err := media.Upload(r.Context(), storage.FolderAttachment, f.Filename, f.Body)
		if err != nil {
			writeError(w, r, log, apperr.Internal(err, "failed to store upload"))
			return
		}
		log.WithField("ref", ref).WithField("user_id", identity(r).UserID).Info("attachment uploaded")
		writeJSON(w, http.StatusCreated, map[string]string{"url": url, "ref": ref})
	})
}
