package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/assignment"
)

type assignmentRequest struct {
	Title          *string    `json:"title" validate:"omitempty,min=1,max=50"`
	Description    *string    `json:"description" validate:"omitempty,min=1,max=150"`
	Instruction    *string    `json:"instruction" validate:"omitempty,min=1,max=1000"`
	DueDate        *time.Time `json:"dueDate"`
	PointsPossible *float64   `json:"pointsPossible" validate:"omitempty,gte=0"`
	Attachment     []string   `json:"attachment" validate:"omitempty,dive,url"`
}

type draftRequest struct {
	Content    string   `json:"content" validate:"max=10000"`
	Attachment []string `json:"attachment" validate:"omitempty,dive,url"`
}

type gradeSubmissionRequest struct {
	Grade    *float64 `json:"grade" validate:"required,gte=0"`
	Feedback string   `json:"feedback" validate:"max=2000"`
}

type returnSubmissionRequest struct {
	Feedback string `json:"feedback" validate:"required,max=2000"`
}

// MountAssignments serves /api/assignments. Every route requires
// authentication; course membership is checked by the service.
func MountAssignments(r chi.Router, g Guards, svc *assignment.Service, log logrus.FieldLogger) {
	r.With(g.Perm("assignment:manage")).Post("/create/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		var req assignmentRequest
		if !decode(w, r, &req) {
			return
		}
		if !requireFields(w, map[string]bool{
			"title": req.Title != nil, "dueDate": req.DueDate != nil,
			"pointsPossible": req.PointsPossible != nil, "instruction": req.Instruction != nil,
		}) {
			return
		}
		in := assignment.NewAssignment{
			Title: *req.Title, Instruction: *req.Instruction, Attachment: req.Attachment,
			DueDate: *req.DueDate, PointsPossible: *req.PointsPossible,
		}
		if req.Description != nil {
			in.Description = *req.Description
		}
		a, err := svc.CreateAssignment(r.Context(), identity(r), param(r, "courseId"), in)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	})

	r.With(g.Authed).Get("/list/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListAssignments(r.Context(), identity(r), param(r, "courseId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})

	r.With(g.Authed).Get("/get/{assignmentId}/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.GetAssignment(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	})

	r.With(g.Perm("assignment:manage")).Patch("/update/{assignmentId}/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		var req assignmentRequest
		if !decode(w, r, &req) {
			return
		}
		a, err := svc.UpdateAssignment(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId"),
			assignment.AssignmentInput{
				Title: req.Title, Description: req.Description, Instruction: req.Instruction,
				Attachment: req.Attachment, DueDate: req.DueDate, PointsPossible: req.PointsPossible,
			})
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	})

	r.With(g.Perm("assignment:manage")).Delete("/delete/{assignmentId}/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteAssignment(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId")); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "assignment deleted"})
	})

	r.With(g.Admin).Post("/publish/{assignmentId}/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.PublishAssignment(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	})
}

// MountSubmissions serves /api/submissions. Every route requires
// authentication.
func MountSubmissions(r chi.Router, g Guards, svc *assignment.Service, log logrus.FieldLogger) {
	r.With(g.Perm("submission:write")).Post("/draft/{courseId}/{assignmentId}", func(w http.ResponseWriter, r *http.Request) {
		var req draftRequest
		if !decode(w, r, &req) {
			return
		}
		s, err := svc.Draft(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId"), req.Content, req.Attachment)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})

	r.With(g.Perm("submission:write")).Post("/submit/{courseId}/{assignmentId}/{submissionId}", func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.Submit(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId"), param(r, "submissionId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})

	r.With(g.Perm("submission:write")).Get("/mine/{courseId}/{assignmentId}", func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.MySubmission(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})

	r.With(g.Perm("submission:grade")).Get("/list/{courseId}/{assignmentId}", func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListSubmissions(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId"), pageOf(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	r.With(g.Authed).Get("/{courseId}/{assignmentId}/{submissionId}", func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.GetSubmission(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId"), param(r, "submissionId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})

	r.With(g.Perm("submission:grade")).Put("/grading/{courseId}/{assignmentId}/{submissionId}", func(w http.ResponseWriter, r *http.Request) {
		var req gradeSubmissionRequest
		if !decode(w, r, &req) {
			return
		}
		s, err := svc.Grade(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId"), param(r, "submissionId"),
			*req.Grade, req.Feedback)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})

	r.With(g.Perm("submission:grade")).Put("/return/{courseId}/{assignmentId}/{submissionId}", func(w http.ResponseWriter, r *http.Request) {
		var req returnSubmissionRequest
		if !decode(w, r, &req) {
			return
		}
		s, err := svc.Return(r.Context(), identity(r), param(r, "courseId"), param(r, "assignmentId"), param(r, "submissionId"),
			req.Feedback)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})
}
