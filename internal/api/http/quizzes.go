package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/quiz"
)

type quizRequest struct {
	TimeLimit    *int `json:"timeLimit" validate:"omitempty,gte=1"`
	PassingScore *int `json:"passingScore" validate:"omitempty,gte=0,lte=100"`
	MaxAttempts  *int `json:"maxAttempts" validate:"omitempty,gte=1"`
}

type questionRequest struct {
	QuestionText  *string       `json:"questionText" validate:"omitempty,min=1,max=1000"`
	QuestionType  *string       `json:"questionType" validate:"omitempty,oneof=MULTIPLE_CHOICE SINGLE_CHOICE TRUE_FALSE SHORT_ANSWER ESSAY"`
	Options       []quiz.Option `json:"options"`
	CorrectAnswer any           `json:"correctAnswer"`
	Points        *float64      `json:"points" validate:"omitempty,gt=0"`
	Order         *int          `json:"order" validate:"omitempty,gte=1"`
}

func (q questionRequest) input() quiz.QuestionInput {
	return quiz.QuestionInput{
		Text: q.QuestionText, Type: q.QuestionType, Options: q.Options,
		CorrectAnswer: q.CorrectAnswer, Points: q.Points, Order: q.Order,
	}
}

type answerRequest struct {
	Answer any `json:"answer" validate:"required"`
}

// text flattens a submitted answer into its stored form: strings as is,
// anything else as JSON.
func (a answerRequest) text() string {
	if s, ok := a.Answer.(string); ok {
		return s
	}
	b, _ := json.Marshal(a.Answer)
	return string(b)
}

type gradeAnswerRequest struct {
	Points *float64 `json:"points" validate:"required,gte=0"`
}

// MountQuizzes serves /api/quizzes.
func MountQuizzes(r chi.Router, g Guards, svc *quiz.Service, log logrus.FieldLogger) {
	r.Get("/list/{contentId}", func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListQuizzes(r.Context(), param(r, "contentId"), pageOf(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	r.Get("/get/{contentId}/{quizId}", func(w http.ResponseWriter, r *http.Request) {
		q, err := svc.GetQuiz(r.Context(), param(r, "contentId"), param(r, "quizId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	})

	r.With(g.Perm("quiz:manage")).Post("/create/{contentId}", func(w http.ResponseWriter, r *http.Request) {
		var req quizRequest
		if !decode(w, r, &req) {
			return
		}
		if !requireFields(w, map[string]bool{"passingScore": req.PassingScore != nil, "maxAttempts": req.MaxAttempts != nil}) {
			return
		}
		q, err := svc.CreateQuiz(r.Context(), identity(r), param(r, "contentId"), quiz.NewQuiz{
			TimeLimit: req.TimeLimit, PassingScore: *req.PassingScore, MaxAttempts: *req.MaxAttempts,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	})

	r.With(g.Perm("quiz:manage")).Patch("/update/{contentId}/{quizId}", func(w http.ResponseWriter, r *http.Request) {
		var req quizRequest
		if !decode(w, r, &req) {
			return
		}
		q, err := svc.UpdateQuiz(r.Context(), identity(r), param(r, "contentId"), param(r, "quizId"), quiz.QuizInput{
			TimeLimit: req.TimeLimit, PassingScore: req.PassingScore, MaxAttempts: req.MaxAttempts,
		})
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	})

	r.With(g.Perm("quiz:manage")).Delete("/delete/{contentId}/{quizId}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteQuiz(r.Context(), identity(r), param(r, "contentId"), param(r, "quizId")); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "quiz deleted"})
	})
}

// MountQuestions serves /api/questions. Reads take an optional identity so
// the course's instructor sees correct answers.
func MountQuestions(r chi.Router, g Guards, svc *quiz.Service, log logrus.FieldLogger) {
	r.With(g.Optional).Get("/list/{quizId}", func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListQuestions(r.Context(), identity(r), param(r, "quizId"), pageOf(r))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	r.With(g.Optional).Get("/get/{quizId}/{questionId}", func(w http.ResponseWriter, r *http.Request) {
		q, err := svc.GetQuestion(r.Context(), identity(r), param(r, "quizId"), param(r, "questionId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	})

	r.With(g.Perm("question:manage")).Post("/create/{quizId}", func(w http.ResponseWriter, r *http.Request) {
		var req questionRequest
		if !decode(w, r, &req) {
			return
		}
		if !requireFields(w, map[string]bool{"questionText": req.QuestionText != nil, "questionType": req.QuestionType != nil}) {
			return
		}
		q, err := svc.CreateQuestion(r.Context(), identity(r), param(r, "quizId"), req.input())
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	})

	r.With(g.Perm("question:manage")).Patch("/update/{quizId}/{questionId}", func(w http.ResponseWriter, r *http.Request) {
		var req questionRequest
		if !decode(w, r, &req) {
			return
		}
		q, err := svc.UpdateQuestion(r.Context(), identity(r), param(r, "quizId"), param(r, "questionId"), req.input())
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	})

	r.With(g.Perm("question:manage")).Delete("/delete/{quizId}/{questionId}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteQuestion(r.Context(), identity(r), param(r, "quizId"), param(r, "questionId")); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "question deleted"})
	})
}

// MountAttempts serves /api/attempts. Every route requires authentication.
func MountAttempts(r chi.Router, g Guards, svc *quiz.Service, log logrus.FieldLogger) {
	r.With(g.Perm("attempt:start")).Post("/start/{quizId}", func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Start(r.Context(), identity(r), param(r, "quizId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	})

	r.With(g.Perm("attempt:complete")).Post("/end/{quizId}", func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Complete(r.Context(), identity(r), param(r, "quizId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	})

	r.With(g.Perm("attempt:view-all")).Get("/all/{quizId}", func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.All(r.Context(), identity(r), param(r, "quizId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})

	r.With(g.Perm("attempt:view-own")).Get("/{quizId}", func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.Mine(r.Context(), identity(r), param(r, "quizId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})

	r.With(g.Perm("attempt:view-all")).Get("/{quizId}/{userId}", func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ForUser(r.Context(), identity(r), param(r, "quizId"), param(r, "userId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})
}

// MountAnswers serves /api/answers. Every route requires authentication.
func MountAnswers(r chi.Router, g Guards, svc *quiz.Service, log logrus.FieldLogger) {
	r.With(g.Perm("answer:submit")).Post("/submit/{questionId}/{attemptId}", func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if !decode(w, r, &req) {
			return
		}
		a, err := svc.Submit(r.Context(), identity(r), param(r, "attemptId"), param(r, "questionId"), req.text())
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	})

	r.With(g.Perm("answer:view-all")).Get("/list/{quizId}/{userId}", func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.StudentAnswers(r.Context(), identity(r), param(r, "quizId"), param(r, "userId"))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	})

	r.With(g.Perm("answer:grade")).Patch("/grade/{answerId}", func(w http.ResponseWriter, r *http.Request) {
		var req gradeAnswerRequest
		if !decode(w, r, &req) {
			return
		}
		a, err := svc.GradeAnswer(r.Context(), identity(r), param(r, "answerId"), *req.Points)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	})
}
