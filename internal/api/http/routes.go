package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/assignment"
	auth "github.com/mind-engage/courseware/internal/auth/middleware"
	"github.com/mind-engage/courseware/internal/course"
	"github.com/mind-engage/courseware/internal/quiz"
	"github.com/mind-engage/courseware/internal/rbac"
	"github.com/mind-engage/courseware/internal/storage"
	"github.com/mind-engage/courseware/internal/user"
)

// Guards are the middlewares a route can require.
type Guards struct {
	// Authed needs a valid token of an existing user; the role comes from
	// the database.
	Authed func(http.Handler) http.Handler
	// Optional attaches an identity when a valid token is sent.
	Optional func(http.Handler) http.Handler
	Admin    func(http.Handler) http.Handler
}

// NewGuards builds the guards on top of the JWT service.
func NewGuards(a *auth.AuthService, db *sql.DB, log logrus.FieldLogger) Guards {
	jwt, role := auth.JWTMiddleware(a), auth.AttachRoleFromDB(db, log)
	authed := func(next http.Handler) http.Handler { return jwt(role(next)) }
	return Guards{
		Authed:   authed,
		Optional: auth.OptionalJWT(a),
		Admin:    func(next http.Handler) http.Handler { return authed(rbac.RequireRole(rbac.RoleAdmin)(next)) },
	}
}

// Perm requires authentication and the permission.
func (g Guards) Perm(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return g.Authed(rbac.Require(perm)(next)) }
}

// Deps is everything the API handlers need.
type Deps struct {
	Users       *user.Service
	Courses     *course.Service
	Quizzes     *quiz.Service
	Assignments *assignment.Service
	Media       storage.MediaStore
	Guards      Guards
	Log         logrus.FieldLogger
	MaxUpload   int64 // bytes
}

// Routes returns the API router, to be mounted at /api.
func Routes(d Deps) chi.Router {
	g, log := d.Guards, d.Log
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) { MountAuth(r, g, d.Users, log) })
	r.Route("/user", func(r chi.Router) {
		r.Use(g.Authed)
		MountUsers(r, d.Users, d.MaxUpload, log)
	})
	r.Route("/users", func(r chi.Router) {
		r.Use(g.Admin)
		MountAdminUsers(r, d.Users, log)
	})
	r.Route("/categories", func(r chi.Router) { MountCategories(r, g, d.Courses, log) })
	r.Route("/courses", func(r chi.Router) { MountCourses(r, g, d.Courses, d.MaxUpload, log) })
	r.Route("/modules", func(r chi.Router) { MountModules(r, g, d.Courses, log) })
	r.Route("/contents", func(r chi.Router) { MountContents(r, g, d.Courses, d.MaxUpload, log) })
	r.Route("/enrollments", func(r chi.Router) { MountEnrollments(r, g, d.Courses, log) })
	r.Route("/quizzes", func(r chi.Router) { MountQuizzes(r, g, d.Quizzes, log) })
	r.Route("/questions", func(r chi.Router) { MountQuestions(r, g, d.Quizzes, log) })
	r.Route("/attempts", func(r chi.Router) { MountAttempts(r, g, d.Quizzes, log) })
	r.Route("/answers", func(r chi.Router) { MountAnswers(r, g, d.Quizzes, log) })
	r.Route("/assignments", func(r chi.Router) { MountAssignments(r, g, d.Assignments, log) })
	r.Route("/submissions", func(r chi.Router) { MountSubmissions(r, g, d.Assignments, log) })
	r.Route("/media", func(r chi.Router) { MountMedia(r, g, d.Media, d.MaxUpload, log) })

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "route not found", Status: http.StatusNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "method not allowed", Status: http.StatusMethodNotAllowed})
	})
	return r
}
