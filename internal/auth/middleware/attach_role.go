package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/rbac"
)

// AttachRoleFromDB replaces the role carried by the token with the user's
// stored role, so a role change applies without re-login. Tokens of deleted
// users are rejected.
func AttachRoleFromDB(db *sql.DB, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := rbac.IdentityFromContext(ctx)
			if !ok {
				unauthorized(w, "authentication required")
				return
			}

			var role string
			err := db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id.UserID).Scan(&role)
			switch {
			case err == nil:
				id.Role = role
				next.ServeHTTP(w, r.WithContext(rbac.WithIdentity(ctx, id)))
			case errors.Is(err, sql.ErrNoRows):
				unauthorized(w, "user no longer exists")
			default:
				log.WithError(err).WithField("user_id", id.UserID).Error("role lookup failed")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"message":"internal server error","status":500}`))
			}
		})
	}
}
