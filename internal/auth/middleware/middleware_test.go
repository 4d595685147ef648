package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/rbac"
)

func newSvc() *AuthService {
	return NewAuthService("access-secret", "refresh-secret", time.Minute, time.Hour)
}

func TestAccessAndRefreshAreNotInterchangeable(t *testing.T) {
	a := newSvc()
	acc, err := a.IssueAccess("u1", rbac.RoleStudent)
	require.NoError(t, err)
	ref, exp, err := a.IssueRefresh("u1", rbac.RoleStudent)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := a.ParseAccess(acc)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.Sub)
	assert.Equal(t, rbac.RoleStudent, c.Role)

	_, err = a.ParseAccess(ref)
	assert.Error(t, err)
	_, err = a.ParseRefresh(acc)
	assert.Error(t, err)
	_, err = a.ParseRefresh(ref)
	assert.NoError(t, err)
}

func TestExpiredAccessToken(t *testing.T) {
	a := newSvc()
	a.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	tok, err := a.IssueAccess("u1", rbac.RoleAdmin)
	require.NoError(t, err)
	a.now = time.Now
	_, err = a.ParseAccess(tok)
	assert.Error(t, err)
}

func TestJWTMiddlewareSetsIdentity(t *testing.T) {
	a := newSvc()
	tok, _ := a.IssueAccess("u9", rbac.RoleInstructor)

	var got rbac.Identity
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = rbac.IdentityFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, rbac.Identity{UserID: "u9", Role: rbac.RoleInstructor}, got)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttachRoleFromDB(t *testing.T) {
	d, err := db.Open(context.Background(), db.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	defer d.Close()
	_, err = d.Exec(`INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		VALUES ('u1', 'ana', 'ana@example.com', 'x', 'INSTRUCTOR', 0, 0)`)
	require.NoError(t, err)

	var got rbac.Identity
	h := AttachRoleFromDB(d, logrus.New())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = rbac.IdentityFromContext(r.Context())
	}))

	call := func(id rbac.Identity) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(rbac.WithIdentity(req.Context(), id))
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call(rbac.Identity{UserID: "u1", Role: rbac.RoleStudent}))
	assert.Equal(t, rbac.RoleInstructor, got.Role)
	assert.Equal(t, http.StatusUnauthorized, call(rbac.Identity{UserID: "ghost", Role: rbac.RoleAdmin}))
}
