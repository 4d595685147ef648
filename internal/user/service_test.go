package user

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/courseware/internal/apperr"
	auth "github.com/mind-engage/courseware/internal/auth/middleware"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/db/dbtest"
	"github.com/mind-engage/courseware/internal/logging"
	"github.com/mind-engage/courseware/internal/rbac"
	"github.com/mind-engage/courseware/internal/storage"
)

func newService(t *testing.T) *Service {
	t.Helper()
	media, err := storage.NewFSStore(t.TempDir(), "/media")
	require.NoError(t, err)
	tokens := auth.NewAuthService("a", "r", time.Minute, time.Hour)
	return NewService(NewSQLStore(dbtest.Open(t)), tokens, media, logging.Discard(), bcrypt.MinCost)
}

func register(t *testing.T, s *Service, name string) Summary {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{
		FirstName: "F", LastName: "L", Username: name, Email: name + "@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	u := register(t, s, "ana")
	assert.Equal(t, rbac.RoleStudent, u.Role)

	_, err := s.Register(ctx, RegisterInput{Username: "other", Email: "ana@example.com", Password: "secret123"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	tok, err := s.Login(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	assert.NotEmpty(t, tok.RefreshToken)
	assert.Equal(t, u.ID, tok.User.ID)

	_, err = s.Login(ctx, "ana@example.com", "wrong")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = s.Login(ctx, "nobody@example.com", "secret123")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestRefreshAndLogout(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	u := register(t, s, "ben")
	tok, err := s.Login(ctx, "ben@example.com", "secret123")
	require.NoError(t, err)

	fresh, err := s.Refresh(ctx, tok.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)

	_, err = s.Refresh(ctx, tok.AccessToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	require.NoError(t, s.Logout(ctx, rbac.Identity{UserID: u.ID, Role: u.Role}))
	_, err = s.Refresh(ctx, tok.RefreshToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestEditProfile(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	u := register(t, s, "cara")
	register(t, s, "dan")
	id := rbac.Identity{UserID: u.ID, Role: u.Role}

	same := "cara"
	_, err := s.EditProfile(ctx, id, ProfileInput{Username: &same}, nil)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	taken := "dan"
	_, err = s.EditProfile(ctx, id, ProfileInput{Username: &taken}, nil)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	bio := "hello"
	got, err := s.EditProfile(ctx, id, ProfileInput{Bio: &bio}, &storage.Upload{Filename: "me.jpg", Body: strings.NewReader("jpg")})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Bio)
	assert.True(t, strings.HasPrefix(got.Avatar, "/media/avatars/"))

	again, err := s.EditProfile(ctx, id, ProfileInput{}, &storage.Upload{Filename: "me2.jpg", Body: strings.NewReader("jpg")})
	require.NoError(t, err)
	assert.NotEqual(t, got.AvatarRef, again.AvatarRef)
}

func TestSetRoleAdminOnly(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	u := register(t, s, "eve")

	_, err := s.SetRole(ctx, rbac.Identity{UserID: u.ID, Role: rbac.RoleStudent}, u.ID, rbac.RoleAdmin)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	admin := rbac.Identity{UserID: "root", Role: rbac.RoleAdmin}
	_, err = s.SetRole(ctx, admin, u.ID, "OWNER")
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	_, err = s.SetRole(ctx, admin, "missing", rbac.RoleInstructor)
	assert.True(t, apperr.IsNotFound(err))

	got, err := s.SetRole(ctx, admin, u.ID, rbac.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleInstructor, got.Role)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("root-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, s.SeedAdmin(ctx, "root@example.com", string(hash)))
	require.NoError(t, s.SeedAdmin(ctx, "root@example.com", string(hash)))

	tok, err := s.Login(ctx, "root@example.com", "root-pass")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, tok.User.Role)
}

func TestSetRoleKeepsLastAdmin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("root-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.SeedAdmin(ctx, "root@example.com", string(hash)))
	root, err := s.store.ByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	admin := rbac.Identity{UserID: root.ID, Role: rbac.RoleAdmin}

	_, err = s.SetRole(ctx, admin, root.ID, rbac.RoleStudent)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	u := register(t, s, "bob")
	_, err = s.SetRole(ctx, admin, u.ID, rbac.RoleAdmin)
	require.NoError(t, err)
	got, err := s.SetRole(ctx, admin, root.ID, rbac.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleStudent, got.Role)
}

func TestChangePassword(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	u := register(t, s, "carol")
	id := rbac.Identity{UserID: u.ID, Role: u.Role}
	tok, err := s.Login(ctx, "carol@example.com", "secret123")
	require.NoError(t, err)

	err = s.ChangePassword(ctx, id, "wrong", "n3w-secret")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	require.NoError(t, s.ChangePassword(ctx, id, "secret123", "n3w-secret"))
	_, err = s.Login(ctx, "carol@example.com", "secret123")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = s.Login(ctx, "carol@example.com", "n3w-secret")
	assert.NoError(t, err)

	// the old session's refresh token no longer works
	_, err = s.Refresh(ctx, tok.RefreshToken)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestListUsers(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	for _, name := range []string{"dave", "dana", "zoe"} {
		register(t, s, name)
	}
	admin := rbac.Identity{UserID: "root", Role: rbac.RoleAdmin}

	_, err := s.ListUsers(ctx, rbac.Identity{UserID: "x", Role: rbac.RoleInstructor}, "", "", db.NewPage(1, 10))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = s.ListUsers(ctx, admin, "OWNER", "", db.NewPage(1, 10))
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	page, err := s.ListUsers(ctx, admin, rbac.RoleStudent, "DA", db.NewPage(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalItems)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "dana", page.Items[0].Username)

	page, err = s.ListUsers(ctx, admin, rbac.RoleInstructor, "", db.NewPage(1, 10))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
