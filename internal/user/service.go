package user

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/courseware/internal/apperr"
	auth "github.com/mind-engage/courseware/internal/auth/middleware"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/rbac"
	"github.com/mind-engage/courseware/internal/storage"
)

type Service struct {
	store      *SQLStore
	tokens     *auth.AuthService
	media      storage.MediaStore
	log        logrus.FieldLogger
	bcryptCost int
	now        func() time.Time
}

func NewService(store *SQLStore, tokens *auth.AuthService, media storage.MediaStore, log logrus.FieldLogger, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{store: store, tokens: tokens, media: media, log: log, bcryptCost: bcryptCost, now: time.Now}
}

// Register creates a STUDENT account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Summary, error) {
	taken, err := s.store.Taken(ctx, in.Username, in.Email, "")
	if err != nil {
		return Summary{}, apperr.Wrap(err, "failed to register user")
	}
	if taken {
		return Summary{}, apperr.Conflict("user already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return Summary{}, apperr.Wrap(err, "failed to register user")
	}
	now := s.now()
	u := User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		Gender:       in.Gender,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         rbac.RoleStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, &u); err != nil {
		return Summary{}, apperr.Wrap(err, "failed to register user")
	}
	s.log.WithField("user_id", u.ID).Info("user registered")
	return u.Summary(), nil
}

// Login checks credentials and issues an access token plus a stored refresh token.
func (s *Service) Login(ctx context.Context, email, password string) (Tokens, error) {
	u, err := s.store.ByEmail(ctx, email)
	if apperr.IsNotFound(err) {
		return Tokens{}, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return Tokens{}, apperr.Wrap(err, "failed to login")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Tokens{}, apperr.Unauthorized("invalid credentials")
	}

	access, err := s.tokens.IssueAccess(u.ID, u.Role)
	if err != nil {
		return Tokens{}, apperr.Wrap(err, "failed to login")
	}
	refresh, exp, err := s.tokens.IssueRefresh(u.ID, u.Role)
	if err != nil {
		return Tokens{}, apperr.Wrap(err, "failed to login")
	}
	if err := s.store.SaveRefreshToken(ctx, u.ID, refresh, exp, s.now()); err != nil {
		return Tokens{}, apperr.Wrap(err, "failed to login")
	}
	return Tokens{AccessToken: access, RefreshToken: refresh, User: u.Summary()}, nil
}

// Refresh exchanges a stored refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return Tokens{}, apperr.Unauthorized("invalid refresh token")
	}
	userID, err := s.store.RefreshTokenOwner(ctx, refreshToken, s.now())
	if err != nil {
		return Tokens{}, apperr.Wrap(err, "failed to refresh token")
	}
	if userID != claims.Sub {
		return Tokens{}, apperr.Unauthorized("invalid refresh token")
	}
	u, err := s.store.ByID(ctx, userID)
	if apperr.IsNotFound(err) {
		return Tokens{}, apperr.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return Tokens{}, apperr.Wrap(err, "failed to refresh token")
	}
	access, err := s.tokens.IssueAccess(u.ID, u.Role)
	if err != nil {
		return Tokens{}, apperr.Wrap(err, "failed to refresh token")
	}
	return Tokens{AccessToken: access, User: u.Summary()}, nil
}

// Logout revokes every refresh token of the caller.
func (s *Service) Logout(ctx context.Context, id rbac.Identity) error {
	return apperr.Wrap(s.store.DeleteRefreshTokens(ctx, id.UserID), "failed to logout")
}

func (s *Service) Profile(ctx context.Context, id rbac.Identity) (User, error) {
	u, err := s.store.ByID(ctx, id.UserID)
	return u, apperr.Wrap(err, "failed to load profile")
}

// EditProfile updates the caller's own profile. Setting username or email to
// the current value is rejected. A new avatar replaces and deletes the old one.
func (s *Service) EditProfile(ctx context.Context, id rbac.Identity, in ProfileInput, avatar *storage.Upload) (User, error) {
	u, err := s.store.ByID(ctx, id.UserID)
	if err != nil {
		return User{}, apperr.Wrap(err, "failed to edit profile")
	}
	if in.Username != nil && *in.Username == u.Username {
		return User{}, apperr.BadRequest("username is same as before")
	}
	if in.Email != nil && *in.Email == u.Email {
		return User{}, apperr.BadRequest("email is same as before")
	}
	if in.Username != nil || in.Email != nil {
		username, email := u.Username, u.Email
		if in.Username != nil {
			username = *in.Username
		}
		if in.Email != nil {
			email = *in.Email
		}
		taken, err := s.store.Taken(ctx, username, email, u.ID)
		if err != nil {
			return User{}, apperr.Wrap(err, "failed to edit profile")
		}
		if taken {
			return User{}, apperr.Conflict("username or email already in use")
		}
		u.Username, u.Email = username, email
	}
	set(&u.FirstName, in.FirstName)
	set(&u.LastName, in.LastName)
	set(&u.Bio, in.Bio)
	set(&u.Phone, in.Phone)

	oldRef := ""
	if avatar != nil {
		url, ref, err := s.media.Upload(ctx, storage.FolderAvatars, avatar.Filename, avatar.Body)
		if err != nil {
			return User{}, apperr.Internal(err, "failed to upload avatar")
		}
		oldRef = u.AvatarRef
		u.Avatar, u.AvatarRef = url, ref
	}
	u.UpdatedAt = s.now()
	if err := s.store.Update(ctx, u); err != nil {
		return User{}, apperr.Wrap(err, "failed to edit profile")
	}
	if oldRef != "" {
		if err := s.media.Delete(ctx, oldRef); err != nil {
			s.log.WithError(err).WithField("ref", oldRef).Warn("old avatar not deleted")
		}
	}
	return u, nil
}

// SetRole changes a user's role. Admin only; this is how instructors are made.
func (s *Service) SetRole(ctx context.Context, id rbac.Identity, userID, role string) (Summary, error) {
	if !id.IsAdmin() {
		return Summary{}, apperr.Forbidden("only admins can change roles")
	}
	if !rbac.ValidRole(role) {
		return Summary{}, apperr.BadRequest("invalid role: %s", role)
	}
	u, err := s.store.ByID(ctx, userID)
	if err != nil {
		return Summary{}, apperr.Wrap(err, "failed to set role")
	}
	if u.Role == rbac.RoleAdmin && role != rbac.RoleAdmin {
		n, err := s.store.CountRole(ctx, rbac.RoleAdmin)
		if err != nil {
			return Summary{}, apperr.Wrap(err, "failed to set role")
		}
		if n <= 1 {
			return Summary{}, apperr.BadRequest("cannot demote the last admin")
		}
	}
	u.Role = role
	u.UpdatedAt = s.now()
	if err := s.store.Update(ctx, u); err != nil {
		return Summary{}, apperr.Wrap(err, "failed to set role")
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": role, "by": id.UserID}).Info("role changed")
	return u.Summary(), nil
}

// ChangePassword replaces the caller's password after checking the old one.
// Every refresh token of the user is revoked.
func (s *Service) ChangePassword(ctx context.Context, id rbac.Identity, oldPassword, newPassword string) error {
	u, err := s.store.ByID(ctx, id.UserID)
	if err != nil {
		return apperr.Wrap(err, "failed to change password")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return apperr.Forbidden("incorrect old password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return apperr.Wrap(err, "failed to change password")
	}
	if err := s.store.SetPassword(ctx, u.ID, string(hash), s.now()); err != nil {
		return apperr.Wrap(err, "failed to change password")
	}
	if err := s.store.DeleteRefreshTokens(ctx, u.ID); err != nil {
		return apperr.Wrap(err, "failed to change password")
	}
	s.log.WithField("user_id", u.ID).Info("password changed")
	return nil
}

// ListUsers pages through accounts for admins, optionally by role.
func (s *Service) ListUsers(ctx context.Context, id rbac.Identity, role, search string, page db.Page) (db.Paged[User], error) {
	if !id.IsAdmin() {
		return db.Paged[User]{}, apperr.Forbidden("only admins can list users")
	}
	if role != "" && !rbac.ValidRole(role) {
		return db.Paged[User]{}, apperr.BadRequest("invalid role: %s", role)
	}
	items, total, err := s.store.List(ctx, role, search, page)
	if err != nil {
		return db.Paged[User]{}, apperr.Wrap(err, "failed to list users")
	}
	return db.NewPaged(items, page, total), nil
}

// Export gathers a user's profile and activity. Admin only.
func (s *Service) Export(ctx context.Context, id rbac.Identity, userID string) (Export, error) {
	if !id.IsAdmin() {
		return Export{}, apperr.Forbidden("only admins can export user data")
	}
	u, err := s.store.ByID(ctx, userID)
	if err != nil {
		return Export{}, apperr.Wrap(err, "failed to export user")
	}
	e, err := s.store.Activity(ctx, u.ID)
	if err != nil {
		return Export{}, apperr.Wrap(err, "failed to export user")
	}
	e.User = u
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "by": id.UserID}).Info("user data exported")
	return e, nil
}

// SeedAdmin creates the bootstrap admin when no user has email.
func (s *Service) SeedAdmin(ctx context.Context, email, passHash string) error {
	if email == "" || passHash == "" {
		s.log.Warn("admin seed skipped: ADMIN_EMAIL or ADMIN_PASS_HASH not set")
		return nil
	}
	_, err := s.store.ByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !apperr.IsNotFound(err) {
		return err
	}
	now := s.now()
	u := User{Username: "admin", Email: email, PasswordHash: passHash, Role: rbac.RoleAdmin, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Create(ctx, &u); err != nil {
		return err
	}
	s.log.WithField("email", email).Info("admin account seeded")
	return nil
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
