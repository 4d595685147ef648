package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/courseware/internal/rbac"
)

const issuer = "courseware"

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var ErrWrongTokenKind = errors.New("auth: wrong token kind")

type AuthService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *AuthService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		accessKey:  []byte(accessSecret),
		refreshKey: []byte(refreshSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// IssueAccess returns a short-lived access token for sub.
func (a *AuthService) IssueAccess(sub, role string) (string, error) {
	tok, _, err := a.issue(sub, role, kindAccess, a.accessKey, a.accessTTL)
	return tok, err
}

// IssueRefresh returns a refresh token and its expiry.
func (a *AuthService) IssueRefresh(sub, role string) (string, time.Time, error) {
	return a.issue(sub, role, kindRefresh, a.refreshKey, a.refreshTTL)
}

func (a *AuthService) issue(sub, role, kind string, key []byte, ttl time.Duration) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(ttl)
	claims := &Claims{
		Sub:  sub,
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return s, exp, nil
}

func (a *AuthService) ParseAccess(tokenStr string) (*Claims, error) {
	return a.parse(tokenStr, kindAccess, a.accessKey)
}

func (a *AuthService) ParseRefresh(tokenStr string) (*Claims, error) {
	return a.parse(tokenStr, kindRefresh, a.refreshKey)
}

func (a *AuthService) parse(tokenStr, kind string, key []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if c.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	return c, nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"message": msg, "status": http.StatusUnauthorized})
}

// JWTMiddleware requires a valid bearer access token and stores the caller's
// rbac.Identity in the request context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}
			c, err := a.ParseAccess(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}
			ctx := rbac.WithIdentity(r.Context(), rbac.Identity{UserID: c.Sub, Role: c.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWT attaches the identity of a valid bearer token when one is sent
// and lets anonymous requests through unchanged.
func OptionalJWT(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if strings.HasPrefix(h, "Bearer ") {
				if c, err := a.ParseAccess(strings.TrimPrefix(h, "Bearer ")); err == nil {
					r = r.WithContext(rbac.WithIdentity(r.Context(), rbac.Identity{UserID: c.Sub, Role: c.Role}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
