package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerWildcards(t *testing.T) {
	c := NewChecker(nil)
	if !c.Has(RoleAdmin, "anything:at-all") {
		t.Fatal("admin should have everything")
	}
	if !c.Has(RoleStudent, "profile:edit") {
		t.Fatal("profile:* should match profile:edit")
	}
	if c.Has(RoleStudent, "course:create") {
		t.Fatal("student must not create courses")
	}
	if c.Has("GUEST", "profile:view") {
		t.Fatal("unknown role has no permissions")
	}
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require("course:create")(ok)

	cases := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"anonymous", context.Background(), http.StatusUnauthorized},
		{"student", WithIdentity(context.Background(), Identity{UserID: "u1", Role: RoleStudent}), http.StatusForbidden},
		{"instructor", WithIdentity(context.Background(), Identity{UserID: "u2", Role: RoleInstructor}), http.StatusNoContent},
		{"admin", WithIdentity(context.Background(), Identity{UserID: "u3", Role: RoleAdmin}), http.StatusNoContent},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(tc.ctx)
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireRole(RoleAdmin)(ok)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "i", Role: RoleInstructor}))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d", rec.Code)
	}
}
