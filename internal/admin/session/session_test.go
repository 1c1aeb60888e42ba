package session_test

import (
	"testing"

	"github.com/userdeck/userdeck/internal/admin/session"
	"github.com/userdeck/userdeck/internal/domain/user"
)

func TestSessionLifecycle(t *testing.T) {
	s := session.New()

	if _, ok := s.Current(); ok {
		t.Fatal("a fresh session should have no user")
	}

	if s.IsAdmin() {
		t.Fatal("a fresh session should not be admin")
	}

	s.Set(user.User{ID: 1, Email: "admin@example.com", Role: user.RoleAdmin, Active: true})

	got, ok := s.Current()

	if !ok || got.Email != "admin@example.com" {
		t.Fatalf("got user %+v ok=%t, want the admin", got, ok)
	}

	if !s.IsAdmin() {
		t.Fatal("expected IsAdmin after setting an admin user")
	}

	s.Clear()

	if _, ok := s.Current(); ok {
		t.Fatal("Clear should drop the user")
	}

	if s.IsAdmin() {
		t.Fatal("Clear should drop admin status")
	}
}

func TestSessionNonAdminRoles(t *testing.T) {
	tests := []struct {
		name string
		role user.Role
		want bool
	}{
		{name: "admin", role: user.RoleAdmin, want: true},
		{name: "user", role: user.RoleUser, want: false},
		{name: "guest", role: user.RoleGuest, want: false},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			s := session.New()
			s.Set(user.User{ID: 1, Role: tt.role})

			if got := s.IsAdmin(); got != tt.want {
				t.Fatalf("got IsAdmin()=%t for role %s, want %t", got, tt.role, tt.want)
			}
		})
	}
}

func TestSessionCopiesUser(t *testing.T) {
	s := session.New()

	u := user.User{ID: 1, Email: "original@example.com", Role: user.RoleAdmin}
	s.Set(u)

	// mutating the caller's copy must not leak into the session
	u.Email = "mutated@example.com"

	got, _ := s.Current()

	if got.Email != "original@example.com" {
		t.Fatalf("session leaked a shared reference, got %q", got.Email)
	}
}
