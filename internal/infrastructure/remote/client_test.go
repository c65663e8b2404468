package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/comunidadlabs/community-auth/internal/api"
	"github.com/comunidadlabs/community-auth/internal/core/domain"
)

// devServer spins up the development user service over a fresh mock.
func devServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api.NewRouter(NewMock("secret"), "secret", zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Login_AgainstDevServer(t *testing.T) {
	srv := devServer(t)
	client := NewClient(srv.URL)

	record, err := client.Login(context.Background(), "bruno@comunidad.app", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if record.Token == "" {
		t.Fatalf("expected token merged into record")
	}
	if record.Role != "board" {
		t.Fatalf("raw record should keep the backend's alias, got %q", record.Role)
	}
}

func TestClient_Login_Rejected(t *testing.T) {
	srv := devServer(t)
	client := NewClient(srv.URL)

	_, err := client.Login(context.Background(), "bruno@comunidad.app", "wrong")
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestClient_RedirectTreatedAsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "https://portal.example.net/login")
		w.WriteHeader(http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL)
	_, err := client.Login(context.Background(), "ana@comunidad.app", "password123")
	if err == nil {
		t.Fatalf("redirect should not pass as success")
	}
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		t.Fatalf("redirect is a transport-class failure, not a rejection: %v", err)
	}
}

func TestClient_Register_Duplicate(t *testing.T) {
	srv := devServer(t)
	client := NewClient(srv.URL)

	_, err := client.Register(context.Background(), "ana@comunidad.app", "password123", "Ana")
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists cause, got %v", err)
	}
}

func TestClient_ListUsers_WithTokenSource(t *testing.T) {
	srv := devServer(t)

	login := NewClient(srv.URL)
	record, err := login.Login(context.Background(), "ana@comunidad.app", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	client := NewClient(srv.URL, WithTokenSource(func(context.Context) (string, error) {
		return record.Token, nil
	}))
	records, err := client.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 seeded users, got %d", len(records))
	}
}

func TestClient_ListUsers_Unauthenticated(t *testing.T) {
	srv := devServer(t)
	client := NewClient(srv.URL)

	_, err := client.ListUsers(context.Background())
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for missing token, got %v", err)
	}
}

func TestClient_UpdateUserRole_RoleGate(t *testing.T) {
	srv := devServer(t)
	ctx := context.Background()

	login := NewClient(srv.URL)
	member, err := login.Login(ctx, "carla@comunidad.app", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	admin, err := login.Login(ctx, "ana@comunidad.app", "password123")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}

	// A community member may not change roles.
	asMember := NewClient(srv.URL, WithTokenSource(func(context.Context) (string, error) {
		return member.Token, nil
	}))
	if _, err := asMember.UpdateUserRole(ctx, member.ID, domain.RoleBoardMember); err == nil {
		t.Fatalf("expected role gate to reject a community member")
	}

	// A super admin may.
	asAdmin := NewClient(srv.URL, WithTokenSource(func(context.Context) (string, error) {
		return admin.Token, nil
	}))
	updated, err := asAdmin.UpdateUserRole(ctx, member.ID, domain.RoleBoardMember)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Role != "board_member" {
		t.Fatalf("expected board_member, got %q", updated.Role)
	}
}
