package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/comunidadlabs/community-auth/internal/core/domain"
)

func invokeRBAC(t *testing.T, rawRole string, min domain.Role) int {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if rawRole != "" {
		c.Set("role", rawRole)
	}

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	if err := RequireRole(min)(next)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec.Code
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name string
		role string
		min  domain.Role
		want int
	}{
		{"super admin everywhere", "super_admin", domain.RoleSuperAdmin, http.StatusOK},
		{"legacy alias accepted", "superadmin", domain.RoleSuperAdmin, http.StatusOK},
		{"board alias passes board gate", "board", domain.RoleBoardMember, http.StatusOK},
		{"board below super admin", "board_member", domain.RoleSuperAdmin, http.StatusForbidden},
		{"member below board", "member", domain.RoleBoardMember, http.StatusForbidden},
		{"member passes member gate", "member", domain.RoleCommunityMember, http.StatusOK},
		{"unknown role treated as member", "janitor", domain.RoleBoardMember, http.StatusForbidden},
		{"missing claim treated as member", "", domain.RoleBoardMember, http.StatusForbidden},
		{"uppercase alias is not an alias", "SuperAdmin", domain.RoleSuperAdmin, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := invokeRBAC(t, tc.role, tc.min); got != tc.want {
				t.Fatalf("role %q against %s: expected %d, got %d", tc.role, tc.min, tc.want, got)
			}
		})
	}
}
