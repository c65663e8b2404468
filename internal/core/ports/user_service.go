package ports

import (
	"context"

	"github.com/comunidadlabs/community-auth/internal/core/domain"
)

// UserService is the remote user-service collaborator. Implementations
// return raw records; callers are expected to normalize them. Login and
// Register fail with *domain.AuthError when credentials are rejected or the
// account already exists.
type UserService interface {
	Login(ctx context.Context, credential, password string) (domain.RawUserRecord, error)
	Register(ctx context.Context, credential, password, name string) (domain.RawUserRecord, error)
	Logout(ctx context.Context) error
	ListUsers(ctx context.Context) ([]domain.RawUserRecord, error)
	UpdateUserRole(ctx context.Context, userID string, role domain.Role) (domain.RawUserRecord, error)
}
