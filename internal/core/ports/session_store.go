package ports

import (
	"context"

	"github.com/comunidadlabs/community-auth/internal/core/domain"
)

// SessionStore is the durable, encrypted mirror of the in-memory auth state.
// Token, user data and settings are independently readable and writable but
// are cleared together on logout.
type SessionStore interface {
	SetToken(ctx context.Context, token string) error
	Token(ctx context.Context) (string, error)
	RemoveToken(ctx context.Context) error

	SetUserData(ctx context.Context, user domain.StoredUser) error
	// UserData returns nil without error when no user is stored or when the
	// stored entry is corrupt; corrupt entries are deleted on read.
	UserData(ctx context.Context) (*domain.StoredUser, error)

	SetAppSettings(ctx context.Context, patch domain.AppSettingsPatch) error
	AppSettings(ctx context.Context) (domain.AppSettings, error)

	ClearAll(ctx context.Context) error
	IsAuthenticated(ctx context.Context) (bool, error)
}
