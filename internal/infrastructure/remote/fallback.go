// Package remote implements the user-service port three ways: an HTTP
// client for the production API, an in-memory mock for offline work, and a
// fallback wrapper that degrades from one to the other.
package remote

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/comunidadlabs/community-auth/internal/api/metrics"
	"github.com/comunidadlabs/community-auth/internal/core/domain"
	"github.com/comunidadlabs/community-auth/internal/core/ports"
)

// Fallback serves every call from the primary client and retries against the
// mock when the primary is unreachable. Credential rejections (AuthError)
// pass through untouched; only transport-level failures trigger the mock.
// With a nil primary the mock is pinned for the process lifetime.
type Fallback struct {
	primary ports.UserService
	mock    *Mock
	log     zerolog.Logger
}

// NewFallback wires primary and mock. Pass a nil primary (missing or
// placeholder base URL) to run permanently offline.
func NewFallback(primary ports.UserService, mock *Mock, log zerolog.Logger) *Fallback {
	return &Fallback{primary: primary, mock: mock, log: log}
}

func (f *Fallback) Login(ctx context.Context, credential, password string) (domain.RawUserRecord, error) {
	if f.primary == nil {
		return f.mock.Login(ctx, credential, password)
	}
	record, err := f.primary.Login(ctx, credential, password)
	if f.shouldFallback(err, "login") {
		return f.mock.Login(ctx, credential, password)
	}
	return record, err
}

func (f *Fallback) Register(ctx context.Context, credential, password, name string) (domain.RawUserRecord, error) {
	if f.primary == nil {
		return f.mock.Register(ctx, credential, password, name)
	}
	record, err := f.primary.Register(ctx, credential, password, name)
	if f.shouldFallback(err, "register") {
		return f.mock.Register(ctx, credential, password, name)
	}
	return record, err
}

func (f *Fallback) Logout(ctx context.Context) error {
	if f.primary == nil {
		return f.mock.Logout(ctx)
	}
	err := f.primary.Logout(ctx)
	if f.shouldFallback(err, "logout") {
		return f.mock.Logout(ctx)
	}
	return err
}

func (f *Fallback) ListUsers(ctx context.Context) ([]domain.RawUserRecord, error) {
	if f.primary == nil {
		return f.mock.ListUsers(ctx)
	}
	records, err := f.primary.ListUsers(ctx)
	if f.shouldFallback(err, "list_users") {
		return f.mock.ListUsers(ctx)
	}
	return records, err
}

func (f *Fallback) UpdateUserRole(ctx context.Context, userID string, role domain.Role) (domain.RawUserRecord, error) {
	if f.primary == nil {
		return f.mock.UpdateUserRole(ctx, userID, role)
	}
	record, err := f.primary.UpdateUserRole(ctx, userID, role)
	if f.shouldFallback(err, "update_user_role") {
		return f.mock.UpdateUserRole(ctx, userID, role)
	}
	return record, err
}

// shouldFallback decides whether err means "service unreachable". Rejections
// carry meaning and must reach the caller as-is.
func (f *Fallback) shouldFallback(err error, operation string) bool {
	if err == nil {
		return false
	}
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return false
	}
	metrics.RemoteFallbackTotal.WithLabelValues(operation).Inc()
	f.log.Warn().Err(err).Str("operation", operation).Msg("remote user service unreachable, using mock")
	return true
}
