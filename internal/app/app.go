// Package app is the composition root of the auth core. It evaluates the
// configuration once at startup: the remote base URL decides between the
// HTTP client and the pinned offline mock, the store settings pick the
// secure-store backend, and ownership of the in-memory session is handed to
// a single SessionManager.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/comunidadlabs/community-auth/internal/core/ports"
	"github.com/comunidadlabs/community-auth/internal/core/service"
	"github.com/comunidadlabs/community-auth/internal/infrastructure/remote"
	"github.com/comunidadlabs/community-auth/internal/infrastructure/securestore"
	"github.com/comunidadlabs/community-auth/internal/pkg/config"
)

// App bundles the wired auth core. Sessions is the sole owner and mutator of
// the in-memory auth state; Users and Store are exposed for direct reads.
type App struct {
	Users    ports.UserService
	Store    *securestore.Store
	Sessions *service.SessionManager

	offline bool
	close   func()
}

// New wires the auth core from cfg and restores any persisted session. The
// base URL is evaluated exactly once: when it is missing or an example.com
// placeholder, the offline mock is pinned for the process lifetime; otherwise
// the HTTP client is primary and the mock only serves transport failures.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	store, closeStore, err := securestore.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var primary ports.UserService
	offline := !remote.UsableBaseURL(cfg.APIBaseURL)
	if offline {
		log.Info().Str("base_url", cfg.APIBaseURL).Msg("no usable remote user service, mock pinned")
	} else {
		primary = remote.NewClient(cfg.APIBaseURL,
			remote.WithTimeout(cfg.RequestTimeout),
			remote.WithTokenSource(store.Token),
		)
	}
	users := remote.NewFallback(primary, remote.NewMock(cfg.JWTSecret), log)

	sessions := service.NewSessionManager(users, store, log, service.Options{})
	sessions.Initialize(ctx)

	return &App{
		Users:    users,
		Store:    store,
		Sessions: sessions,
		offline:  offline,
		close:    closeStore,
	}, nil
}

// Offline reports whether the mock is pinned for the process lifetime.
func (a *App) Offline() bool {
	return a.offline
}

// Close releases the store backend connection.
func (a *App) Close() {
	a.close()
}
