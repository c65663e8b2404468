// Command authcheck boots the fully wired auth core against the configured
// environment and reports the resulting session state. Point COMMUNITY_API_URL
// at a deployment to verify connectivity, or run it bare to exercise the
// offline mock. Set AUTHCHECK_EMAIL and AUTHCHECK_PASSWORD to also attempt a
// login and a directory listing.
package main

import (
	"context"
	"os"

	"github.com/comunidadlabs/community-auth/internal/app"
	"github.com/comunidadlabs/community-auth/internal/pkg/config"
	"github.com/comunidadlabs/community-auth/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(cfg.LogLevel, cfg.Env == "development", os.Stdout)
	log = log.With().Str("component", "authcheck").Logger()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}
	defer a.Close()

	log.Info().
		Bool("offline", a.Offline()).
		Str("state", string(a.Sessions.State())).
		Msg("auth core ready")

	email, password := os.Getenv("AUTHCHECK_EMAIL"), os.Getenv("AUTHCHECK_PASSWORD")
	if email == "" {
		return
	}

	user, err := a.Sessions.Login(ctx, email, password)
	if err != nil {
		log.Fatal().Err(err).Msg("login failed")
	}
	log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("login ok")

	users, err := a.Sessions.ListUsers(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("directory listing failed")
		return
	}
	log.Info().Int("users", len(users)).Msg("directory listed")
}
