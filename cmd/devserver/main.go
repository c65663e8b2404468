// Command devserver runs a local HTTP stand-in for the production community
// backend, serving the offline mock dataset. Point COMMUNITY_API_URL at it
// to exercise the auth core against a real transport.
package main

import (
	"errors"
	"net/http"
	"os"

	"github.com/comunidadlabs/community-auth/internal/api"
	"github.com/comunidadlabs/community-auth/internal/infrastructure/remote"
	"github.com/comunidadlabs/community-auth/internal/pkg/config"
	"github.com/comunidadlabs/community-auth/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(cfg.LogLevel, cfg.Env == "development", os.Stdout)
	log = log.With().Str("component", "devserver").Logger()

	mock := remote.NewMock(cfg.JWTSecret)
	e := api.NewRouter(mock, cfg.JWTSecret, log)

	log.Info().Str("port", cfg.Port).Msg("development user service listening")
	if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
