package securestore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	dbmongo "github.com/comunidadlabs/community-auth/internal/infrastructure/db/mongo"
	dbredis "github.com/comunidadlabs/community-auth/internal/infrastructure/db/redis"
	"github.com/comunidadlabs/community-auth/internal/pkg/config"
)

// Open builds a Store from configuration, selecting the backend named by
// STORE_BACKEND. The returned close function releases any backend connection
// and is never nil.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, func(), error) {
	noop := func() {}

	switch cfg.Store.Backend {
	case "file":
		backend, err := NewFileBackend(cfg.Store.Dir)
		if err != nil {
			return nil, noop, err
		}
		store, err := New(backend, cfg.Store.Passphrase, log)
		return store, noop, err

	case "redis":
		client, err := dbredis.Connect(ctx, dbredis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, noop, err
		}
		store, err := New(NewRedisBackend(client), cfg.Store.Passphrase, log)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return store, func() { _ = client.Close() }, nil

	case "mongo":
		client, db, err := dbmongo.Connect(ctx, dbmongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		store, err := New(NewMongoBackend(db), cfg.Store.Passphrase, log)
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		return store, closeFn, nil

	default:
		return nil, noop, fmt.Errorf("securestore: unknown backend %q", cfg.Store.Backend)
	}
}
