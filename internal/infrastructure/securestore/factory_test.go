package securestore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/comunidadlabs/community-auth/internal/pkg/config"
)

func TestOpen_FileBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store = config.StoreConfig{Backend: "file", Dir: t.TempDir(), Passphrase: "test-passphrase"}

	store, closeFn, err := Open(context.Background(), cfg, zerolog.Nop())
	defer closeFn()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx := context.Background()
	if err := store.SetToken(ctx, "tok"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	token, err := store.Token(ctx)
	if err != nil || token != "tok" {
		t.Fatalf("round trip failed: %q (%v)", token, err)
	}
}

func TestOpen_RedisBackend(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Store = config.StoreConfig{Backend: "redis", Passphrase: "test-passphrase"}
	cfg.Redis = config.RedisConfig{Addr: srv.Addr()}

	store, closeFn, err := Open(context.Background(), cfg, zerolog.Nop())
	defer closeFn()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.SetToken(context.Background(), "tok"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store = config.StoreConfig{Backend: "etcd", Passphrase: "test-passphrase"}

	if _, closeFn, err := Open(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown backend")
	} else {
		closeFn()
	}
}
