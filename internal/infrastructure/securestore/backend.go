package securestore

import (
	"context"
	"errors"
)

// Storage keys. The three-way split (token / user / settings) is contractual;
// the names themselves are internal.
const (
	keyToken    = "auth_token"
	keyUserData = "user_data"
	keySettings = "app_settings"
)

// ErrKeyNotFound is returned by a Backend when no value exists for a key.
var ErrKeyNotFound = errors.New("key not found")

// Backend is a minimal key-value device for the secure store. Values are
// already encrypted by the time they reach a backend.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes a key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
