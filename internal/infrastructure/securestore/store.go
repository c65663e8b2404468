// Package securestore implements the encrypted session store: three logical
// entries (auth token, user data, app settings) sealed with
// ChaCha20-Poly1305 over a pluggable key-value backend.
//
// Reads never fail on corruption: an entry that cannot be decrypted or
// parsed is deleted and reported as absent, so a damaged store degrades to
// a logged-out state instead of crashing the caller.
package securestore

import (
	"context"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/comunidadlabs/community-auth/internal/api/metrics"
	"github.com/comunidadlabs/community-auth/internal/core/domain"
)

// StorageError wraps a backend failure, carrying the name of the store
// operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("securestore: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store is the secure session store.
type Store struct {
	backend  Backend
	aead     cipher.AEAD
	validate *validator.Validate
	log      zerolog.Logger
}

// New builds a Store over backend, deriving the encryption key from
// passphrase.
func New(backend Backend, passphrase string, log zerolog.Logger) (*Store, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("securestore: %w: empty passphrase", domain.ErrInvalidArgument)
	}
	aead, err := newAEAD(passphrase)
	if err != nil {
		return nil, fmt.Errorf("securestore: %w", err)
	}
	return &Store{
		backend:  backend,
		aead:     aead,
		validate: validator.New(),
		log:      log,
	}, nil
}

// SetToken overwrites the stored auth token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", domain.ErrInvalidArgument)
	}
	return s.put(ctx, "set_token", keyToken, []byte(token))
}

// Token returns the stored auth token, or "" when none is present.
func (s *Store) Token(ctx context.Context) (string, error) {
	plaintext, err := s.get(ctx, "get_token", keyToken)
	if err != nil || plaintext == nil {
		return "", err
	}
	return string(plaintext), nil
}

// RemoveToken deletes the stored auth token.
func (s *Store) RemoveToken(ctx context.Context) error {
	if err := s.backend.Delete(ctx, keyToken); err != nil {
		return &StorageError{Op: "remove_token", Err: err}
	}
	return nil
}

// SetUserData overwrites the stored user record. The record must carry the
// identity fields (id, email) or the call fails with ErrInvalidArgument.
func (s *Store) SetUserData(ctx context.Context, user domain.StoredUser) error {
	if err := s.validate.Struct(user); err != nil {
		return fmt.Errorf("%w: malformed user data: %v", domain.ErrInvalidArgument, err)
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return &StorageError{Op: "set_user_data", Err: err}
	}
	return s.put(ctx, "set_user_data", keyUserData, payload)
}

// UserData returns the stored user record, nil when absent. A record that
// fails to decrypt, parse, or that lacks its identity fields is deleted and
// reported as absent.
func (s *Store) UserData(ctx context.Context) (*domain.StoredUser, error) {
	plaintext, err := s.get(ctx, "get_user_data", keyUserData)
	if err != nil || plaintext == nil {
		return nil, err
	}
	var user domain.StoredUser
	if err := json.Unmarshal(plaintext, &user); err != nil {
		s.healCorrupt(ctx, keyUserData, err)
		return nil, nil
	}
	if user.ID == "" || user.Email == "" {
		s.healCorrupt(ctx, keyUserData, errors.New("missing identity fields"))
		return nil, nil
	}
	return &user, nil
}

// SetAppSettings merges patch into the stored settings.
func (s *Store) SetAppSettings(ctx context.Context, patch domain.AppSettingsPatch) error {
	current, err := s.AppSettings(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(patch.Apply(current))
	if err != nil {
		return &StorageError{Op: "set_app_settings", Err: err}
	}
	return s.put(ctx, "set_app_settings", keySettings, payload)
}

// AppSettings returns the stored settings with defaults applied for any
// never-set field. Corrupt entries are deleted and replaced by defaults.
func (s *Store) AppSettings(ctx context.Context) (domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()
	plaintext, err := s.get(ctx, "get_app_settings", keySettings)
	if err != nil || plaintext == nil {
		return defaults, err
	}
	var stored domain.AppSettingsPatch
	if err := json.Unmarshal(plaintext, &stored); err != nil {
		s.healCorrupt(ctx, keySettings, err)
		return defaults, nil
	}
	return stored.Apply(defaults), nil
}

// ClearAll removes token, user data and settings. The token falls first, so
// a partially failed clear is never observed as an authenticated session.
func (s *Store) ClearAll(ctx context.Context) error {
	for _, key := range []string{keyToken, keyUserData, keySettings} {
		if err := s.backend.Delete(ctx, key); err != nil {
			return &StorageError{Op: "clear_all", Err: err}
		}
	}
	return nil
}

// IsAuthenticated reports whether both a token and user data are present.
func (s *Store) IsAuthenticated(ctx context.Context) (bool, error) {
	token, err := s.Token(ctx)
	if err != nil || token == "" {
		return false, err
	}
	user, err := s.UserData(ctx)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// put seals plaintext and writes it under key.
func (s *Store) put(ctx context.Context, op, key string, plaintext []byte) error {
	sealed, err := seal(s.aead, plaintext)
	if err != nil {
		return &StorageError{Op: op, Err: err}
	}
	if err := s.backend.Set(ctx, key, sealed); err != nil {
		return &StorageError{Op: op, Err: err}
	}
	return nil
}

// get reads and opens the value under key. Returns (nil, nil) when the key
// is absent or its value is undecryptable; only backend failures error.
func (s *Store) get(ctx context.Context, op, key string) ([]byte, error) {
	sealed, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, &StorageError{Op: op, Err: err}
	}
	plaintext, err := open(s.aead, sealed)
	if err != nil {
		s.healCorrupt(ctx, key, err)
		return nil, nil
	}
	return plaintext, nil
}

// healCorrupt drops an unreadable entry so the next read starts clean.
func (s *Store) healCorrupt(ctx context.Context, key string, cause error) {
	metrics.StoreCorruptionRecoveredTotal.WithLabelValues(key).Inc()
	s.log.Warn().Err(cause).Str("key", key).Msg("corrupt store entry removed")
	if err := s.backend.Delete(ctx, key); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to remove corrupt entry")
	}
}
