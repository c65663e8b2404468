package securestore

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// keySalt is the fixed application salt for passphrase derivation. Changing
// it invalidates every existing store.
var keySalt = []byte("community-auth/securestore/v1")

var errCiphertextTooShort = errors.New("ciphertext too short")

// newAEAD derives a 256-bit key from the passphrase with argon2id and wraps
// it in a ChaCha20-Poly1305 AEAD.
func newAEAD(passphrase string) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(passphrase), keySalt, 1, 64*1024, 4, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return aead, nil
}

// seal encrypts plaintext, prepending a fresh random nonce.
func seal(aead cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a value produced by seal. Any tampering or truncation
// surfaces as an error, which the store treats as entry corruption.
func open(aead cipher.AEAD, sealed []byte) ([]byte, error) {
	if len(sealed) < aead.NonceSize() {
		return nil, errCiphertextTooShort
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
