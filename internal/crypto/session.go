// Package crypto provides the ephemeral session key and the
// authenticated encryption applied to every stored file.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/pdfgarden/pdfgarden/internal/crypto/types"
)

// ErrAuthenticationFailure indicates that ciphertext, nonce and key do
// not match: the data was tampered with or corrupted.
var ErrAuthenticationFailure = errors.New("authentication failure")

// ErrEncryptionUnavailable indicates the platform crypto facility could
// not be used at startup. Fatal: nothing can be stored without it.
var ErrEncryptionUnavailable = errors.New("encryption unavailable")

// Session owns the ephemeral symmetric key for one application run.
// The key is generated at startup, lives only in memory and is shared
// read-only with every processing strategy. It never appears in logs,
// storage or error messages.
type Session struct {
	aead cipher.AEAD
	alg  types.Algorithm
}

// NewSession generates a fresh 256-bit key and builds the configured
// AEAD around it. Fails only if the platform crypto facility is broken.
func NewSession(alg types.Algorithm) (*Session, error) {
	key := make([]byte, types.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: generating session key: %v", ErrEncryptionUnavailable, err)
	}

	aead, err := newAEAD(alg, key)
	if err != nil {
		return nil, err
	}

	return &Session{aead: aead, alg: alg}, nil
}

func newAEAD(alg types.Algorithm, key []byte) (cipher.AEAD, error) {
	switch alg {
	case types.AlgorithmChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("%w: creating ChaCha20-Poly1305: %v", ErrEncryptionUnavailable, err)
		}
		return aead, nil
	case types.AlgorithmAES256GCM, "":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("%w: creating cipher: %v", ErrEncryptionUnavailable, err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("%w: creating GCM: %v", ErrEncryptionUnavailable, err)
		}
		return gcm, nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", alg)
	}
}

// Seal encrypts plaintext under the session key. A fresh random nonce
// is generated for every call; the (ciphertext, nonce) pair must always
// be stored together.
func (s *Session) Seal(plaintext []byte) ([]byte, []byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := s.aead.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Open decrypts a (ciphertext, nonce) pair produced by Seal. A mismatch
// of any of ciphertext, nonce or key yields ErrAuthenticationFailure,
// never silently wrong plaintext.
func (s *Session) Open(ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != s.aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce size %d", ErrAuthenticationFailure, len(nonce))
	}

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailure, err)
	}
	return plaintext, nil
}

// Algorithm returns the encryption algorithm used
func (s *Session) Algorithm() types.Algorithm {
	return s.alg
}
