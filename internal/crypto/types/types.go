// Package types defines common types and interfaces for session encryption
package types

// Algorithm represents the authenticated encryption algorithm to use
type Algorithm string

// Supported encryption algorithms
const (
	AlgorithmAES256GCM        Algorithm = "AES-256-GCM"
	AlgorithmChaCha20Poly1305 Algorithm = "ChaCha20-Poly1305"
)

// KeySize is the symmetric key size in bytes (256 bits) for both algorithms.
const KeySize = 32

// NonceSize is the nonce size in bytes shared by AES-GCM and ChaCha20-Poly1305.
const NonceSize = 12

// AEAD defines the interface for sealing and opening session data
type AEAD interface {
	// Seal encrypts plaintext with a fresh random nonce and returns
	// the ciphertext together with the nonce used.
	Seal(plaintext []byte) (ciphertext, nonce []byte, err error)

	// Open decrypts ciphertext produced by Seal with the given nonce.
	Open(ciphertext, nonce []byte) (plaintext []byte, err error)

	// Algorithm returns the encryption algorithm used
	Algorithm() Algorithm
}
