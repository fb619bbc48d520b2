package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// ErrInvalidKey is returned when the encryption key material is unusable.
var ErrInvalidKey = errors.New("encryption key must be at least 16 characters")

const (
	minKeyLength     = 16
	pbkdf2Iterations = 600_000
	derivedKeyLength = 32 // AES-256
)

// keySalt is a fixed application salt for PBKDF2. It must stay stable across
// restarts, otherwise previously stored ciphertexts become undecryptable.
var keySalt = []byte("myfolio.token-store.v1")

// Encryptor provides AES-256-GCM encryption for secrets at rest. The AES key
// is derived from the configured passphrase via PBKDF2-SHA256.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives an AES-256 key from the passphrase and prepares the
// GCM cipher. Returns ErrInvalidKey for passphrases shorter than 16 characters.
func NewEncryptor(passphrase string) (*Encryptor, error) {
	if len(passphrase) < minKeyLength {
		return nil, ErrInvalidKey
	}

	key := pbkdf2.Key([]byte(passphrase), keySalt, pbkdf2Iterations, derivedKeyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Encrypt returns the base64-encoded nonce+ciphertext for the plaintext.
// An empty plaintext encrypts to an empty string.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or truncated ciphertexts fail with an
// error rather than producing garbage.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.New("ciphertext shorter than nonce")
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}
