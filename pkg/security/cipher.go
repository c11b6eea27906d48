package security

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidSecret is returned when a stored ciphertext can't be decrypted,
// typically because the encryption key changed since it was written
var ErrInvalidSecret = errors.New("secret can't be decrypted with the current key")

// SecretBox encrypts short user secrets (API keys, tokens) with AES-256-GCM.
// Ciphertexts are self-contained: base64(nonce || sealed)
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox accepts a 32 byte key, either raw, hex or base64 encoded
func NewSecretBox(key string) (*SecretBox, error) {
	raw, err := decodeKey(key)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &SecretBox{aead: aead}, nil
}

// GenerateEncryptionKey returns a random hex encoded 32 byte key.
// Used at startup when no key is configured
func GenerateEncryptionKey() (string, error) {
	b, err := genRandByt(32)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// Encrypt seals a plaintext secret. Empty input stays empty so cleared
// secrets don't turn into ciphertext of nothing
func (s *SecretBox) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce, err := genRandByt(uint32(s.aead.NonceSize()))
	if err != nil {
		return "", err
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any corruption or key
// mismatch comes back as ErrInvalidSecret
func (s *SecretBox) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrInvalidSecret
	}

	plain, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	return string(plain), nil
}

func decodeKey(key string) ([]byte, error) {
	if len(key) == 64 {
		if raw, err := hex.DecodeString(key); err == nil {
			return raw, nil
		}
	}

	if raw, err := base64.StdEncoding.DecodeString(key); err == nil && len(raw) == 32 {
		return raw, nil
	}

	if len(key) == 32 {
		return []byte(key), nil
	}

	return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
}
