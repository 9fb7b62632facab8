package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Conf holds the key material configuration for the contact encryptor.
type Conf struct {
	Secret string
	Salt   string
}

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Encryptor produces deterministic ciphertext: the same plaintext always
// encrypts to the same output, so encrypted contact fields can be matched
// by exact string comparison in the search index.
type Encryptor struct {
	aead cipher.AEAD
	key  []byte
}

func New(cfg Conf) (*Encryptor, error) {
	if cfg.Secret == "" {
		return nil, errors.New("crypt secret is required")
	}
	key := pbkdf2.Key([]byte(cfg.Secret), []byte(cfg.Salt), 4096, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init gcm: %w", err)
	}
	return &Encryptor{aead: aead, key: key}, nil
}

// Encrypt returns the deterministic ciphertext for plain.
// The nonce is derived from the plaintext itself, which trades semantic
// security for exact-match searchability. Empty input stays empty.
func (e *Encryptor) Encrypt(plain string) string {
	if plain == "" {
		return ""
	}
	nonce := e.nonceFor(plain)
	ct := e.aead.Seal(nil, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, ct...))
}

// Decrypt reverses Encrypt.
func (e *Encryptor) Decrypt(enc string) (string, error) {
	if enc == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	ns := e.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrInvalidCiphertext
	}
	plain, err := e.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}

func (e *Encryptor) nonceFor(plain string) []byte {
	mac := hmac.New(sha256.New, e.key)
	mac.Write([]byte(plain))
	return mac.Sum(nil)[:e.aead.NonceSize()]
}
