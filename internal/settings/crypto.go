package settings

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32 // AES-256
	iterations = 100000
)

// defaultPassphrase protects local credential files when the operator sets
// no key of their own. It is obfuscation, not secrecy; anyone who wants real
// protection supplies SETTINGS_ENCRYPTION_KEY.
const defaultPassphrase = "option-scout-default-key-2026"

// Crypto encrypts provider credentials at rest. Each payload carries its own
// random salt, so the same passphrase never yields the same key twice.
type Crypto struct {
	passphrase string
}

// NewCrypto creates a Crypto for the given passphrase, falling back to the
// built-in default when empty.
func NewCrypto(passphrase string) (*Crypto, error) {
	if passphrase == "" {
		passphrase = defaultPassphrase
	}
	return &Crypto{passphrase: passphrase}, nil
}

// aead builds the AES-256-GCM cipher for one salt.
func (c *Crypto) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(c.passphrase), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext as salt || nonce || ciphertext.
func (c *Crypto) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return append(salt, sealed...), nil
}

// Decrypt opens a payload produced by Encrypt.
func (c *Crypto) Decrypt(data []byte) ([]byte, error) {
	if len(data) < saltSize {
		return nil, errors.New("ciphertext too short")
	}
	salt, sealed := data[:saltSize], data[saltSize:]

	gcm, err := c.aead(salt)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("decryption failed: invalid passphrase or corrupted data")
	}
	return plaintext, nil
}
