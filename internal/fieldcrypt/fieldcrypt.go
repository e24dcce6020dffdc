// Package fieldcrypt encrypts sensitive scalar fields (balances, amounts,
// account numbers) before they reach the store. Encryption is deliberately
// deterministic: the nonce is derived from the plaintext, so identical
// plaintext under the same key always yields identical ciphertext and
// equality lookups against encrypted columns keep working. That weakens
// confidentiality for low-entropy values; it is the documented tradeoff
// that makes account numbers searchable at rest.
package fieldcrypt

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"strconv"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required symmetric key length in bytes.
const KeySize = chacha20poly1305.KeySize

const nonceLabel = "crest_bank/fieldcrypt/nonce/v1"

// Codec seals and opens field values under a single symmetric key supplied
// by configuration at process start.
type Codec struct {
	aead     cipher.AEAD
	nonceKey []byte
}

// New builds a codec from a raw symmetric key.
func New(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(nonceLabel))
	return &Codec{aead: aead, nonceKey: mac.Sum(nil)}, nil
}

// nonce derives the deterministic nonce for a plaintext. Distinct
// plaintexts map to distinct nonces, which is what the AEAD requires.
func (c *Codec) nonce(plain []byte) []byte {
	mac := hmac.New(sha256.New, c.nonceKey)
	mac.Write(plain)
	return mac.Sum(nil)[:chacha20poly1305.NonceSize]
}

// Encrypt seals a plaintext. The nonce is prepended to the ciphertext.
func (c *Codec) Encrypt(plain []byte) []byte {
	nonce := c.nonce(plain)
	out := make([]byte, 0, len(nonce)+len(plain)+c.aead.Overhead())
	out = append(out, nonce...)
	return c.aead.Seal(out, nonce, plain, nil)
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *Codec) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) < chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, body := sealed[:chacha20poly1305.NonceSize], sealed[chacha20poly1305.NonceSize:]
	plain, err := c.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("open ciphertext: %w", err)
	}
	return plain, nil
}

// EncryptString seals a string field.
func (c *Codec) EncryptString(plain string) []byte {
	return c.Encrypt([]byte(plain))
}

// DecryptString opens a string field.
func (c *Codec) DecryptString(sealed []byte) (string, error) {
	plain, err := c.Decrypt(sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptInt64 seals a monetary amount in minor units.
func (c *Codec) EncryptInt64(v int64) []byte {
	return c.Encrypt([]byte(strconv.FormatInt(v, 10)))
}

// DecryptInt64 opens a monetary amount in minor units.
func (c *Codec) DecryptInt64(sealed []byte) (int64, error) {
	plain, err := c.Decrypt(sealed)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(string(plain), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode amount: %w", err)
	}
	return v, nil
}

// Sealed pairs a plaintext with its deterministic ciphertext. Fields that
// double as lookup keys (account numbers) travel through the store layer
// in this form, keeping the searchability tradeoff visible at the type
// level instead of buried in query code.
type Sealed struct {
	Plain  string
	Cipher []byte
}

// Seal produces the searchable form of a string field.
func (c *Codec) Seal(plain string) Sealed {
	return Sealed{Plain: plain, Cipher: c.EncryptString(plain)}
}
