// Package password implements the optional encryption layer for a DCTDM
// payload: a PBKDF2-derived key feeding an authenticated cipher, so that
// extraction with the wrong password fails closed instead of returning
// garbage text.
package password

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"dctdm/pkg/dctdmerr"
)

const (
	saltSize    = 16
	keySize     = 32
	pbkdf2Iters = 100000
)

// DeriveKey stretches password with salt into a 32-byte AES-256 key via
// PBKDF2-HMAC-SHA256 at 100,000 iterations.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iters, keySize, sha256.New)
}

// Encrypt produces salt ‖ nonce ‖ ciphertext‖tag for plaintext under
// password, with a freshly generated random salt and nonce. The salt is
// prefixed so Decrypt can re-derive the same key without a side channel.
func Encrypt(plaintext []byte, password string) ([]byte, error) {
	const op = "password.Encrypt"

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, dctdmerr.New(dctdmerr.IOError, op, err)
	}

	key := DeriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dctdmerr.New(dctdmerr.IOError, op, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dctdmerr.New(dctdmerr.IOError, op, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, dctdmerr.New(dctdmerr.IOError, op, err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt reverses Encrypt. A wrong password or corrupted ciphertext both
// surface as dctdmerr.DecryptionFailed, since GCM's authentication tag
// cannot distinguish the two.
func Decrypt(data []byte, password string) ([]byte, error) {
	const op = "password.Decrypt"

	if len(data) < saltSize {
		return nil, dctdmerr.New(dctdmerr.DecryptionFailed, op, fmt.Errorf("ciphertext shorter than salt"))
	}
	salt := data[:saltSize]
	rest := data[saltSize:]

	key := DeriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dctdmerr.New(dctdmerr.DecryptionFailed, op, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dctdmerr.New(dctdmerr.DecryptionFailed, op, err)
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return nil, dctdmerr.New(dctdmerr.DecryptionFailed, op, fmt.Errorf("ciphertext shorter than nonce"))
	}
	nonce, ciphertext := rest[:nonceSize], rest[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, dctdmerr.New(dctdmerr.DecryptionFailed, op, err)
	}
	return plaintext, nil
}
