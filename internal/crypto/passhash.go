// Package crypto implements the credential cipher, master-password hashing and session tokens.
package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters shared by the cipher and the password hash.
const (
	iterations = 100_000
	saltLen    = 32
	keyLen     = 32 // AES-256
	hashLen    = 64
	delimiter  = ":"
)

var b64 = base64.StdEncoding.Strict()

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

func deriveKey(password string, salt []byte, n int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, n, sha512.New)
}

// HashPassword returns "salt:hash" (both base64) for password with a fresh salt.
func HashPassword(password string) (string, error) {
	salt, err := RandBytes(saltLen)
	if err != nil {
		return "", err
	}
	hash := deriveKey(password, salt, hashLen)
	return b64.EncodeToString(salt) + delimiter + b64.EncodeToString(hash), nil
}

// VerifyPassword reports whether password matches a hash produced by HashPassword.
// A malformed stored value never verifies.
func VerifyPassword(password, stored string) bool {
	saltB64, hashB64, ok := strings.Cut(stored, delimiter)
	if !ok {
		return false
	}
	salt, err := b64.DecodeString(saltB64)
	if err != nil || len(salt) == 0 {
		return false
	}
	expected, err := b64.DecodeString(hashB64)
	if err != nil || len(expected) != hashLen {
		return false
	}
	got := deriveKey(password, salt, hashLen)
	return subtle.ConstantTimeCompare(got, expected) == 1
}
