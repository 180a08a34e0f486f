package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"strings"

	"github.com/and161185/kesef/internal/errs"
)

const (
	ivLen  = 16
	tagLen = 16
)

// Encrypt seals plaintext under a key derived from password and returns the
// envelope "salt:iv:tag:ciphertext" (each part base64). Salt and IV are fresh
// per call, so two encryptions of the same input never produce the same envelope.
func Encrypt(plaintext, password string) (string, error) {
	salt, err := RandBytes(saltLen)
	if err != nil {
		return "", err
	}
	iv, err := RandBytes(ivLen)
	if err != nil {
		return "", err
	}
	aead, err := newAEAD(deriveKey(password, salt, keyLen))
	if err != nil {
		return "", err
	}
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagLen], sealed[len(sealed)-tagLen:]

	return strings.Join([]string{
		b64.EncodeToString(salt),
		b64.EncodeToString(iv),
		b64.EncodeToString(tag),
		b64.EncodeToString(ct),
	}, delimiter), nil
}

// Decrypt opens an envelope produced by Encrypt. A wrong password or any
// modification of the envelope yields an error wrapping errs.ErrDecryption.
func Decrypt(envelope, password string) (string, error) {
	parts := strings.Split(envelope, delimiter)
	if len(parts) != 4 {
		return "", fmt.Errorf("%w: malformed envelope", errs.ErrDecryption)
	}
	var raw [4][]byte
	for i, p := range parts {
		b, err := b64.DecodeString(p)
		if err != nil {
			return "", fmt.Errorf("%w: malformed envelope part %d", errs.ErrDecryption, i)
		}
		raw[i] = b
	}
	salt, iv, tag, ct := raw[0], raw[1], raw[2], raw[3]
	if len(salt) == 0 || len(iv) != ivLen || len(tag) != tagLen {
		return "", fmt.Errorf("%w: malformed envelope", errs.ErrDecryption)
	}
	aead, err := newAEAD(deriveKey(password, salt, keyLen))
	if err != nil {
		return "", err
	}
	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)
	pt, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrDecryption, err)
	}
	return string(pt), nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, ivLen)
}
