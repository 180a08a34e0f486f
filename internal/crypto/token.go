package crypto

import "encoding/base64"

const tokenLen = 48

// NewToken returns an opaque session token: 48 random bytes, base64url without padding.
func NewToken() (string, error) {
	b, err := RandBytes(tokenLen)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
