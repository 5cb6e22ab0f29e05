package tokenstore

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewToken returns an unguessable URL-safe token carrying n random bytes.
// Callers use at least 16 bytes (128 bits of entropy).
func NewToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
