package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSecureToken creates a cryptographically secure random token of
// the given byte length, URL-safe encoded.
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("could not read random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
