package utils

import (
	"crypto/rand"
	"encoding/base64"
)

const apiKeyPrefix = "pp_"

func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	// err == nil only if len(b) bytes were read
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateAPIKey returns a new key for programmatic access, recognizable by
// its prefix.
func GenerateAPIKey() (string, error) {
	k, err := GenerateRandomKey(32)
	if err != nil {
		return "", err
	}
	return apiKeyPrefix + k, nil
}
