package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrGenerateKey returns the hex-encoded 32-byte token key stored at
// path, creating the file with a fresh random key when it does not exist.
func LoadOrGenerateKey(path string) (string, error) {
	//#nosec G304 -- key path comes from configuration
	if raw, err := os.ReadFile(path); err == nil {
		keyHex := strings.TrimSpace(string(raw))
		if len(keyHex) != keyHexSize {
			return "", fmt.Errorf("invalid token key length in %s: expected %d hex chars, got %d", path, keyHexSize, len(keyHex))
		}
		if _, err := hex.DecodeString(keyHex); err != nil {
			return "", fmt.Errorf("invalid token key in %s: %w", path, err)
		}
		return keyHex, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read token key: %w", err)
	}

	key := make([]byte, keyBytesSize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate token key: %w", err)
	}
	keyHex := hex.EncodeToString(key)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(keyHex), 0o600); err != nil {
		return "", fmt.Errorf("failed to save token key: %w", err)
	}
	return keyHex, nil
}
