// Package id generates identifiers for books, quotes and devices.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for generated record ids.
const (
	BookPrefix  = "book"
	QuotePrefix = "quote"
)

// Generate returns prefix-nanoid, for example "book-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	n, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}

// NewDeviceID returns a random token identifying one installation.
func NewDeviceID() string {
	return "device-" + uuid.NewString()
}
