// Package id generates identifiers for rows and stored objects.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// objectAlphabet keeps object keys lowercase and free of characters that need URL escaping.
const objectAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Row returns a new primary key in the format the hosted backend uses (UUID v4).
func Row() string {
	return uuid.NewString()
}

// ValidRow reports whether s parses as a UUID.
func ValidRow(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Object returns a random name for an uploaded object, e.g. "k3x9q0w1m2n8".
func Object() (string, error) {
	name, err := gonanoid.Generate(objectAlphabet, 12)
	if err != nil {
		return "", fmt.Errorf("generate object name: %w", err)
	}
	return name, nil
}

// Client returns a prefixed identifier for a live connection, e.g. "sse-V1StGXR8_Z5jdHi6B-myT".
func Client(prefix string) (string, error) {
	n, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + n, nil
}
