// Package id generates short prefixed identifiers for scans and watch runs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet avoids characters that need quoting in logs or shells.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Size is the length of the random part.
const Size = 12

// Generate returns prefix + "-" + a random lowercase alphanumeric suffix,
// e.g. "scan-4k2v9x0q1m7a".
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.Generate(alphabet, Size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + suffix, nil
}

// MustGenerate is like Generate but panics when the system has no entropy.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
