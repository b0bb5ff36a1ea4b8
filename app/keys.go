// Package app implements license issuance, metering and billing for the
// CaptureAI completion API.
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
)

// keyAlphabet excludes visually ambiguous characters (0/O/1/I).
const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	keyGroups    = 5
	keyGroupSize = 4
	maxKeyTries  = 10
)

// KeyPattern matches a normalized license key: five dash-separated groups of
// four characters.
var KeyPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// ErrKeySpaceExhausted is returned when repeated generation attempts all
// collided with existing keys. With a 32^20 key space this indicates a
// broken RNG or store, not bad luck.
var ErrKeySpaceExhausted = errors.New("license key generation exhausted retries")

// GenerateKey returns a random license key in XXXX-XXXX-XXXX-XXXX-XXXX form.
func GenerateKey() (string, error) {
	raw := make([]byte, keyGroups*keyGroupSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	out := make([]byte, 0, keyGroups*keyGroupSize+keyGroups-1)
	for i, b := range raw {
		if i > 0 && i%keyGroupSize == 0 {
			out = append(out, '-')
		}
		out = append(out, keyAlphabet[int(b)%len(keyAlphabet)])
	}
	return string(out), nil
}

// keyExistsChecker is the slice of the identity store that key generation
// needs for uniqueness checks.
type keyExistsChecker interface {
	KeyExists(ctx context.Context, key string) (bool, error)
}

// GenerateUniqueKey generates a key not yet present in the directory,
// retrying a bounded number of times before failing loudly.
func GenerateUniqueKey(ctx context.Context, store keyExistsChecker) (string, error) {
	for attempt := 0; attempt < maxKeyTries; attempt++ {
		key, err := GenerateKey()
		if err != nil {
			return "", err
		}
		exists, err := store.KeyExists(ctx, key)
		if err != nil {
			return "", err
		}
		if !exists {
			return key, nil
		}
	}
	return "", ErrKeySpaceExhausted
}
