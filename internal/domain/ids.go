// Package domain holds helpers shared by the entity packages.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// timestampLayout is RFC 3339 with fixed-width microseconds so stored
// timestamps sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

const DateLayout = "2006-01-02"

// NewID returns prefix followed by the first 8 hex characters of a random
// UUID, e.g. "u-1f3a9c0d".
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + hex[:8]
}

func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
