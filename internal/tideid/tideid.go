// Package tideid generates identifiers for tides. IDs are TypeIDs with a
// "tide" prefix: K-sortable (UUIDv7-based), globally unique and URL-safe,
// e.g. "tide_01h2xcejqtf2nbrexx3vqjhp41". The embedded timestamp makes ids
// informative for debugging; uniqueness is the only hard guarantee.
package tideid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const prefix = "tide"

// New generates a new tide id.
func New() string {
	tid, err := typeid.Generate(prefix)
	if err != nil {
		// The prefix is a compile-time constant; Generate can only fail on
		// an invalid prefix.
		panic(fmt.Sprintf("tideid: generate: %v", err))
	}
	return tid.String()
}

// Validate checks that s is a well-formed tide id.
func Validate(s string) error {
	tid, err := typeid.Parse(s)
	if err != nil {
		return fmt.Errorf("tideid: parse %q: %w", s, err)
	}
	if tid.Prefix() != prefix {
		return fmt.Errorf("tideid: %q: unexpected prefix %q", s, tid.Prefix())
	}
	return nil
}
