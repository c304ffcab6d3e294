package xid

import (
	"github.com/google/uuid"
)

// New returns a random identifier such as "sale-3f0c...". The prefix keeps
// ids readable in logs and audit entries.
func New(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

// Valid reports whether id carries a well-formed uuid after its prefix.
func Valid(id string) bool {
	if len(id) < 36 {
		return false
	}
	_, err := uuid.Parse(id[len(id)-36:])
	return err == nil
}
