package xid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a random identifier such as "sale-3f0c9a1e6b2d4e57a0c1d2e3f4a5b6c7".
func New(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
