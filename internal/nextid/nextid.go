// Package nextid assigns identifiers to new records.
package nextid

import (
	"strings"

	"github.com/google/uuid"
)

// Generate returns a 32 character hex id for which taken reports false.
// taken may be nil when the caller has nothing to check against.
func Generate(taken func(id string) bool) string {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")
		if taken == nil || !taken(id) {
			return id
		}
	}
}
