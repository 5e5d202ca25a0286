// Package id issues ULID identifiers for journal rows. ULIDs sort by
// generation time, so fills scanned in id order come back chronologically.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu sync.Mutex
	// Monotonic entropy keeps IDs issued within the same millisecond in
	// increasing order.
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh ULID string.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}
