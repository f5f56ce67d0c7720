package domain

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint digests chunk text for change detection. xxhash is fast and
// stable across runs; it is a change-detection fingerprint, not a security
// boundary, and must not be used as a dedup key for adversarial input.
func Fingerprint(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}
