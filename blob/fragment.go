// Package blob implements the three blob operations (Upload, Download,
// Removal) and the Listing they share, per spec.md §4.3–§4.6 (C3–C6).
package blob

import (
	"fmt"
	"strings"
)

// ManifestSuffix is the literal suffix of a chunk's manifest fragment —
// always the last fragment produced by a successful upload (spec.md §3).
const ManifestSuffix = "#"

// Fragment is a (target, key) pair as returned by Listing (spec.md §3).
type Fragment struct {
	Target string
	Key    string
}

// ManifestKey returns the manifest fragment key for chunkID.
func ManifestKey(chunkID string) string {
	return chunkID + "-" + ManifestSuffix
}

// IsManifestKey reports whether key is a chunk's manifest fragment.
func IsManifestKey(key string) bool {
	return strings.HasSuffix(key, "-"+ManifestSuffix)
}

// dataKeyWidth is the zero-pad width applied to the client-index suffix.
// spec.md's Open Question: the original source does not zero-pad, so
// lexicographic Listing order diverges from upload order past 10
// fragments. This implementation resolves that question as the spec
// recommends: pad to a fixed width so ordering is correct for any upload.
const dataKeyWidth = 10

// DataKey returns the fragment key for the index'th data block of size
// bytes written to chunkID (spec.md §3/§4.4): "<chunk-id>-<index>-<size>"
// with index zero-padded to dataKeyWidth digits.
func DataKey(chunkID string, index, size int) string {
	return fmt.Sprintf("%s-%0*d-%d", chunkID, dataKeyWidth, index, size)
}

// KeyRangeBounds returns the inclusive [start, end] key-range bounds that
// capture every "<chunk-id>-*" key and nothing else (spec.md §4.3): the
// half-open range [chunk-id-, chunk-id-~) rendered as an inclusive pair by
// picking "~" (0x7E, above every digit/letter/`-`/`#` byte a fragment
// suffix can contain) as the upper bound.
func KeyRangeBounds(chunkID string) (start, end string) {
	return chunkID + "-", chunkID + "-~"
}

// dedupeTargets canonicalises an ordered target list to a set, preserving
// first-seen order so round-robin target selection stays deterministic
// (spec.md §3: "duplicates ... canonicalised to a set on Upload/Removal").
func dedupeTargets(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
