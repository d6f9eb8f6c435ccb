package timegrid

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns a content hash of the bundle's wire form. encoding/json
// marshals map keys in sorted order, so the encoding is canonical and two
// semantically equal bundles hash identically. The sync coordinator compares
// this against the hash of the last received live snapshot to suppress
// redundant publishes and publish-loops-on-receive.
func (b Bundle) Hash() string {
	raw, err := json.Marshal(b.Normalize())
	if err != nil {
		// Bundle contains only maps of plain structs and strings; Marshal
		// cannot fail on it. Return a sentinel rather than panicking.
		return "unhashable"
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
