// Package checksum computes content digests used as HTTP entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Match reports whether tag, as sent in an If-Match header, names data.
// Quotes and a weak prefix are ignored; "*" matches anything.
func Match(tag string, data []byte) bool {
	tag = strings.TrimSpace(tag)
	if tag == "*" {
		return true
	}
	tag = strings.TrimPrefix(tag, "W/")
	tag = strings.Trim(tag, `"`)
	return tag == Sum(data)
}
