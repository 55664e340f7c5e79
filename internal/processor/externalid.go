package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 16

// NaturalID namespaces an upstream identifier: "<prefix>:<id>".
func NaturalID(prefix, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return prefix + ":" + id
}

// HashedID digests the first non-blank key (guid, then URL, ...) and keeps
// HashLength hex characters. It returns "" when every key is blank.
func HashedID(prefix string, keys ...string) string {
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		sum := sha256.Sum256([]byte(key))
		return prefix + ":" + hex.EncodeToString(sum[:])[:HashLength]
	}
	return ""
}
