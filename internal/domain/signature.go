package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Sign computes the callback digest shared with the gateway.
// Keys are concatenated with their values in byte-wise key order, followed by the
// nonce and the region secret, and hashed with SHA-1. Byte-wise ordering is what the
// gateway uses; any locale-aware collation produces digests it will not accept.
func Sign(fields ParameterSet, nonce, secret string) string {
	var b strings.Builder
	for _, k := range fields.SortedKeys() {
		b.WriteString(k)
		b.WriteString(fields[k])
	}
	b.WriteString(nonce)
	b.WriteString(secret)

	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
