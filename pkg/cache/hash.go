package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey builds a namespaced cache key: prefix, a colon, and the
// digest of the parts serialized as JSON. The full digest is kept so
// two stamps of the same document can never share a key.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + digest(data)
}

// Hash returns the hex SHA-256 of data. The CLI hashes the serialized
// document with it to tell documents apart in cache keys.
func Hash(data []byte) string {
	return digest(data)
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
