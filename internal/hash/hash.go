// Package hash fingerprints listing documents.
//
// A rendered listing is hashed when its snapshot is stored. Hashing the edited
// document again tells the engine whether the user changed anything at all,
// and a prefix of the hash names the snapshot.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortLen is the length of ids derived from a hash.
const ShortLen = 12

// Hasher computes content hashes.
type Hasher interface {
	// Sum returns the hex-encoded hash of data.
	Sum(data []byte) string
}

// SHA256Hasher implements Hasher using SHA-256.
type SHA256Hasher struct{}

// NewSHA256Hasher creates a new SHA256Hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// Sum returns the hex-encoded SHA-256 of data.
func (h *SHA256Hasher) Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Short returns the id-sized prefix of a hash.
func Short(sum string) string {
	if len(sum) <= ShortLen {
		return sum
	}
	return sum[:ShortLen]
}

// FakeHasher implements Hasher with predetermined hashes for testing.
type FakeHasher struct {
	hashes map[string]string
}

// NewFakeHasher creates a new FakeHasher.
func NewFakeHasher() *FakeHasher {
	return &FakeHasher{
		hashes: make(map[string]string),
	}
}

// SetHash sets the hash returned for content.
func (h *FakeHasher) SetHash(content, hash string) {
	h.hashes[content] = hash
}

// Sum returns the predetermined hash for data, or "fakehash".
func (h *FakeHasher) Sum(data []byte) string {
	if hash, ok := h.hashes[string(data)]; ok {
		return hash
	}
	return "fakehash"
}
