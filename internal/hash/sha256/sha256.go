// Package sha256 provides the digests used for cache keys and archive names.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements scout.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Key hashes parts joined by a NUL byte, so ("ab","c") and ("a","bc") differ.
func (h *Hasher) Key(parts ...string) string {
	d := sha256.New()
	for i, p := range parts {
		if i > 0 {
			d.Write([]byte{0})
		}
		d.Write([]byte(p))
	}
	return hex.EncodeToString(d.Sum(nil))
}
