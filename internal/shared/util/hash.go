package util

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// HashOwnerKey returns a filesystem-safe identifier for an owner ID.
func HashOwnerKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashReader computes the SHA-256 digest of a stream, reading in fixed
// 8KiB chunks so large files never load into memory at once.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, 8192)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
