// Package checksum fingerprints input files so unchanged reloads can be skipped.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Reader digests everything read from r; it matches Sum over the same bytes.
func Reader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Short returns the first 12 hex characters of Sum, enough to tell inputs apart in logs.
func Short(data []byte) string {
	return Sum(data)[:12]
}
