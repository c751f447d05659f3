package batcher

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// contentHash returns a short BLAKE3 digest of submitted image bytes for use
// in trace logging, adapted from an internal/utils/hash/hash.go
// (CalculateFileHash's BLAKE3 path), trimmed to the single in-memory,
// non-file, non-quick-hash case the batcher needs.
func contentHash(data []byte) string {
	h := blake3.New()
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
