// Package hasher computes short content digests used to correlate log lines
// and reports with the images they describe.
package hasher

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// DigestLen is the number of hex chars in a Digest (64 bits).
const DigestLen = 16

// ContentHash computes the xxHash64 of data and returns a hex string
// truncated to hexLen (0 means full length).
func ContentHash(data []byte, hexLen int) string {
	return truncate(xxhash.Sum64(data), hexLen)
}

// Digest hashes an encoded-image string without copying it.
func Digest(s string) string {
	return truncate(xxhash.Sum64String(s), DigestLen)
}

func truncate(h uint64, hexLen int) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], h)
	full := hex.EncodeToString(b[:])
	if hexLen > 0 && hexLen < len(full) {
		return full[:hexLen]
	}
	return full
}
