// Package checksum derives stable digests used to detect changed files.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint identifies one observed version of a file by name, size and
// modification time. Content is not read.
func Fingerprint(name string, size int64, modified time.Time) string {
	buf := make([]byte, 0, len(name)+40)
	buf = append(buf, name...)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, size, 10)
	buf = append(buf, 0)
	buf = strconv.AppendInt(buf, modified.UnixNano(), 10)
	return Sum(buf)
}
