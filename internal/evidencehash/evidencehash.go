// Package evidencehash computes the tamper-evidence digest for a resolution
// proof's captured image.
package evidencehash

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Compute hashes raw bytes only (no hex string, no URL-derived content):
// image bytes || latitude (float64 LE) || longitude (float64 LE) ||
// captured_at (Unix nano int64 LE). capturedAt must be server-generated at
// upload time, never a client-supplied timestamp.
//
// The result is an integrity signal: it detects tampering of the stored
// image after capture. It is not authenticity proof beyond what the
// recorded fields themselves already establish.
func Compute(imageBytes []byte, latitude, longitude float64, capturedAt time.Time) string {
	buf := bytes.NewBuffer(imageBytes)
	_ = binary.Write(buf, binary.LittleEndian, latitude)
	_ = binary.Write(buf, binary.LittleEndian, longitude)
	_ = binary.Write(buf, binary.LittleEndian, capturedAt.UnixNano())
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}
