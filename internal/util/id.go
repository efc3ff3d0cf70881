package util

import (
	"crypto/rand"
	"encoding/hex"
)

const idByteLen = 12

// NewID returns a 24-character random hex identifier.
func NewID() string {
	buf := make([]byte, idByteLen)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
