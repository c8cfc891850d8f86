package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// HashFamily selects the digest algorithm used for anonymized
// identifiers. The two families are not cross-compatible: submissions
// hashed with different families can never be deduplicated against each
// other, so a deployment commits to exactly one and unknown names are
// rejected up front rather than silently degraded.
type HashFamily string

const (
	// HashSHA256 is the default: a hex-encoded 256-bit digest.
	HashSHA256 HashFamily = "sha256"
	// HashLegacy is the 32-bit rolling hash kept only for continuity
	// with historic submissions.
	HashLegacy HashFamily = "legacy"
)

// ParseHashFamily validates a configured family name.
func ParseHashFamily(name string) (HashFamily, error) {
	switch HashFamily(name) {
	case HashSHA256, HashLegacy:
		return HashFamily(name), nil
	default:
		return "", fmt.Errorf("unknown hash family %q (want %q or %q)", name, HashSHA256, HashLegacy)
	}
}

// Hash digests the UTF-8 encoding of input. Deterministic for identical
// input within a family; 64 hex chars for sha256, decimal text for
// legacy.
func (f HashFamily) Hash(input string) (string, error) {
	switch f {
	case HashSHA256:
		sum := sha256.Sum256([]byte(input))
		return hex.EncodeToString(sum[:]), nil
	case HashLegacy:
		return strconv.FormatInt(int64(legacyHash(input)), 10), nil
	default:
		return "", fmt.Errorf("unknown hash family %q", string(f))
	}
}

// legacyHash is the historic rolling hash: h = h*31 + codeUnit, wrapped
// to signed 32 bits, over UTF-16 code units.
func legacyHash(s string) int32 {
	var h int32
	for _, r := range s {
		if r > 0xFFFF {
			// surrogate pair, same as the original text encoding
			r -= 0x10000
			h = h*31 + (0xD800 + int32(r>>10))
			h = h*31 + (0xDC00 + int32(r&0x3FF))
			continue
		}
		h = h*31 + int32(r)
	}
	return h
}
