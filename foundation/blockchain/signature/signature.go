// Package signature provides helper functions for hashing blockchain values
// and checking those hashes against the proof of work rules.
package signature

import (
	"crypto/sha256"
	"encoding/json"
	"math/bits"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// hashLength is the number of bytes in a sha256 digest.
const hashLength = sha256.Size

// =============================================================================

// Hash returns a unique string for the value. The value is marshaled to JSON
// so the field order of the struct is the canonical order of the digest.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:])
}

// HashBytes returns the raw digest for the value.
func HashBytes(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(data)
	return hash[:], nil
}

// LeadingZeroBits returns the number of leading zero bits in the hex-encoded
// hash. A malformed hash reports -1 so it can never satisfy a difficulty.
func LeadingZeroBits(hash string) int {
	data, err := hexutil.Decode(hash)
	if err != nil || len(data) != hashLength {
		return -1
	}

	var n int
	for _, b := range data {
		if b != 0 {
			return n + bits.LeadingZeros8(b)
		}
		n += 8
	}

	return n
}

// IsHashSolved checks the hash has at least difficulty leading zero bits.
func IsHashSolved(difficulty uint16, hash string) bool {
	return LeadingZeroBits(hash) >= int(difficulty)
}
