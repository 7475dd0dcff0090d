package common

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// EncodeBytesToBase58 encodes bytes directly to base58
func EncodeBytesToBase58(bytes []byte) string {
	return base58.Encode(bytes)
}

// DecodeBase58ToBytes decodes base58 string to bytes
func DecodeBase58ToBytes(base58Str string) ([]byte, error) {
	bytes, err := base58.Decode(base58Str)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58 string: %w", err)
	}
	return bytes, nil
}

// HashToBase58 renders a 32-byte digest for logs and store records
func HashToBase58(hash [32]byte) string {
	return EncodeBytesToBase58(hash[:])
}

// ShortHash shortens a rendered digest for log lines
func ShortHash(hash [32]byte) string {
	enc := EncodeBytesToBase58(hash[:])
	if len(enc) <= 16 {
		return enc
	}
	return fmt.Sprintf("%s...%s", enc[:8], enc[len(enc)-8:])
}
