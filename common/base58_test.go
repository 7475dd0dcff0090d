package common

import (
	"bytes"
	"strings"
	"testing"
)

func TestBase58Roundtrip(t *testing.T) {
	original := []byte{0, 1, 2, 0xff, 0x7f}
	decoded, err := DecodeBase58ToBytes(EncodeBytesToBase58(original))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(decoded, original) {
		t.Fatalf("roundtrip = %v, want %v", decoded, original)
	}
}

func TestDecodeBase58ToBytes_InvalidInput(t *testing.T) {
	if _, err := DecodeBase58ToBytes("not-base58!"); err == nil {
		t.Fatal("invalid characters should fail to decode")
	}
}

func TestShortHash(t *testing.T) {
	var hash [32]byte
	for i := range hash {
		hash[i] = byte(i)
	}

	full := HashToBase58(hash)
	short := ShortHash(hash)
	if len(short) != 19 {
		t.Fatalf("ShortHash length = %d, want 19", len(short))
	}
	if !strings.HasPrefix(full, short[:8]) || !strings.HasSuffix(full, short[len(short)-8:]) {
		t.Fatalf("ShortHash %q does not bracket %q", short, full)
	}
}
