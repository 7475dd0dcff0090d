package block

import (
	"crypto/sha256"
	"encoding/binary"
)

// Header is the slice of a block this core consumes: the PoW cadence
// fields and the chain linkage. Transaction content is owned by the
// processing pipeline.
type Header struct {
	Height     uint64   // chain height, strictly increasing
	Timestamp  uint64   // milliseconds since epoch
	Difficulty uint64   // PoW target for this block
	Hash       [32]byte // header hash, set by ComputeHash
	PrevHash   [32]byte // parent header hash
}

// ComputeHash derives the header identity over all fields except Hash
// itself. Pure function of the header contents.
func (h *Header) ComputeHash() [32]byte {
	hasher := sha256.New()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, h.Height)
	hasher.Write(buf)
	binary.BigEndian.PutUint64(buf, h.Timestamp)
	hasher.Write(buf)
	binary.BigEndian.PutUint64(buf, h.Difficulty)
	hasher.Write(buf)
	hasher.Write(h.PrevHash[:])
	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// NewHeader assembles a header linked to prev and seals its hash.
func NewHeader(height, timestamp, difficulty uint64, prevHash [32]byte) Header {
	h := Header{
		Height:     height,
		Timestamp:  timestamp,
		Difficulty: difficulty,
		PrevHash:   prevHash,
	}
	h.Hash = h.ComputeHash()
	return h
}
