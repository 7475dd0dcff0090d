package checkpoint

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// MacroBlock is the periodically emitted, finality-votable summary of
// chain and shard state. It is created deterministically every macro
// interval and must be byte-identical across honest nodes; it is never
// mutated after creation, only superseded by the next checkpoint.
type MacroBlock struct {
	Height           uint64              `json:"height"`
	ShardHeights     map[uint32]uint64   `json:"shard_heights"`
	ShardRoots       map[uint32][32]byte `json:"shard_roots"`
	RewardConsumer   uint64              `json:"reward_consumer"`
	RewardIndustrial uint64              `json:"reward_industrial"`
	QueueRoot        [32]byte            `json:"queue_root"`
}

// sortedShards returns the union of shard ids in ascending order so the
// canonical hash never depends on map iteration order.
func (m *MacroBlock) sortedShards() []uint32 {
	seen := make(map[uint32]struct{}, len(m.ShardHeights))
	for shard := range m.ShardHeights {
		seen[shard] = struct{}{}
	}
	for shard := range m.ShardRoots {
		seen[shard] = struct{}{}
	}
	shards := make([]uint32, 0, len(seen))
	for shard := range seen {
		shards = append(shards, shard)
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i] < shards[j] })
	return shards
}

// Copy returns a deep copy with its own shard maps, so callers can hold
// a checkpoint without aliasing the emitter's record.
func (m *MacroBlock) Copy() *MacroBlock {
	out := *m
	out.ShardHeights = make(map[uint32]uint64, len(m.ShardHeights))
	for shard, height := range m.ShardHeights {
		out.ShardHeights[shard] = height
	}
	out.ShardRoots = make(map[uint32][32]byte, len(m.ShardRoots))
	for shard, root := range m.ShardRoots {
		out.ShardRoots[shard] = root
	}
	return &out
}

// Hash computes the canonical checkpoint hash, the value the finality
// gadget votes on.
func (m *MacroBlock) Hash() [32]byte {
	hasher := sha256.New()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, m.Height)
	hasher.Write(buf)
	for _, shard := range m.sortedShards() {
		binary.BigEndian.PutUint32(buf[:4], shard)
		hasher.Write(buf[:4])
		binary.BigEndian.PutUint64(buf, m.ShardHeights[shard])
		hasher.Write(buf)
		root := m.ShardRoots[shard]
		hasher.Write(root[:])
	}
	binary.BigEndian.PutUint64(buf, m.RewardConsumer)
	hasher.Write(buf)
	binary.BigEndian.PutUint64(buf, m.RewardIndustrial)
	hasher.Write(buf)
	hasher.Write(m.QueueRoot[:])
	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// DBKey returns the storage key for the checkpoint at the given height.
func DBKey(height uint64) []byte {
	key := make([]byte, len(prefixMacroBlock)+8)
	copy(key, prefixMacroBlock)
	binary.BigEndian.PutUint64(key[len(prefixMacroBlock):], height)
	return key
}

const prefixMacroBlock = "macro:"
