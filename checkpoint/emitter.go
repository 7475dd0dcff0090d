package checkpoint

import (
	"pvn/config"
	"pvn/intershard"
)

// ShardTip is a shard's latest height and state root as observed by the
// block-processing pipeline.
type ShardTip struct {
	Height uint64
	Root   [32]byte
}

// RewardAccumulator carries the reward totals accrued since the last
// checkpoint. Emission folds the totals into the macro block and resets
// the accumulator.
type RewardAccumulator struct {
	Consumer   uint64
	Industrial uint64
}

// AccrueConsumer adds consumer-side rewards for the current interval.
func (r *RewardAccumulator) AccrueConsumer(amount uint64) {
	r.Consumer += amount
}

// AccrueIndustrial adds industrial-side rewards for the current interval.
func (r *RewardAccumulator) AccrueIndustrial(amount uint64) {
	r.Industrial += amount
}

// Reset clears both totals.
func (r *RewardAccumulator) Reset() {
	r.Consumer = 0
	r.Industrial = 0
}

// Emitter produces a MacroBlock every Interval blocks.
type Emitter struct {
	Interval uint64
}

// NewEmitter returns an emitter with the given interval
// (config.MacroInterval when 0).
func NewEmitter(interval uint64) *Emitter {
	if interval == 0 {
		interval = config.MacroInterval
	}
	return &Emitter{Interval: interval}
}

// Due reports whether a checkpoint is due at the given chain height.
func (e *Emitter) Due(height uint64) bool {
	return height > 0 && height%e.Interval == 0
}

// Emit aggregates the shard tips, accumulated rewards and the
// inter-shard queue root into a checkpoint record. Input maps are
// copied so the emitted record stays immutable; the reward accumulator
// is reset for the next interval.
func (e *Emitter) Emit(height uint64, tips map[uint32]ShardTip, rewards *RewardAccumulator, queue *intershard.Queue) *MacroBlock {
	mb := &MacroBlock{
		Height:           height,
		ShardHeights:     make(map[uint32]uint64, len(tips)),
		ShardRoots:       make(map[uint32][32]byte, len(tips)),
		RewardConsumer:   rewards.Consumer,
		RewardIndustrial: rewards.Industrial,
		QueueRoot:        queue.Root(),
	}
	for shard, tip := range tips {
		mb.ShardHeights[shard] = tip.Height
		mb.ShardRoots[shard] = tip.Root
	}
	rewards.Reset()
	return mb
}
