package consensus

import (
	"fmt"
	"sync"

	"pvn/block"
	"pvn/checkpoint"
	"pvn/common"
	"pvn/config"
	"pvn/difficulty"
	"pvn/exception"
	"pvn/finality"
	"pvn/intershard"
	"pvn/logx"
	"pvn/monitoring"
	"pvn/validator"
)

// MetaStore is the slice of the persistence layer the engine writes
// through. store.ConsensusMetaStore satisfies it; a nil MetaStore
// disables persistence.
type MetaStore interface {
	SetLatestDifficulty(difficulty uint64) error
	CommitFinalizedCheckpoint(mb *checkpoint.MacroBlock) error
	SetValidatorSnapshot(stakes map[string]uint64) error
	PutMacroBlock(mb *checkpoint.MacroBlock) error
}

// Engine composes the validator snapshot, finality gadget and
// checkpoint emitter behind a single vote/rollback/snapshot surface for
// the block-processing pipeline. One engine instance owns one round's
// state; all mutating calls are serialized behind its mutex, reads take
// the read lock.
type Engine struct {
	mu sync.RWMutex

	set     *validator.Set
	gadget  *finality.Gadget
	emitter *checkpoint.Emitter
	diffCtl *difficulty.Controller
	queue   *intershard.Queue
	meta    MetaStore

	rewards   checkpoint.RewardAccumulator
	shardTips map[uint32]checkpoint.ShardTip
	recent    []block.Header
	height    uint64

	candidate     *checkpoint.MacroBlock
	candidateHash [32]byte

	finalizedCpHeight uint64
	finalizedCpHash   [32]byte
	hasFinalizedCp    bool
}

// EngineSnapshot is a read-only view of the engine state.
type EngineSnapshot struct {
	Height                    uint64
	TotalStake                uint64
	Voters                    int
	FinalizedHash             [32]byte
	HasFinalized              bool
	FinalizedCheckpointHeight uint64
	QueueLen                  int
}

// NewEngine creates an engine for the round described by the validator
// snapshot. cfg may be nil for the built-in defaults, meta may be nil
// to disable persistence.
func NewEngine(set *validator.Set, cfg *config.ConsensusConfig, meta MetaStore) *Engine {
	if cfg == nil {
		cfg = config.DefaultConsensusConfig()
	}
	e := &Engine{
		set:       set,
		gadget:    finality.NewGadget(set),
		emitter:   checkpoint.NewEmitter(cfg.MacroInterval),
		diffCtl:   difficulty.FromConfig(cfg),
		queue:     intershard.NewQueue(config.MaxQueueMessages),
		meta:      meta,
		shardTips: make(map[uint32]checkpoint.ShardTip),
	}
	e.persistSnapshot()
	logx.Info("CONSENSUS", "Engine ready: validators=", set.Len(),
		" total_stake=", set.TotalStake(),
		" macro_interval=", e.emitter.Interval)
	return e
}

// NewRound installs a fresh validator snapshot and finality gadget.
// Bonds, slashes and unbonds applied since the last round take effect
// here and only here; tallies in progress are discarded with the old
// gadget.
func (e *Engine) NewRound(set *validator.Set) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.set = set
	e.gadget = finality.NewGadget(set)
	e.persistSnapshot()
	logx.Info("CONSENSUS", "New round: validators=", set.Len(),
		" total_stake=", set.TotalStake())
}

// Vote records a validator's vote for a checkpoint hash and returns
// true iff the round is, or just became, finalized.
func (e *Engine) Vote(validatorID string, hash [32]byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, wasFinalized := e.gadget.Finalized()
	if prev, voted := e.gadget.VoteOf(validatorID); voted && prev != hash && !wasFinalized {
		// vote overwrite is allowed within a round, but equivocation is
		// worth an operator's attention
		logx.Warn("CONSENSUS", "Validator ", validatorID, " changed vote ",
			common.ShortHash(prev), " -> ", common.ShortHash(hash))
	}

	finalized := e.gadget.Vote(validatorID, hash)
	monitoring.IncreaseVoteCount()

	if finalized && !wasFinalized {
		monitoring.IncreaseFinalizedRoundCount()
		logx.Info("CONSENSUS", "Finalized ", common.ShortHash(hash),
			" with ", e.gadget.VotesFor(hash), "/", e.set.TotalStake(), " stake")
		if e.candidate != nil && hash == e.candidateHash {
			e.finalizedCpHeight = e.candidate.Height
			e.finalizedCpHash = hash
			e.hasFinalizedCp = true
			monitoring.SetFinalizedCheckpointHeight(e.finalizedCpHeight)
			if e.meta != nil {
				// pointer and macro block land in one batch
				if err := e.meta.CommitFinalizedCheckpoint(e.candidate); err != nil {
					logx.Error("CONSENSUS", "Failed to persist finalized checkpoint: ", err)
				}
			}
		}
	}
	return finalized
}

// Finalized returns the finalized hash of the current round, if any.
func (e *Engine) Finalized() ([32]byte, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gadget.Finalized()
}

// FinalizedCheckpoint returns the height and hash of the latest
// checkpoint this engine has finalized.
func (e *Engine) FinalizedCheckpoint() (uint64, [32]byte, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.finalizedCpHeight, e.finalizedCpHash, e.hasFinalizedCp
}

// Rollback clears the finalized marker while keeping the vote history,
// so a later majority (e.g. after slashing removed a validator's
// weight) can finalize a different hash. The engine performs no
// validation of the justification; that policy belongs to the caller.
func (e *Engine) Rollback() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.gadget.Finalized(); !ok {
		return
	}
	e.gadget.Rollback()
	e.hasFinalizedCp = false
	monitoring.IncreaseRollbackCount()
	logx.Warn("CONSENSUS", "Rolled back finalized marker at height ", e.height)
}

// ObserveBlock feeds a validated block header into the engine: height
// bookkeeping, the difficulty window, and checkpoint emission at macro
// interval boundaries.
func (e *Engine) ObserveBlock(h block.Header) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.recent) > 0 && h.Height != e.height+1 {
		return fmt.Errorf("%w: got %d, expected %d", ErrNonMonotonicHeight, h.Height, e.height+1)
	}

	e.recent = append(e.recent, h)
	if len(e.recent) > e.diffCtl.Window {
		e.recent = e.recent[len(e.recent)-e.diffCtl.Window:]
	}
	e.height = h.Height
	logx.Debug("CONSENSUS", "Observed block height=", h.Height,
		" difficulty=", h.Difficulty, " window=", len(e.recent))

	monitoring.SetBlockHeight(h.Height)
	monitoring.SetDifficulty(h.Difficulty)
	if e.meta != nil {
		if err := e.meta.SetLatestDifficulty(h.Difficulty); err != nil {
			logx.Error("CONSENSUS", "Failed to persist difficulty: ", err)
		}
	}

	if e.emitter.Due(h.Height) {
		mb := e.emitter.Emit(h.Height, e.shardTips, &e.rewards, e.queue)
		e.candidate = mb
		e.candidateHash = mb.Hash()
		if e.meta != nil {
			if err := e.meta.PutMacroBlock(mb); err != nil {
				logx.Error("CONSENSUS", "Failed to persist macro block: ", err)
			}
		}
		logx.Info("CONSENSUS", "Emitted checkpoint at height ", mb.Height,
			" hash=", common.ShortHash(e.candidateHash))
	}
	return nil
}

// ObserveCheckpoint cross-checks a checkpoint hash computed elsewhere
// against the locally emitted one at the same height. A mismatch is a
// fatal correctness violation and is surfaced loudly, never reconciled.
func (e *Engine) ObserveCheckpoint(height uint64, hash [32]byte) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.candidate == nil || e.candidate.Height != height {
		return fmt.Errorf("no local checkpoint at height %d", height)
	}
	if hash != e.candidateHash {
		monitoring.IncreaseCheckpointDivergenceCount()
		logx.Error("CONSENSUS", "FATAL checkpoint divergence at height ", height,
			": local=", common.HashToBase58(e.candidateHash),
			" remote=", common.HashToBase58(hash))
		return fmt.Errorf("%w at height %d", ErrCheckpointDivergence, height)
	}
	return nil
}

// Candidate returns a copy of the latest emitted checkpoint, the hash
// validators are expected to vote on. The engine's own record is never
// exposed; the emitted checkpoint must stay immutable.
func (e *Engine) Candidate() (*checkpoint.MacroBlock, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.candidate == nil {
		return nil, false
	}
	return e.candidate.Copy(), true
}

// NextDifficulty computes the PoW target for the next block from the
// trailing window of observed headers.
func (e *Engine) NextDifficulty() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.diffCtl.Next(e.recent)
}

// UpdateShardTip records a shard's latest height and state root for the
// next checkpoint.
func (e *Engine) UpdateShardTip(shard uint32, tip checkpoint.ShardTip) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shardTips[shard] = tip
}

// AccrueRewards adds reward totals accrued since the last checkpoint.
func (e *Engine) AccrueRewards(consumer, industrial uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewards.AccrueConsumer(consumer)
	e.rewards.AccrueIndustrial(industrial)
}

// EnqueueMessage appends an inter-shard message, with replay protection.
func (e *Engine) EnqueueMessage(m intershard.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Enqueue(m)
}

// DequeueMessage pops the oldest inter-shard message.
func (e *Engine) DequeueMessage() (intershard.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Dequeue()
}

// Snapshot returns a read-only copy of the engine state.
func (e *Engine) Snapshot() EngineSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	finalizedHash, hasFinalized := e.gadget.Finalized()
	return EngineSnapshot{
		Height:                    e.height,
		TotalStake:                e.set.TotalStake(),
		Voters:                    e.gadget.VoterCount(),
		FinalizedHash:             finalizedHash,
		HasFinalized:              hasFinalized,
		FinalizedCheckpointHeight: e.finalizedCpHeight,
		QueueLen:                  e.queue.Len(),
	}
}

// StartMetrics exposes prometheus metrics on addr in a panic-isolated
// goroutine.
func (e *Engine) StartMetrics(addr string) {
	exception.SafeGo("metrics-server", func() {
		monitoring.Serve(addr)
	})
}

func (e *Engine) persistSnapshot() {
	if e.meta == nil {
		return
	}
	stakes := make(map[string]uint64, e.set.Len())
	for _, m := range e.set.Members() {
		stakes[m.ID] = m.Stake
	}
	if err := e.meta.SetValidatorSnapshot(stakes); err != nil {
		logx.Error("CONSENSUS", "Failed to persist validator snapshot: ", err)
	}
}
