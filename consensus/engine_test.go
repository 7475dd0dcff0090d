package consensus

import (
	"errors"
	"path/filepath"
	"testing"

	"pvn/block"
	"pvn/checkpoint"
	"pvn/config"
	"pvn/intershard"
	"pvn/staking"
	"pvn/store"
	"pvn/validator"
)

func testConfig() *config.ConsensusConfig {
	cfg := config.DefaultConsensusConfig()
	cfg.MacroInterval = 5
	return cfg
}

func threeValidators() *validator.Set {
	return validator.NewSet(map[string]uint64{"v1": 10, "v2": 10, "v3": 10})
}

// observeChain feeds n linked headers spaced spacingMs apart.
func observeChain(t *testing.T, e *Engine, n int, spacingMs, diff uint64) []block.Header {
	t.Helper()
	headers := make([]block.Header, n)
	var prev [32]byte
	for i := 0; i < n; i++ {
		h := block.NewHeader(uint64(i+1), 1_000_000+uint64(i)*spacingMs, diff, prev)
		if err := e.ObserveBlock(h); err != nil {
			t.Fatalf("ObserveBlock(%d) failed: %v", i+1, err)
		}
		headers[i] = h
		prev = h.Hash
	}
	return headers
}

func TestEngine_EmitsCandidateAtInterval(t *testing.T) {
	e := NewEngine(threeValidators(), testConfig(), nil)
	e.UpdateShardTip(0, checkpoint.ShardTip{Height: 3, Root: [32]byte{1}})
	e.AccrueRewards(100, 200)

	observeChain(t, e, 4, 1000, 1000)
	if _, ok := e.Candidate(); ok {
		t.Fatal("no candidate expected before the macro interval")
	}

	h := block.NewHeader(5, 1_005_000, 1000, [32]byte{})
	if err := e.ObserveBlock(h); err != nil {
		t.Fatalf("ObserveBlock(5) failed: %v", err)
	}

	mb, ok := e.Candidate()
	if !ok {
		t.Fatal("candidate expected at height 5")
	}
	if mb.Height != 5 {
		t.Fatalf("candidate height = %d, want 5", mb.Height)
	}
	if mb.RewardConsumer != 100 || mb.RewardIndustrial != 200 {
		t.Fatalf("candidate rewards = %d/%d, want 100/200", mb.RewardConsumer, mb.RewardIndustrial)
	}
	if mb.ShardHeights[0] != 3 {
		t.Fatalf("candidate shard height = %d, want 3", mb.ShardHeights[0])
	}
}

func TestEngine_VoteFinalizesCandidate(t *testing.T) {
	e := NewEngine(threeValidators(), testConfig(), nil)
	observeChain(t, e, 5, 1000, 1000)

	mb, ok := e.Candidate()
	if !ok {
		t.Fatal("candidate expected")
	}
	hash := mb.Hash()

	if e.Vote("v1", hash) {
		t.Fatal("10/30 should not finalize")
	}
	if !e.Vote("v2", hash) {
		t.Fatal("20/30 should finalize")
	}

	height, got, ok := e.FinalizedCheckpoint()
	if !ok {
		t.Fatal("finalized checkpoint expected")
	}
	if height != 5 || got != hash {
		t.Fatalf("FinalizedCheckpoint = (%d, %v), want (5, candidate hash)", height, got)
	}

	snap := e.Snapshot()
	if snap.Height != 5 || !snap.HasFinalized || snap.TotalStake != 30 || snap.Voters != 2 {
		t.Fatalf("Snapshot = %+v, want height 5, finalized, stake 30, 2 voters", snap)
	}
}

func TestEngine_CandidateIsDetachedCopy(t *testing.T) {
	e := NewEngine(threeValidators(), testConfig(), nil)
	e.UpdateShardTip(0, checkpoint.ShardTip{Height: 3, Root: [32]byte{1}})
	observeChain(t, e, 5, 1000, 1000)

	mb, ok := e.Candidate()
	if !ok {
		t.Fatal("candidate expected")
	}
	hash := mb.Hash()

	// scribbling on the returned copy must not reach the engine
	mb.RewardConsumer = 999
	mb.ShardHeights[0] = 42
	mb.ShardRoots[7] = [32]byte{0xbe}

	if err := e.ObserveCheckpoint(5, hash); err != nil {
		t.Fatalf("original hash no longer matches: %v", err)
	}
	fresh, _ := e.Candidate()
	if fresh.Hash() != hash {
		t.Fatal("engine candidate changed after caller mutation")
	}
}

func TestEngine_ObserveBlockRejectsHeightGap(t *testing.T) {
	e := NewEngine(threeValidators(), testConfig(), nil)
	observeChain(t, e, 2, 1000, 1000)

	gap := block.NewHeader(7, 1_010_000, 1000, [32]byte{})
	if err := e.ObserveBlock(gap); !errors.Is(err, ErrNonMonotonicHeight) {
		t.Fatalf("gap: got %v, want ErrNonMonotonicHeight", err)
	}
}

func TestEngine_ObserveCheckpointDivergenceIsFatal(t *testing.T) {
	e := NewEngine(threeValidators(), testConfig(), nil)
	observeChain(t, e, 5, 1000, 1000)

	mb, _ := e.Candidate()
	if err := e.ObserveCheckpoint(5, mb.Hash()); err != nil {
		t.Fatalf("matching checkpoint rejected: %v", err)
	}

	var wrong [32]byte
	wrong[0] = 0xde
	if err := e.ObserveCheckpoint(5, wrong); !errors.Is(err, ErrCheckpointDivergence) {
		t.Fatalf("divergent checkpoint: got %v, want ErrCheckpointDivergence", err)
	}

	if err := e.ObserveCheckpoint(999, mb.Hash()); err == nil {
		t.Fatal("unknown height should be rejected")
	}
}

// Slashing scenario across rounds: v1+v2 finalize "A"; after v2 is
// slashed to zero a fresh round over v1=10, v3=10 needs both remaining
// validators to finalize "B".
func TestEngine_NewRoundAfterSlashing(t *testing.T) {
	ledger := staking.NewLedgerFromGenesis(map[string]uint64{"v1": 10, "v2": 10, "v3": 10})
	e := NewEngine(ledger.Snapshot(), testConfig(), nil)

	var hashA [32]byte
	hashA[0] = 'A'
	e.Vote("v1", hashA)
	if !e.Vote("v2", hashA) {
		t.Fatal("20/30 should finalize A")
	}

	if _, err := ledger.Slash("v2", 10); err != nil {
		t.Fatalf("Slash failed: %v", err)
	}
	e.NewRound(ledger.Snapshot())
	if _, ok := e.Finalized(); ok {
		t.Fatal("new round must start unfinalized")
	}

	var hashB [32]byte
	hashB[0] = 'B'
	if e.Vote("v1", hashB) {
		t.Fatal("10/20 is exactly half, must not finalize")
	}
	if !e.Vote("v3", hashB) {
		t.Fatal("20/20 should finalize B")
	}
	final, ok := e.Finalized()
	if !ok || final != hashB {
		t.Fatalf("Finalized = %v, %v, want B", final, ok)
	}
}

func TestEngine_Rollback(t *testing.T) {
	e := NewEngine(threeValidators(), testConfig(), nil)
	observeChain(t, e, 5, 1000, 1000)

	mb, _ := e.Candidate()
	hash := mb.Hash()
	e.Vote("v1", hash)
	e.Vote("v2", hash)

	e.Rollback()
	if _, ok := e.Finalized(); ok {
		t.Fatal("Rollback should clear the finalized marker")
	}
	if _, _, ok := e.FinalizedCheckpoint(); ok {
		t.Fatal("Rollback should clear the finalized checkpoint")
	}

	// vote history intact, a further vote re-finalizes
	if !e.Vote("v3", hash) {
		t.Fatal("vote after rollback should re-finalize")
	}
}

func TestEngine_NextDifficulty(t *testing.T) {
	e := NewEngine(threeValidators(), testConfig(), nil)
	observeChain(t, e, 5, 500, 1000)

	// 4 intervals of 500ms against a 1000ms target retargets 2x
	if got := e.NextDifficulty(); got != 2000 {
		t.Fatalf("NextDifficulty = %d, want 2000", got)
	}
}

func TestEngine_QueueReplayProtection(t *testing.T) {
	e := NewEngine(threeValidators(), testConfig(), nil)
	m := intershard.Message{FromShard: 0, ToShard: 1, Payload: []byte("x")}

	if err := e.EnqueueMessage(m); err != nil {
		t.Fatalf("EnqueueMessage failed: %v", err)
	}
	if err := e.EnqueueMessage(m); !errors.Is(err, intershard.ErrReplay) {
		t.Fatalf("replay: got %v, want ErrReplay", err)
	}
	if _, ok := e.DequeueMessage(); !ok {
		t.Fatal("DequeueMessage failed")
	}
}

func TestEngine_PersistsThroughMetaStore(t *testing.T) {
	metaStore, provider, err := store.CreateConsensusMetaStore(&store.StoreConfig{
		Type: store.BoltStoreType,
		Path: filepath.Join(t.TempDir(), "meta.db"),
	})
	if err != nil {
		t.Fatalf("CreateConsensusMetaStore failed: %v", err)
	}
	defer provider.Close()

	e := NewEngine(threeValidators(), testConfig(), metaStore)
	observeChain(t, e, 5, 1000, 1234)

	mb, _ := e.Candidate()
	hash := mb.Hash()
	e.Vote("v1", hash)
	e.Vote("v2", hash)

	diff, ok, err := metaStore.GetLatestDifficulty()
	if err != nil || !ok || diff != 1234 {
		t.Fatalf("GetLatestDifficulty = (%d, %v, %v), want (1234, true, nil)", diff, ok, err)
	}

	height, storedHash, ok, err := metaStore.GetFinalizedCheckpoint()
	if err != nil || !ok {
		t.Fatalf("GetFinalizedCheckpoint failed: ok=%v err=%v", ok, err)
	}
	if height != 5 || storedHash != hash {
		t.Fatalf("stored checkpoint = (%d, %v), want (5, candidate hash)", height, storedHash)
	}

	storedMb, ok, err := metaStore.GetMacroBlock(5)
	if err != nil || !ok {
		t.Fatalf("GetMacroBlock failed: ok=%v err=%v", ok, err)
	}
	if storedMb.Hash() != hash {
		t.Fatal("stored macro block hash mismatch")
	}

	stakes, ok, err := metaStore.GetValidatorSnapshot()
	if err != nil || !ok {
		t.Fatalf("GetValidatorSnapshot failed: ok=%v err=%v", ok, err)
	}
	if stakes["v1"] != 10 || len(stakes) != 3 {
		t.Fatalf("stored snapshot = %v, want three validators of 10", stakes)
	}
}
