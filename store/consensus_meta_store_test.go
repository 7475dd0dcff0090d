package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pvn/checkpoint"
	"pvn/db"
)

func openProviders(t *testing.T) map[string]db.DatabaseProvider {
	t.Helper()
	leveldbProvider, err := db.NewLevelDBProvider(filepath.Join(t.TempDir(), "leveldb"))
	require.NoError(t, err)
	boltProvider, err := db.NewBoltProvider(filepath.Join(t.TempDir(), "bolt.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		leveldbProvider.Close()
		boltProvider.Close()
	})
	return map[string]db.DatabaseProvider{
		"leveldb": leveldbProvider,
		"bolt":    boltProvider,
	}
}

func TestConsensusMetaStore_Roundtrip(t *testing.T) {
	for name, provider := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			metaStore, err := NewGenericConsensusMetaStore(provider)
			require.NoError(t, err)

			// unset keys report absence, not errors
			_, ok, err := metaStore.GetLatestDifficulty()
			require.NoError(t, err)
			require.False(t, ok)
			_, _, ok, err = metaStore.GetFinalizedCheckpoint()
			require.NoError(t, err)
			require.False(t, ok)
			_, ok, err = metaStore.GetValidatorSnapshot()
			require.NoError(t, err)
			require.False(t, ok)
			_, ok, err = metaStore.GetMacroBlock(100)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, metaStore.SetLatestDifficulty(4096))
			diff, ok, err := metaStore.GetLatestDifficulty()
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, uint64(4096), diff)

			finalized := &checkpoint.MacroBlock{
				Height:       300,
				ShardHeights: map[uint32]uint64{1: 7},
				QueueRoot:    [32]byte{0xab},
			}
			require.NoError(t, metaStore.CommitFinalizedCheckpoint(finalized))
			height, storedHash, ok, err := metaStore.GetFinalizedCheckpoint()
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, uint64(300), height)
			require.Equal(t, finalized.Hash(), storedHash)

			// the macro block landed in the same batch as the pointer
			committed, ok, err := metaStore.GetMacroBlock(300)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, finalized.Hash(), committed.Hash())

			stakes := map[string]uint64{"v1": 10, "v2": 25}
			require.NoError(t, metaStore.SetValidatorSnapshot(stakes))
			storedStakes, ok, err := metaStore.GetValidatorSnapshot()
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, stakes, storedStakes)

			mb := &checkpoint.MacroBlock{
				Height:           100,
				ShardHeights:     map[uint32]uint64{0: 42},
				ShardRoots:       map[uint32][32]byte{0: {1, 2, 3}},
				RewardConsumer:   500,
				RewardIndustrial: 700,
				QueueRoot:        [32]byte{9},
			}
			require.NoError(t, metaStore.PutMacroBlock(mb))
			storedMb, ok, err := metaStore.GetMacroBlock(100)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, mb.Hash(), storedMb.Hash())
		})
	}
}

func TestConsensusMetaStore_OverwriteKeepsLatest(t *testing.T) {
	provider, err := db.NewBoltProvider(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	defer provider.Close()

	metaStore, err := NewGenericConsensusMetaStore(provider)
	require.NoError(t, err)

	first := &checkpoint.MacroBlock{Height: 100, QueueRoot: [32]byte{1}}
	second := &checkpoint.MacroBlock{Height: 200, QueueRoot: [32]byte{2}}
	require.NoError(t, metaStore.CommitFinalizedCheckpoint(first))
	require.NoError(t, metaStore.CommitFinalizedCheckpoint(second))

	height, hash, ok, err := metaStore.GetFinalizedCheckpoint()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(200), height)
	require.Equal(t, second.Hash(), hash)

	// earlier committed macro blocks stay addressable by height
	earlier, ok, err := metaStore.GetMacroBlock(100)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first.Hash(), earlier.Hash())
}

func TestStoreConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		config  StoreConfig
		wantErr bool
	}{
		{"leveldb ok", StoreConfig{Type: LevelDBStoreType, Path: "/tmp/x"}, false},
		{"bolt ok", StoreConfig{Type: BoltStoreType, Path: "/tmp/x"}, false},
		{"missing type", StoreConfig{Path: "/tmp/x"}, true},
		{"missing path", StoreConfig{Type: BoltStoreType}, true},
		{"unknown type", StoreConfig{Type: "redis", Path: "/tmp/x"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.config.Validate()
			if c.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCreateConsensusMetaStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")
	cfg := &StoreConfig{Type: BoltStoreType, Path: path}

	metaStore, provider, err := CreateConsensusMetaStore(cfg)
	require.NoError(t, err)
	require.NoError(t, metaStore.SetLatestDifficulty(777))
	require.NoError(t, provider.Close())

	metaStore, provider, err = CreateConsensusMetaStore(cfg)
	require.NoError(t, err)
	defer provider.Close()

	diff, ok, err := metaStore.GetLatestDifficulty()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(777), diff)
}
