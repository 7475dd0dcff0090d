package store

import (
	"encoding/binary"
	"fmt"

	"pvn/checkpoint"
	"pvn/db"
	"pvn/jsonx"
)

// ConsensusMetaStore persists the scalar/mapping records owned by the
// consensus core: the validator snapshot used for a round, the latest
// finalized checkpoint height/hash, the latest difficulty, and emitted
// macro blocks. The encoding is stable across restarts.
//
// Keys:
// - PrefixConsensusMeta + MetaKeyLatestDifficulty => 8-byte big-endian value
// - PrefixConsensusMeta + MetaKeyFinalizedCheckpoint => 8-byte height + 32-byte hash
// - PrefixConsensusMeta + MetaKeyValidatorSnapshot => JSON map of id -> stake
// - checkpoint.DBKey(height) => JSON macro block
//
// The finalized checkpoint pointer and its macro block are written in
// one batch; the other records are independent single puts.
type ConsensusMetaStore interface {
	SetLatestDifficulty(difficulty uint64) error
	GetLatestDifficulty() (uint64, bool, error)
	CommitFinalizedCheckpoint(mb *checkpoint.MacroBlock) error
	GetFinalizedCheckpoint() (uint64, [32]byte, bool, error)
	SetValidatorSnapshot(stakes map[string]uint64) error
	GetValidatorSnapshot() (map[string]uint64, bool, error)
	PutMacroBlock(mb *checkpoint.MacroBlock) error
	GetMacroBlock(height uint64) (*checkpoint.MacroBlock, bool, error)
}

// GenericConsensusMetaStore is a database-agnostic implementation over
// a DatabaseProvider, so it works with any backend (LevelDB, Bolt, ...).
type GenericConsensusMetaStore struct {
	provider db.DatabaseProvider
}

// NewGenericConsensusMetaStore creates a meta store with the given provider
func NewGenericConsensusMetaStore(provider db.DatabaseProvider) (*GenericConsensusMetaStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &GenericConsensusMetaStore{provider: provider}, nil
}

func metaKey(name string) []byte {
	return []byte(PrefixConsensusMeta + name)
}

// SetLatestDifficulty stores the difficulty of the latest block
func (s *GenericConsensusMetaStore) SetLatestDifficulty(difficulty uint64) error {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, difficulty)
	if err := s.provider.Put(metaKey(MetaKeyLatestDifficulty), value); err != nil {
		return fmt.Errorf("failed to store latest difficulty: %w", err)
	}
	return nil
}

// GetLatestDifficulty loads the stored difficulty, false when unset
func (s *GenericConsensusMetaStore) GetLatestDifficulty() (uint64, bool, error) {
	value, err := s.provider.Get(metaKey(MetaKeyLatestDifficulty))
	if err != nil {
		return 0, false, fmt.Errorf("failed to get latest difficulty: %w", err)
	}
	if value == nil {
		return 0, false, nil
	}
	if len(value) != 8 {
		return 0, false, fmt.Errorf("invalid difficulty value length: %d", len(value))
	}
	return binary.BigEndian.Uint64(value), true, nil
}

// CommitFinalizedCheckpoint stores the finalized checkpoint pointer and
// the macro block it points at in a single atomic batch. A restart must
// never see a finalized height whose macro block is missing.
func (s *GenericConsensusMetaStore) CommitFinalizedCheckpoint(mb *checkpoint.MacroBlock) error {
	blockValue, err := jsonx.Marshal(mb)
	if err != nil {
		return fmt.Errorf("failed to marshal macro block %d: %w", mb.Height, err)
	}
	hash := mb.Hash()
	pointer := make([]byte, 8+32)
	binary.BigEndian.PutUint64(pointer[:8], mb.Height)
	copy(pointer[8:], hash[:])

	batch := s.provider.Batch()
	defer batch.Close()
	batch.Put(checkpoint.DBKey(mb.Height), blockValue)
	batch.Put(metaKey(MetaKeyFinalizedCheckpoint), pointer)
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to commit finalized checkpoint %d: %w", mb.Height, err)
	}
	return nil
}

// GetFinalizedCheckpoint loads the latest finalized checkpoint, false when unset
func (s *GenericConsensusMetaStore) GetFinalizedCheckpoint() (uint64, [32]byte, bool, error) {
	var hash [32]byte
	value, err := s.provider.Get(metaKey(MetaKeyFinalizedCheckpoint))
	if err != nil {
		return 0, hash, false, fmt.Errorf("failed to get finalized checkpoint: %w", err)
	}
	if value == nil {
		return 0, hash, false, nil
	}
	if len(value) != 8+32 {
		return 0, hash, false, fmt.Errorf("invalid finalized checkpoint length: %d", len(value))
	}
	copy(hash[:], value[8:])
	return binary.BigEndian.Uint64(value[:8]), hash, true, nil
}

// SetValidatorSnapshot stores the round's validator stakes
func (s *GenericConsensusMetaStore) SetValidatorSnapshot(stakes map[string]uint64) error {
	value, err := jsonx.Marshal(stakes)
	if err != nil {
		return fmt.Errorf("failed to marshal validator snapshot: %w", err)
	}
	if err := s.provider.Put(metaKey(MetaKeyValidatorSnapshot), value); err != nil {
		return fmt.Errorf("failed to store validator snapshot: %w", err)
	}
	return nil
}

// GetValidatorSnapshot loads the stored validator stakes, false when unset
func (s *GenericConsensusMetaStore) GetValidatorSnapshot() (map[string]uint64, bool, error) {
	value, err := s.provider.Get(metaKey(MetaKeyValidatorSnapshot))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get validator snapshot: %w", err)
	}
	if value == nil {
		return nil, false, nil
	}
	var stakes map[string]uint64
	if err := jsonx.Unmarshal(value, &stakes); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal validator snapshot: %w", err)
	}
	return stakes, true, nil
}

// PutMacroBlock stores an emitted checkpoint by height
func (s *GenericConsensusMetaStore) PutMacroBlock(mb *checkpoint.MacroBlock) error {
	value, err := jsonx.Marshal(mb)
	if err != nil {
		return fmt.Errorf("failed to marshal macro block %d: %w", mb.Height, err)
	}
	if err := s.provider.Put(checkpoint.DBKey(mb.Height), value); err != nil {
		return fmt.Errorf("failed to store macro block %d: %w", mb.Height, err)
	}
	return nil
}

// GetMacroBlock retrieves a stored checkpoint by height, false when absent
func (s *GenericConsensusMetaStore) GetMacroBlock(height uint64) (*checkpoint.MacroBlock, bool, error) {
	value, err := s.provider.Get(checkpoint.DBKey(height))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get macro block %d: %w", height, err)
	}
	if value == nil {
		return nil, false, nil
	}
	var mb checkpoint.MacroBlock
	if err := jsonx.Unmarshal(value, &mb); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal macro block %d: %w", height, err)
	}
	return &mb, true, nil
}
