package store

import (
	"fmt"

	"pvn/db"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// BoltStoreType uses the bbolt implementation
	BoltStoreType StoreType = "bolt"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Path is the database directory (LevelDB) or file (Bolt)
	Path string `json:"path" yaml:"path"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	if sc.Type == "" {
		return fmt.Errorf("store type cannot be empty")
	}
	if sc.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	switch sc.Type {
	case LevelDBStoreType, BoltStoreType:
		return nil
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// CreateProvider creates a database provider based on the configuration
func CreateProvider(config *StoreConfig) (db.DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBStoreType:
		return db.NewLevelDBProvider(config.Path)
	case BoltStoreType:
		return db.NewBoltProvider(config.Path)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// CreateConsensusMetaStore creates the meta store together with its provider.
func CreateConsensusMetaStore(config *StoreConfig) (ConsensusMetaStore, db.DatabaseProvider, error) {
	provider, err := CreateProvider(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider: %w", err)
	}
	metaStore, err := NewGenericConsensusMetaStore(provider)
	if err != nil {
		provider.Close()
		return nil, nil, fmt.Errorf("failed to create consensus meta store: %w", err)
	}
	return metaStore, provider, nil
}
