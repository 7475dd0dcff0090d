package store

// Declare database key prefix for objects
const (
	// macro blocks live under checkpoint.DBKey's own "macro:" prefix
	PrefixConsensusMeta = "consensus_meta:"

	MetaKeyLatestDifficulty    = "latest_difficulty"
	MetaKeyFinalizedCheckpoint = "finalized_checkpoint"
	MetaKeyValidatorSnapshot   = "validator_snapshot"
)
