package config

const (
	// DifficultyWindow is the number of trailing blocks consulted when
	// retargeting proof-of-work difficulty.
	DifficultyWindow = 120

	// TargetSpacingMs is the desired block interval in milliseconds.
	TargetSpacingMs = 1000

	// DifficultyClampFactor bounds a single retarget step to [1/4, 4x].
	DifficultyClampFactor = 4.0

	// BootstrapDifficulty is the floor difficulty for an empty chain.
	BootstrapDifficulty = 1

	// MacroInterval is the default checkpoint emission period in blocks.
	MacroInterval = 100

	// MaxQueueMessages caps the inter-shard message queue.
	MaxQueueMessages = 1024
)
