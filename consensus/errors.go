package consensus

import "errors"

var (
	// ErrCheckpointDivergence means another node computed different
	// checkpoint contents at the same height. This is a determinism bug
	// or a consensus split, not a recoverable condition; operators must
	// halt and investigate.
	ErrCheckpointDivergence = errors.New("checkpoint divergence")

	// ErrNonMonotonicHeight means an observed block does not extend the
	// engine's current height by exactly one.
	ErrNonMonotonicHeight = errors.New("non-monotonic block height")
)
