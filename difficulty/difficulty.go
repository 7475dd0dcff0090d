package difficulty

import (
	"math"

	"pvn/block"
	"pvn/config"
)

// Controller retargets the proof-of-work difficulty from recent block
// timing. It is a pure function over a caller-supplied chain slice and
// needs no locking of its own.
type Controller struct {
	Window          int
	TargetSpacingMs uint64
	Clamp           float64
}

// NewController returns a controller with the governance defaults.
func NewController() *Controller {
	return &Controller{
		Window:          config.DifficultyWindow,
		TargetSpacingMs: config.TargetSpacingMs,
		Clamp:           config.DifficultyClampFactor,
	}
}

// FromConfig builds a controller from loaded consensus parameters.
func FromConfig(cfg *config.ConsensusConfig) *Controller {
	return &Controller{
		Window:          cfg.DifficultyWindow,
		TargetSpacingMs: cfg.TargetSpacingMs,
		Clamp:           cfg.ClampFactor,
	}
}

// Next computes the difficulty for the block after the given chain.
// Every node observing the same chain must compute the identical value:
// the only float rounding happens once, at the final step, as
// round-half-away-from-zero.
func (c *Controller) Next(recent []block.Header) uint64 {
	if len(recent) == 0 {
		return config.BootstrapDifficulty
	}

	window := recent
	if len(window) > c.Window {
		window = window[len(window)-c.Window:]
	}

	current := window[len(window)-1].Difficulty
	if len(window) < 2 {
		// not enough data to retarget
		return current
	}

	first := window[0]
	last := window[len(window)-1]
	// guard against malicious or broken clocks
	if first.Timestamp == 0 || last.Timestamp <= first.Timestamp {
		return current
	}

	actual := float64(last.Timestamp - first.Timestamp)
	expected := float64(uint64(len(window)-1) * c.TargetSpacingMs)

	ratio := expected / actual
	if ratio > c.Clamp {
		ratio = c.Clamp
	}
	if ratio < 1/c.Clamp {
		ratio = 1 / c.Clamp
	}

	next := uint64(math.Round(float64(current) * ratio))
	if next < 1 {
		next = 1
	}
	return next
}
