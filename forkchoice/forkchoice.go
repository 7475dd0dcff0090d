package forkchoice

import (
	"bytes"

	"github.com/holiman/uint256"
)

// TipMeta describes one competing chain tip for fork choice. Weight is
// the cumulative proof-of-work weight along the tip's history (u128);
// CheckpointHeight is the height of the highest finalized checkpoint in
// that history.
type TipMeta struct {
	Height           uint64
	Weight           *uint256.Int
	TipHash          [32]byte
	CheckpointHeight uint64
}

// Compare ranks two tips and returns >0 if a is the better tip, <0 if b
// is, and 0 only when all four fields match. Precedence, most
// significant first: finalized checkpoint height, PoW height, cumulative
// weight, lexicographically greater tip hash. Finality overrides raw
// proof-of-work: a tip descending from a higher finalized checkpoint
// wins regardless of height or weight.
func Compare(a, b TipMeta) int {
	if a.CheckpointHeight != b.CheckpointHeight {
		if a.CheckpointHeight > b.CheckpointHeight {
			return 1
		}
		return -1
	}
	if a.Height != b.Height {
		if a.Height > b.Height {
			return 1
		}
		return -1
	}
	if cmp := weightOf(a).Cmp(weightOf(b)); cmp != 0 {
		return cmp
	}
	return bytes.Compare(a.TipHash[:], b.TipHash[:])
}

func weightOf(t TipMeta) *uint256.Int {
	if t.Weight == nil {
		return uint256.NewInt(0)
	}
	return t.Weight
}

// Best selects the canonical tip among the candidates. Returns false
// for an empty candidate list.
func Best(tips []TipMeta) (TipMeta, bool) {
	if len(tips) == 0 {
		return TipMeta{}, false
	}
	best := tips[0]
	for _, tip := range tips[1:] {
		if Compare(tip, best) > 0 {
			best = tip
		}
	}
	return best, true
}
