package finality

import "pvn/validator"

// Gadget accumulates per-validator votes for a candidate hash, weighted
// by the round's validator snapshot, and declares a hash finalized once
// it holds a strict majority of total stake.
//
// The gadget is a plain state machine: Voting until a majority forms,
// then Finalized until Rollback. It performs no synchronization of its
// own; the owning engine serializes all mutating calls.
type Gadget struct {
	set       *validator.Set
	votes     map[string][32]byte
	finalized [32]byte
	hasFinal  bool
}

// NewGadget binds a fresh gadget to the round's validator snapshot.
func NewGadget(set *validator.Set) *Gadget {
	return &Gadget{
		set:   set,
		votes: make(map[string][32]byte),
	}
}

// Vote records a validator's vote for hash and returns true iff the
// gadget is, or just became, finalized. A later vote from the same
// validator overwrites the earlier one; after finalization further
// votes are ignored and Vote keeps returning true.
func (g *Gadget) Vote(validatorID string, hash [32]byte) bool {
	if g.hasFinal {
		return true
	}

	g.votes[validatorID] = hash

	tally := g.VotesFor(hash)
	// strict majority: an exact 50/50 split never finalizes
	if tally*2 > g.set.TotalStake() {
		g.finalized = hash
		g.hasFinal = true
		return true
	}
	return false
}

// Finalized returns the finalized hash for this round, if any.
func (g *Gadget) Finalized() ([32]byte, bool) {
	return g.finalized, g.hasFinal
}

// Rollback clears the finalized marker, returning the gadget to the
// voting state with its vote history intact. The caller decides when
// rollback is warranted (e.g. on slashing evidence); the gadget trusts
// it.
func (g *Gadget) Rollback() {
	g.finalized = [32]byte{}
	g.hasFinal = false
}

// VotesFor tallies the stake currently voting for hash. Validators
// absent from the snapshot contribute zero weight.
func (g *Gadget) VotesFor(hash [32]byte) uint64 {
	var tally uint64
	for id, voted := range g.votes {
		if voted == hash {
			tally += g.set.StakeOf(id)
		}
	}
	return tally
}

// VoteOf returns the hash a validator currently votes for, if any.
func (g *Gadget) VoteOf(validatorID string) ([32]byte, bool) {
	hash, ok := g.votes[validatorID]
	return hash, ok
}

// VoterCount returns the number of recorded votes.
func (g *Gadget) VoterCount() int {
	return len(g.votes)
}
