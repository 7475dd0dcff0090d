package validator

import "sort"

// Member is one entry of the UNL: a validator id and its bonded stake.
type Member struct {
	ID    string
	Stake uint64
}

// Set is a point-in-time snapshot of the stake-weighted validator list
// (UNL). It is built once per consensus round from the staking ledger
// and never mutated afterwards, so reads need no locking.
type Set struct {
	stakes map[string]uint64
	total  uint64
}

// NewSet snapshots the given stakes. The input map is copied; zero
// stake entries are dropped since they can never contribute to a tally.
func NewSet(stakes map[string]uint64) *Set {
	s := &Set{stakes: make(map[string]uint64, len(stakes))}
	for id, stake := range stakes {
		if stake == 0 {
			continue
		}
		s.stakes[id] = stake
		s.total += stake
	}
	return s
}

// StakeOf returns the bonded stake of a validator, 0 if absent.
func (s *Set) StakeOf(id string) uint64 {
	return s.stakes[id]
}

// TotalStake returns the sum of all bonded stake in the snapshot.
func (s *Set) TotalStake() uint64 {
	return s.total
}

// Len returns the number of validators with non-zero stake.
func (s *Set) Len() int {
	return len(s.stakes)
}

// Members returns the snapshot entries sorted by validator id so that
// iteration order is deterministic across nodes.
func (s *Set) Members() []Member {
	members := make([]Member, 0, len(s.stakes))
	for id, stake := range s.stakes {
		members = append(members, Member{ID: id, Stake: stake})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members
}
