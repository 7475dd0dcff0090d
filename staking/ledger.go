package staking

import (
	"errors"
	"fmt"
	"sync"

	"pvn/logx"
	"pvn/validator"
)

// Ledger is the authoritative record of bonded stake. It mutates over
// time as validators bond, unbond and get slashed; consensus rounds
// never read it live but take immutable snapshots at round boundaries.
type Ledger struct {
	mu    sync.RWMutex
	bonds map[string]uint64
	total uint64
}

// NewLedger creates an empty staking ledger.
func NewLedger() *Ledger {
	return &Ledger{bonds: make(map[string]uint64)}
}

// NewLedgerFromGenesis seeds the ledger with the genesis stakes.
func NewLedgerFromGenesis(stakes map[string]uint64) *Ledger {
	l := NewLedger()
	for id, stake := range stakes {
		if stake == 0 {
			continue
		}
		l.bonds[id] = stake
		l.total += stake
	}
	return l
}

// Bond adds stake to a validator, creating the entry if needed.
func (l *Ledger) Bond(id string, amount uint64) error {
	if amount == 0 {
		return errors.New("bond amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.bonds[id] += amount
	l.total += amount
	return nil
}

// Unbond removes stake from a validator. Removing more than is bonded
// is an error; a bond drained to zero is deleted.
func (l *Ledger) Unbond(id string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bonded, exists := l.bonds[id]
	if !exists {
		return fmt.Errorf("validator %s not bonded", id)
	}
	if amount > bonded {
		return fmt.Errorf("unbond %d exceeds bonded %d for %s", amount, bonded, id)
	}

	l.bonds[id] = bonded - amount
	l.total -= amount
	if l.bonds[id] == 0 {
		delete(l.bonds, id)
	}
	return nil
}

// Slash burns up to amount of a validator's bond in response to
// misbehavior evidence. Slashing saturates at the bonded amount and
// returns how much was actually burned.
func (l *Ledger) Slash(id string, amount uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bonded, exists := l.bonds[id]
	if !exists {
		return 0, fmt.Errorf("validator %s not bonded", id)
	}

	burned := amount
	if burned > bonded {
		burned = bonded
	}
	l.bonds[id] = bonded - burned
	l.total -= burned
	if l.bonds[id] == 0 {
		delete(l.bonds, id)
	}
	logx.Warn("STAKING", "Slashed ", id, " by ", burned, ", remaining ", l.bonds[id])
	return burned, nil
}

// Bonded returns the current bond of a validator, 0 if absent.
func (l *Ledger) Bonded(id string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bonds[id]
}

// TotalBonded returns the sum of all bonds.
func (l *Ledger) TotalBonded() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Snapshot materializes an immutable validator set from current bonds.
// The snapshot owns a copy, so stake changes after round start never
// alter tallies already in progress.
func (l *Ledger) Snapshot() *validator.Set {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return validator.NewSet(l.bonds)
}
