// Package score accumulates per-address voting weights across chains.
package score

import (
	"encoding/json"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// Map is a mapping from canonical address to accumulated score.
// It is not safe for concurrent mutation; one goroutine owns it per invocation.
type Map struct {
	scores map[common.Address]float64
}

// NewMap returns an empty score map.
func NewMap() *Map {
	return &Map{scores: make(map[common.Address]float64)}
}

// Merge adds delta to the score of addr, inserting it when absent.
// Repeated merges commute, so the final map does not depend on holder order.
func (m *Map) Merge(addr common.Address, delta float64) {
	m.scores[addr] += delta
}

// Get returns the score of addr and whether it is present.
func (m *Map) Get(addr common.Address) (float64, bool) {
	v, ok := m.scores[addr]
	return v, ok
}

// Len returns the number of scored addresses.
func (m *Map) Len() int {
	return len(m.scores)
}

// Total sums all scores. For a complete holder set this approximates 1.
func (m *Map) Total() float64 {
	var total float64
	for _, addr := range m.Addresses() {
		total += m.scores[addr]
	}
	return total
}

// Addresses returns the scored addresses in ascending byte order.
func (m *Map) Addresses() []common.Address {
	addrs := make([]common.Address, 0, len(m.scores))
	for addr := range m.scores {
		addrs = append(addrs, addr)
	}
	slices.SortFunc(addrs, func(a, b common.Address) int { return a.Cmp(b) })
	return addrs
}

// Snapshot returns a copy keyed by EIP-55 checksum address.
func (m *Map) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(m.scores))
	for addr, v := range m.scores {
		out[addr.Hex()] = v
	}
	return out
}

// MarshalJSON encodes the map as {"0xChecksumAddress": score}.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}
