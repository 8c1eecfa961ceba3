// Package chain reads the global debt figures of each chain at a block.
//
// Two DebtSource implementations are interchangeable: ContractSource performs
// live eth_call reads, StaticSource serves figures supplied by configuration
// for chains whose debt cache is not queried live.
package chain

import (
	"context"
	"fmt"

	"github.com/okian/debtshare/internal/domain/model"
)

// DebtSource reads a chain's total debt and last debt ledger entry.
type DebtSource interface {
	ReadDebtSnapshot(ctx context.Context, chain model.Chain, tag model.BlockTag) (model.DebtSnapshot, error)
}

// StaticSource returns preconfigured snapshots and ignores the block tag.
type StaticSource struct {
	snapshots map[model.Chain]model.DebtSnapshot
}

// NewStaticSource creates a source serving the given snapshots.
func NewStaticSource(snapshots map[model.Chain]model.DebtSnapshot) *StaticSource {
	s := &StaticSource{snapshots: make(map[model.Chain]model.DebtSnapshot, len(snapshots))}
	for chain, snap := range snapshots {
		s.snapshots[chain] = snap
	}
	return s
}

// ReadDebtSnapshot returns the configured snapshot for chain.
func (s *StaticSource) ReadDebtSnapshot(_ context.Context, chain model.Chain, _ model.BlockTag) (model.DebtSnapshot, error) {
	snap, ok := s.snapshots[chain]
	if !ok {
		return model.DebtSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownChain, chain)
	}
	return snap, nil
}
