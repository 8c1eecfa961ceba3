// Package model contains domain models passed between layers.
package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Chain identifies which side of the cross-chain debt pool a value belongs to.
type Chain string

// Known chains.
const (
	Primary   Chain = "l1"
	Secondary Chain = "l2"
)

// HolderRecord is an address's debt position as recorded by the indexer the
// last time it changed.
type HolderRecord struct {
	Address              common.Address
	InitialDebtOwnership *big.Int // ownership fraction, 27-decimal fixed point
	DebtEntryAtIndex     *big.Int // debt ledger value when the position was recorded
}

// DebtSnapshot holds the global debt figures of one chain at one block.
type DebtSnapshot struct {
	TotalDebt           float64  // already converted from 18-decimal fixed point
	LastDebtLedgerEntry *big.Int // raw ledger entry, same scale as DebtEntryAtIndex
	RatesInvalid        bool     // DebtCache reported at least one stale rate
}

// Normalization is the denominator data shared by every holder in an invocation.
type Normalization struct {
	ScaledSecondaryDebt float64
	CombinedTotalDebt   float64
}
