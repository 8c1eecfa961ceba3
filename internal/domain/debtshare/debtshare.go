// Package debtshare computes a holder's share of the combined cross-chain debt pool.
//
// A holder's recorded ownership is rescaled by how far the debt ledger has moved
// since the record was written, multiplied by the debt of the holder's chain, and
// divided by the combined pool (primary debt plus scaled secondary debt).
package debtshare

import (
	"math"
	"math/big"

	"github.com/okian/debtshare/internal/domain/fixedpoint"
	"github.com/okian/debtshare/internal/domain/model"
)

// Calculator turns holder records into normalized voting weights.
type Calculator struct {
	ownershipDecimals int32
	quadratic         bool
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		ownershipDecimals: fixedpoint.PreciseDecimals,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewNormalization derives the pool denominator for one invocation. The
// secondary chain's debt is scaled by cRatioAdjustment to account for its
// different collateralization ratio.
func NewNormalization(primary, secondary model.DebtSnapshot, cRatioAdjustment float64) model.Normalization {
	scaled := secondary.TotalDebt * cRatioAdjustment
	return model.Normalization{
		ScaledSecondaryDebt: scaled,
		CombinedTotalDebt:   primary.TotalDebt + scaled,
	}
}

// CurrentOwnership rescales the recorded ownership to the given ledger entry.
// A zero DebtEntryAtIndex yields 0.
func (c *Calculator) CurrentOwnership(h model.HolderRecord, ledgerEntry *big.Int) float64 {
	ratio := fixedpoint.Ratio(ledgerEntry, h.DebtEntryAtIndex)
	if ratio == 0 {
		return 0
	}
	return fixedpoint.ScaleDown(h.InitialDebtOwnership, c.ownershipDecimals) * ratio
}

// PrimaryShare returns the weight of a primary-chain holder.
func (c *Calculator) PrimaryShare(h model.HolderRecord, totalPrimaryDebt, scaledSecondaryDebt float64, lastDebtLedgerEntry *big.Int) float64 {
	ownership := c.CurrentOwnership(h, lastDebtLedgerEntry)
	return c.weight(Normalize(ownership, totalPrimaryDebt, totalPrimaryDebt+scaledSecondaryDebt))
}

// SecondaryShare returns the weight of a secondary-chain holder. The holder's
// debt is measured against the scaled secondary debt.
func (c *Calculator) SecondaryShare(h model.HolderRecord, totalPrimaryDebt, scaledSecondaryDebt float64, lastSecondaryDebtLedgerEntry *big.Int) float64 {
	ownership := c.CurrentOwnership(h, lastSecondaryDebtLedgerEntry)
	return c.weight(Normalize(ownership, scaledSecondaryDebt, totalPrimaryDebt+scaledSecondaryDebt))
}

// Normalize converts an ownership fraction of chainDebt into a fraction of the
// combined pool. A zero pool yields 0.
func Normalize(ownership, chainDebt, combinedTotalDebt float64) float64 {
	if ownership == 0 || combinedTotalDebt == 0 {
		return 0
	}
	return ownership * chainDebt / combinedTotalDebt
}

func (c *Calculator) weight(share float64) float64 {
	if c.quadratic {
		return math.Sqrt(share)
	}
	return share
}
