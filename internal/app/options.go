package service

import (
	"math/big"

	"github.com/okian/debtshare/internal/adapters/chain"
	"github.com/okian/debtshare/internal/adapters/subgraph"
	"github.com/okian/debtshare/internal/domain/debtshare"
	"github.com/okian/debtshare/internal/domain/model"
	"github.com/okian/debtshare/pkg/logger"
)

// Option applies a configuration option to the Strategy.
type Option func(*Strategy)

// WithPrimaryDebt sets the debt source for the primary chain.
func WithPrimaryDebt(src chain.DebtSource) Option {
	return func(s *Strategy) {
		if src != nil {
			s.primaryDebt = src
		}
	}
}

// WithSecondaryDebt sets the debt source for the secondary chain.
func WithSecondaryDebt(src chain.DebtSource) Option {
	return func(s *Strategy) {
		if src != nil {
			s.secondaryDebt = src
		}
	}
}

// WithPrimaryHolders sets the holder source for the primary chain.
func WithPrimaryHolders(src subgraph.HolderSource) Option {
	return func(s *Strategy) {
		if src != nil {
			s.primaryHolders = src
		}
	}
}

// WithSecondaryHolders sets the holder source for the secondary chain.
func WithSecondaryHolders(src subgraph.HolderSource) Option {
	return func(s *Strategy) {
		if src != nil {
			s.secondaryHolders = src
		}
	}
}

// WithSecondaryFigures serves the secondary chain's debt from supplied figures
// and pins its holder query to l2Block (0 queries latest).
func WithSecondaryFigures(totalL2Debt float64, lastDebtLedgerEntryL2 *big.Int, l2Block uint64) Option {
	return func(s *Strategy) {
		s.secondaryDebt = chain.NewStaticSource(map[model.Chain]model.DebtSnapshot{
			model.Secondary: {TotalDebt: totalL2Debt, LastDebtLedgerEntry: lastDebtLedgerEntryL2},
		})
		WithSecondaryBlock(l2Block)(s)
	}
}

// WithSecondaryBlock pins the secondary holder query; 0 queries latest.
func WithSecondaryBlock(block uint64) Option {
	return func(s *Strategy) {
		if block == 0 {
			s.secondaryBlock = model.Latest()
			return
		}
		s.secondaryBlock = model.AtBlock(block)
	}
}

// WithCRatioAdjustment sets the factor applied to secondary debt.
func WithCRatioAdjustment(factor float64) Option {
	return func(s *Strategy) {
		if factor > 0 {
			s.cRatioAdjustment = factor
		}
	}
}

// WithCalculator replaces the default share calculator.
func WithCalculator(calc *debtshare.Calculator) Option {
	return func(s *Strategy) {
		if calc != nil {
			s.calculator = calc
		}
	}
}

// WithLogger sets a custom logger for the strategy.
func WithLogger(logger logger.Logger) Option {
	return func(s *Strategy) {
		if logger != nil {
			s.logger = logger
		}
	}
}
