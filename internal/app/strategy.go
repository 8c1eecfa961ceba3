// Package service provides the strategy entry point that turns chain debt
// figures and indexed holder positions into a voting score map.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/okian/debtshare/internal/adapters/chain"
	"github.com/okian/debtshare/internal/adapters/subgraph"
	"github.com/okian/debtshare/internal/domain/debtshare"
	"github.com/okian/debtshare/internal/domain/model"
	"github.com/okian/debtshare/internal/domain/score"
	"github.com/okian/debtshare/pkg/logger"
	"github.com/okian/debtshare/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Invocation carries what the scoring host supplies for one run.
type Invocation struct {
	Space     string // unused by the calculation
	Network   string // unused by the calculation
	Addresses []common.Address
	Snapshot  *uint64 // nil reads latest
}

// Strategy computes debt-share voting weights across the primary and secondary chains.
type Strategy struct {
	primaryDebt      chain.DebtSource
	secondaryDebt    chain.DebtSource
	primaryHolders   subgraph.HolderSource
	secondaryHolders subgraph.HolderSource

	calculator       *debtshare.Calculator
	cRatioAdjustment float64
	secondaryBlock   model.BlockTag

	logger logger.Logger
}

// New constructs a Strategy. Debt and holder sources must be supplied via options.
func New(opts ...Option) *Strategy {
	s := &Strategy{
		calculator:       debtshare.NewCalculator(),
		cRatioAdjustment: 500.0 / 400.0,
		secondaryBlock:   model.Latest(),
		logger:           nil,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("strategy")
	}

	return s
}

type chainData struct {
	snapshot model.DebtSnapshot
	holders  []model.HolderRecord
}

// Score runs one invocation. Reads for the two chains run concurrently; the
// score map is only touched by this goroutine once every read has completed.
// Any failed read aborts the invocation.
func (s *Strategy) Score(ctx context.Context, inv Invocation) (*score.Map, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	start := time.Now()
	metrics.RecordInvocation()
	defer func() {
		metrics.RecordInvocationLatency(float64(time.Since(start).Milliseconds()))
	}()

	tag := model.ResolveBlockTag(inv.Snapshot)
	s.logger.Info(ctx, "scoring invocation started",
		logger.String("invocation_id", id),
		logger.String("space", inv.Space),
		logger.String("network", inv.Network),
		logger.String("block", tag.String()),
		logger.String("l2_block", s.secondaryBlock.String()),
		logger.Int("addresses", len(inv.Addresses)),
	)

	var primary, secondary chainData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.load(gctx, model.Primary, s.primaryDebt, s.primaryHolders, tag, inv.Addresses, &primary)
	})
	g.Go(func() error {
		return s.load(gctx, model.Secondary, s.secondaryDebt, s.secondaryHolders, s.secondaryBlock, inv.Addresses, &secondary)
	})
	if err := g.Wait(); err != nil {
		metrics.RecordInvocationFailure()
		s.logger.Error(ctx, "scoring invocation failed",
			logger.String("invocation_id", id),
			logger.Error(err),
		)
		return nil, err
	}

	norm := debtshare.NewNormalization(primary.snapshot, secondary.snapshot, s.cRatioAdjustment)
	scores := score.NewMap()
	for _, h := range primary.holders {
		scores.Merge(h.Address, s.calculator.PrimaryShare(h, primary.snapshot.TotalDebt, norm.ScaledSecondaryDebt, primary.snapshot.LastDebtLedgerEntry))
	}
	for _, h := range secondary.holders {
		scores.Merge(h.Address, s.calculator.SecondaryShare(h, primary.snapshot.TotalDebt, norm.ScaledSecondaryDebt, secondary.snapshot.LastDebtLedgerEntry))
	}

	metrics.UpdateCombinedDebtPool(norm.CombinedTotalDebt)
	metrics.UpdateScoredAddresses(scores.Len())
	s.logger.Info(ctx, "scoring invocation finished",
		logger.String("invocation_id", id),
		logger.Int("l1_holders", len(primary.holders)),
		logger.Int("l2_holders", len(secondary.holders)),
		logger.Int("scored", scores.Len()),
		logger.Float64("combined_debt", norm.CombinedTotalDebt),
		logger.Float64("total_score", scores.Total()),
		logger.Any("elapsed", time.Since(start)),
	)
	return scores, nil
}

// load reads one chain's debt snapshot and holder list.
func (s *Strategy) load(ctx context.Context, c model.Chain, debt chain.DebtSource, holders subgraph.HolderSource, tag model.BlockTag, filter []common.Address, out *chainData) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := debt.ReadDebtSnapshot(gctx, c, tag)
		if err != nil {
			return fmt.Errorf("read %s debt snapshot: %w", c, err)
		}
		out.snapshot = snap
		return nil
	})
	g.Go(func() error {
		list, err := holders.FetchHolders(gctx, tag, filter)
		if err != nil {
			return fmt.Errorf("fetch %s holders: %w", c, err)
		}
		out.holders = list
		return nil
	})
	return g.Wait()
}

func (s *Strategy) validate() error {
	switch {
	case s.primaryDebt == nil:
		return fmt.Errorf("%w: primary debt source", ErrNotConfigured)
	case s.secondaryDebt == nil:
		return fmt.Errorf("%w: secondary debt source", ErrNotConfigured)
	case s.primaryHolders == nil:
		return fmt.Errorf("%w: primary holder source", ErrNotConfigured)
	case s.secondaryHolders == nil:
		return fmt.Errorf("%w: secondary holder source", ErrNotConfigured)
	}
	return nil
}
