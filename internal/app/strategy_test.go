package service_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/okian/debtshare/internal/adapters/chain"
	service "github.com/okian/debtshare/internal/app"
	"github.com/okian/debtshare/internal/domain/debtshare"
	"github.com/okian/debtshare/internal/domain/model"
	"github.com/okian/debtshare/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const tolerance = 1e-9

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c3")

	ledgerEntry = bigInt("1000000000000000000000000000")
)

func bigInt(s string) *big.Int {
	v, _ := new(big.Int).SetString(s, 10)
	return v
}

// fakeDebt records the tag it was read at.
type fakeDebt struct {
	mu   sync.Mutex
	snap model.DebtSnapshot
	err  error
	tags []model.BlockTag
}

func (f *fakeDebt) ReadDebtSnapshot(_ context.Context, _ model.Chain, tag model.BlockTag) (model.DebtSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, tag)
	return f.snap, f.err
}

type fakeHolders struct {
	mu      sync.Mutex
	holders []model.HolderRecord
	err     error
	tags    []model.BlockTag
	filters [][]common.Address
}

func (f *fakeHolders) FetchHolders(_ context.Context, tag model.BlockTag, filter []common.Address) ([]model.HolderRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, tag)
	f.filters = append(f.filters, filter)
	return f.holders, f.err
}

// record builds a holder whose ownership has not moved since it was recorded.
// ownership is given in units of 1e-3 (e.g. 25 -> 0.025).
func record(addr common.Address, milli int64) model.HolderRecord {
	ownership := new(big.Int).Mul(big.NewInt(milli), bigInt("1000000000000000000000000"))
	return model.HolderRecord{Address: addr, InitialDebtOwnership: ownership, DebtEntryAtIndex: ledgerEntry}
}

type fixture struct {
	primaryDebt      *fakeDebt
	primaryHolders   *fakeHolders
	secondaryHolders *fakeHolders
}

// newFixture sets up a pool of 1,000,000 primary and 200,000 secondary debt
// (250,000 after the 500/400 adjustment).
func newFixture() *fixture {
	return &fixture{
		primaryDebt:      &fakeDebt{snap: model.DebtSnapshot{TotalDebt: 1_000_000, LastDebtLedgerEntry: ledgerEntry}},
		primaryHolders:   &fakeHolders{},
		secondaryHolders: &fakeHolders{},
	}
}

func (f *fixture) strategy(opts ...service.Option) *service.Strategy {
	base := []service.Option{
		service.WithPrimaryDebt(f.primaryDebt),
		service.WithPrimaryHolders(f.primaryHolders),
		service.WithSecondaryHolders(f.secondaryHolders),
		service.WithSecondaryFigures(200_000, ledgerEntry, 919_219),
	}
	return service.New(append(base, opts...)...)
}

func TestStrategy_Score(t *testing.T) {
	Convey("Given a strategy over fake sources", t, func() {
		ctx := context.Background()
		fx := newFixture()

		Convey("When both chains have no holders", func() {
			scores, err := fx.strategy().Score(ctx, service.Invocation{})

			Convey("Then the score map should be empty", func() {
				So(err, ShouldBeNil)
				So(scores.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a holder exists only on the primary chain", func() {
			fx.primaryHolders.holders = []model.HolderRecord{record(alice, 100)}
			scores, err := fx.strategy().Score(ctx, service.Invocation{})

			Convey("Then its score should equal the primary share", func() {
				So(err, ShouldBeNil)
				got, ok := scores.Get(alice)
				So(ok, ShouldBeTrue)
				So(got, ShouldAlmostEqual, 0.08, tolerance)
			})
		})

		Convey("When a holder exists on both chains", func() {
			fx.primaryHolders.holders = []model.HolderRecord{record(alice, 25), record(bob, 100)}
			fx.secondaryHolders.holders = []model.HolderRecord{record(alice, 50), record(carol, 100)}
			scores, err := fx.strategy().Score(ctx, service.Invocation{})

			Convey("Then contributions should be summed", func() {
				So(err, ShouldBeNil)
				So(scores.Len(), ShouldEqual, 3)
				got, _ := scores.Get(alice)
				So(got, ShouldAlmostEqual, 0.03, tolerance) // 0.02 primary + 0.01 secondary
			})

			Convey("And single-chain holders should keep their own share", func() {
				b, _ := scores.Get(bob)
				c, _ := scores.Get(carol)
				So(b, ShouldAlmostEqual, 0.08, tolerance)
				So(c, ShouldAlmostEqual, 0.02, tolerance)
			})
		})

		Convey("When holder order differs between runs", func() {
			fx.primaryHolders.holders = []model.HolderRecord{record(alice, 25), record(bob, 100), record(carol, 7)}
			fx.secondaryHolders.holders = []model.HolderRecord{record(carol, 13), record(alice, 50)}
			first, err := fx.strategy().Score(ctx, service.Invocation{})
			So(err, ShouldBeNil)

			fx.primaryHolders.holders = []model.HolderRecord{record(carol, 7), record(alice, 25), record(bob, 100)}
			fx.secondaryHolders.holders = []model.HolderRecord{record(alice, 50), record(carol, 13)}
			second, err := fx.strategy().Score(ctx, service.Invocation{})
			So(err, ShouldBeNil)

			Convey("Then the maps should match", func() {
				So(second.Len(), ShouldEqual, first.Len())
				for _, addr := range first.Addresses() {
					a, _ := first.Get(addr)
					b, _ := second.Get(addr)
					So(b, ShouldAlmostEqual, a, tolerance)
				}
			})
		})

		Convey("When a holder has a zero debt entry", func() {
			h := record(alice, 100)
			h.DebtEntryAtIndex = big.NewInt(0)
			fx.primaryHolders.holders = []model.HolderRecord{h}
			scores, err := fx.strategy().Score(ctx, service.Invocation{})

			Convey("Then its score should be exactly zero", func() {
				So(err, ShouldBeNil)
				got, ok := scores.Get(alice)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, 0.0)
			})
		})

		Convey("When a snapshot block and filter are supplied", func() {
			block := uint64(13_500_000)
			filter := []common.Address{alice, bob}
			_, err := fx.strategy().Score(ctx, service.Invocation{Addresses: filter, Snapshot: &block})

			Convey("Then the primary reads should be pinned to the snapshot", func() {
				So(err, ShouldBeNil)
				So(fx.primaryDebt.tags[0].Uint64(), ShouldEqual, block)
				So(fx.primaryHolders.tags[0].Uint64(), ShouldEqual, block)
				So(fx.primaryHolders.filters[0], ShouldResemble, filter)
			})

			Convey("And the secondary holders should be pinned to the configured block", func() {
				So(fx.secondaryHolders.tags[0].Uint64(), ShouldEqual, uint64(919_219))
				So(fx.secondaryHolders.filters[0], ShouldResemble, filter)
			})
		})

		Convey("When no snapshot is supplied", func() {
			_, err := fx.strategy().Score(ctx, service.Invocation{})

			Convey("Then the primary reads should use latest", func() {
				So(err, ShouldBeNil)
				So(fx.primaryDebt.tags[0].IsLatest(), ShouldBeTrue)
			})
		})

		Convey("When the calculator is quadratic", func() {
			fx.primaryHolders.holders = []model.HolderRecord{record(alice, 100)}
			scores, err := fx.strategy(service.WithCalculator(debtshare.NewCalculator(debtshare.WithQuadratic(true)))).Score(ctx, service.Invocation{})

			Convey("Then the score should be the square root of the share", func() {
				So(err, ShouldBeNil)
				got, _ := scores.Get(alice)
				So(got*got, ShouldAlmostEqual, 0.08, tolerance)
			})
		})

		Convey("When the c-ratio adjustment is changed", func() {
			fx.primaryHolders.holders = []model.HolderRecord{record(alice, 100)}
			scores, err := fx.strategy(service.WithCRatioAdjustment(1)).Score(ctx, service.Invocation{})

			Convey("Then the pool should use the unscaled secondary debt", func() {
				So(err, ShouldBeNil)
				got, _ := scores.Get(alice)
				So(got, ShouldAlmostEqual, 0.1*1_000_000/1_200_000, tolerance)
			})
		})
	})
}

func TestStrategy_Errors(t *testing.T) {
	Convey("Given a strategy whose upstreams fail", t, func() {
		ctx := context.Background()
		fx := newFixture()
		fx.primaryHolders.holders = []model.HolderRecord{record(alice, 100)}

		Convey("When the primary contract read fails", func() {
			fx.primaryDebt.err = chain.ErrContractCall
			scores, err := fx.strategy().Score(ctx, service.Invocation{})

			Convey("Then the invocation should abort with that error", func() {
				So(scores, ShouldBeNil)
				So(errors.Is(err, chain.ErrContractCall), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "l1")
			})
		})

		Convey("When the secondary indexer fails", func() {
			fx.secondaryHolders.err = errors.New("indexer down")
			scores, err := fx.strategy().Score(ctx, service.Invocation{})

			Convey("Then the invocation should abort", func() {
				So(scores, ShouldBeNil)
				So(err.Error(), ShouldContainSubstring, "indexer down")
			})
		})

		Convey("When the secondary debt source has no figures for the chain", func() {
			s := service.New(
				service.WithPrimaryDebt(fx.primaryDebt),
				service.WithSecondaryDebt(chain.NewStaticSource(nil)),
				service.WithPrimaryHolders(fx.primaryHolders),
				service.WithSecondaryHolders(fx.secondaryHolders),
			)
			_, err := s.Score(ctx, service.Invocation{})

			Convey("Then it should report the unknown chain", func() {
				So(errors.Is(err, chain.ErrUnknownChain), ShouldBeTrue)
			})
		})

		Convey("When a source is missing", func() {
			s := service.New(service.WithPrimaryDebt(fx.primaryDebt), service.WithLogger(logger.Named("test")))
			_, err := s.Score(ctx, service.Invocation{})

			Convey("Then it should return ErrNotConfigured", func() {
				So(errors.Is(err, service.ErrNotConfigured), ShouldBeTrue)
			})
		})
	})
}
