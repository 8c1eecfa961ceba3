package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/okian/debtshare/internal/domain/fixedpoint"
	"github.com/okian/debtshare/internal/domain/model"
	"github.com/okian/debtshare/pkg/logger"
	"github.com/okian/debtshare/pkg/metrics"
)

const (
	debtCacheABI = `[{"constant":true,"inputs":[],"name":"currentDebt","outputs":[{"name":"debt","type":"uint256"},{"name":"anyRateIsInvalid","type":"bool"}],"stateMutability":"view","type":"function"}]`

	synthetixStateABI = `[{"constant":true,"inputs":[],"name":"lastDebtLedgerEntry","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

	methodCurrentDebt         = "currentDebt"
	methodLastDebtLedgerEntry = "lastDebtLedgerEntry"
)

var (
	debtCache      = mustParseABI(debtCacheABI)      //nolint:gochecknoglobals // parsed once
	synthetixState = mustParseABI(synthetixStateABI) //nolint:gochecknoglobals // parsed once
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ContractCaller is the subset of ethclient.Client used for reads.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Contracts is the pair of debt-tracking contracts deployed on one chain.
type Contracts struct {
	DebtCache      common.Address
	SynthetixState common.Address
}

// ContractSource reads debt snapshots with two eth_call requests per chain.
type ContractSource struct {
	caller    ContractCaller
	contracts map[model.Chain]Contracts
	logger    logger.Logger
}

// NewContractSource creates a live source over caller using the per-chain address table.
func NewContractSource(caller ContractCaller, contracts map[model.Chain]Contracts, opts ...Option) *ContractSource {
	s := &ContractSource{
		caller:    caller,
		contracts: make(map[model.Chain]Contracts, len(contracts)),
		logger:    logger.Get().Named("chain"),
	}
	for chain, c := range contracts {
		s.contracts[chain] = c
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ReadDebtSnapshot reads DebtCache.currentDebt and SynthetixState.lastDebtLedgerEntry at tag.
func (s *ContractSource) ReadDebtSnapshot(ctx context.Context, chain model.Chain, tag model.BlockTag) (model.DebtSnapshot, error) {
	contracts, ok := s.contracts[chain]
	if !ok {
		return model.DebtSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownChain, chain)
	}

	start := time.Now()
	defer func() {
		metrics.RecordChainReadLatency(string(chain), float64(time.Since(start).Milliseconds()))
	}()

	debtOut, err := s.call(ctx, debtCache, contracts.DebtCache, methodCurrentDebt, tag)
	if err != nil {
		return model.DebtSnapshot{}, err
	}
	if len(debtOut) != 2 {
		return model.DebtSnapshot{}, fmt.Errorf("%w: %s returned %d values", ErrDecode, methodCurrentDebt, len(debtOut))
	}
	debt, ok := debtOut[0].(*big.Int)
	if !ok {
		return model.DebtSnapshot{}, fmt.Errorf("%w: %s debt is %T", ErrDecode, methodCurrentDebt, debtOut[0])
	}
	invalid, _ := debtOut[1].(bool)

	ledgerOut, err := s.call(ctx, synthetixState, contracts.SynthetixState, methodLastDebtLedgerEntry, tag)
	if err != nil {
		return model.DebtSnapshot{}, err
	}
	if len(ledgerOut) != 1 {
		return model.DebtSnapshot{}, fmt.Errorf("%w: %s returned %d values", ErrDecode, methodLastDebtLedgerEntry, len(ledgerOut))
	}
	ledger, ok := ledgerOut[0].(*big.Int)
	if !ok {
		return model.DebtSnapshot{}, fmt.Errorf("%w: %s is %T", ErrDecode, methodLastDebtLedgerEntry, ledgerOut[0])
	}

	snap := model.DebtSnapshot{
		TotalDebt:           fixedpoint.ToDecimal(debt),
		LastDebtLedgerEntry: ledger,
		RatesInvalid:        invalid,
	}
	if invalid {
		metrics.RecordRatesInvalid(string(chain))
		s.logger.Warn(ctx, "debt cache reported invalid rates",
			logger.String("chain", string(chain)),
			logger.String("block", tag.String()),
		)
	}
	s.logger.Debug(ctx, "read debt snapshot",
		logger.String("chain", string(chain)),
		logger.String("block", tag.String()),
		logger.Float64("total_debt", snap.TotalDebt),
		logger.String("last_debt_ledger_entry", ledger.String()),
	)
	return snap, nil
}

func (s *ContractSource) call(ctx context.Context, contract abi.ABI, to common.Address, method string, tag model.BlockTag) ([]interface{}, error) {
	data, err := contract.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, tag.Number())
	if err != nil {
		metrics.RecordErrorByComponent("chain", "contract_call")
		return nil, fmt.Errorf("%w: %s at %s: %w", ErrContractCall, method, tag, err)
	}
	values, err := contract.Unpack(method, out)
	if err != nil {
		metrics.RecordErrorByComponent("chain", "decode")
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, method, err)
	}
	return values, nil
}
