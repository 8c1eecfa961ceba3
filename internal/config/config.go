// Package config defines strategy configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and DEBTSHARE_ env vars.
// - Validation errors wrap ErrInvalidConfig; loading errors wrap ErrLoadConfig.
package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/okian/debtshare/internal/domain/fixedpoint"
)

// Mainnet deployment of the debt-tracking contracts.
const (
	DefaultDebtCacheAddress      = "0x9D5551Cd3425Dd4585c3E7Eb7E4B98902222521E"
	DefaultSynthetixStateAddress = "0x4b9Ca5607f1fF8019c1C6A3c2f0CC8de622D5B82"
	DefaultL1SubgraphURL         = "https://api.thegraph.com/subgraphs/name/synthetixio-team/synthetix"
	DefaultL2SubgraphURL         = "https://subgrapher.snapshot.org/subgraph/arbitrum/39nXvA89wrgSz7vRAq6uxmvYn2CTNDuSfXJue3m7PVKA"

	// DefaultL2CRatioAdjustment compares the L1 and L2 collateralization ratios (500% / 400%).
	DefaultL2CRatioAdjustment = 500.0 / 400.0
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// RPCURL is the primary chain JSON-RPC endpoint used for contract reads.
	RPCURL string `koanf:"rpc_url"`

	// L1SubgraphURL and L2SubgraphURL serve holder records per chain.
	L1SubgraphURL string `koanf:"l1_subgraph_url"`
	L2SubgraphURL string `koanf:"l2_subgraph_url"`

	// Primary chain contract addresses.
	DebtCacheAddress      string `koanf:"debt_cache_address"`
	SynthetixStateAddress string `koanf:"synthetix_state_address"`

	// TotalL2Debt is the secondary chain's total debt, supplied rather than read. Required.
	TotalL2Debt float64 `koanf:"total_l2_debt"`

	// LastDebtLedgerEntryL2 is the secondary chain's last ledger entry as a base-10 integer. Required.
	LastDebtLedgerEntryL2 string `koanf:"last_debt_ledger_entry_l2"`

	// L2BlockNumber pins the secondary holder query.
	L2BlockNumber uint64 `koanf:"l2_block_number"`

	// L2CRatioAdjustment scales the secondary debt before normalization.
	L2CRatioAdjustment float64 `koanf:"l2_cratio_adjustment"`

	// Snapshot is the primary block number; 0 reads latest.
	Snapshot uint64 `koanf:"snapshot"`

	// Addresses optionally restricts the holders scored.
	Addresses []string `koanf:"addresses"`

	// Quadratic switches to square-root voting weight.
	Quadratic bool `koanf:"quadratic"`

	// OwnershipDecimals is the fixed-point scale of recorded ownership fractions.
	OwnershipDecimals int `koanf:"ownership_decimals"`

	// PageSize bounds holders per indexer request.
	PageSize int `koanf:"page_size"`

	// MetricsAddr, when set, serves Prometheus metrics while the CLI runs.
	MetricsAddr string `koanf:"metrics_addr"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		RPCURL:                "http://127.0.0.1:8545",
		L1SubgraphURL:         DefaultL1SubgraphURL,
		L2SubgraphURL:         DefaultL2SubgraphURL,
		DebtCacheAddress:      DefaultDebtCacheAddress,
		SynthetixStateAddress: DefaultSynthetixStateAddress,
		L2CRatioAdjustment:    DefaultL2CRatioAdjustment,
		OwnershipDecimals:     int(fixedpoint.PreciseDecimals),
		PageSize:              1000,
	}
}

// Validate checks required fields and address formats.
func (c *Config) Validate() error {
	required := map[string]string{
		"rpc_url":         c.RPCURL,
		"l1_subgraph_url": c.L1SubgraphURL,
		"l2_subgraph_url": c.L2SubgraphURL,
	}
	for _, key := range []string{"rpc_url", "l1_subgraph_url", "l2_subgraph_url"} {
		if strings.TrimSpace(required[key]) == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, key)
		}
	}
	for key, addr := range map[string]string{
		"debt_cache_address":      c.DebtCacheAddress,
		"synthetix_state_address": c.SynthetixStateAddress,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%w: %s %q is not an address", ErrInvalidConfig, key, addr)
		}
	}
	for _, addr := range c.Addresses {
		if !common.IsHexAddress(strings.TrimSpace(addr)) {
			return fmt.Errorf("%w: addresses entry %q is not an address", ErrInvalidConfig, addr)
		}
	}
	if c.L2CRatioAdjustment <= 0 {
		return fmt.Errorf("%w: l2_cratio_adjustment must be positive", ErrInvalidConfig)
	}
	if c.TotalL2Debt <= 0 {
		return fmt.Errorf("%w: total_l2_debt must be positive", ErrInvalidConfig)
	}
	if _, err := c.LedgerEntryL2(); err != nil {
		return err
	}
	return nil
}

// LedgerEntryL2 parses LastDebtLedgerEntryL2, which must be a positive integer.
func (c *Config) LedgerEntryL2() (*big.Int, error) {
	if strings.TrimSpace(c.LastDebtLedgerEntryL2) == "" {
		return nil, fmt.Errorf("%w: last_debt_ledger_entry_l2 must be set", ErrInvalidConfig)
	}
	v, err := fixedpoint.Parse(c.LastDebtLedgerEntryL2)
	if err != nil {
		return nil, fmt.Errorf("%w: last_debt_ledger_entry_l2: %w", ErrInvalidConfig, err)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("%w: last_debt_ledger_entry_l2 must be positive", ErrInvalidConfig)
	}
	return v, nil
}

// SnapshotBlock returns the primary snapshot block, nil for latest.
func (c *Config) SnapshotBlock() *uint64 {
	if c.Snapshot == 0 {
		return nil
	}
	n := c.Snapshot
	return &n
}

// FilterAddresses returns the configured holder filter as addresses.
func (c *Config) FilterAddresses() []common.Address {
	out := make([]common.Address, 0, len(c.Addresses))
	for _, addr := range c.Addresses {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, common.HexToAddress(addr))
		}
	}
	return out
}
