package model

import (
	"math/big"
	"strconv"
)

// BlockTag pins a read to a block number, or to the chain head when latest.
type BlockTag struct {
	number uint64
	pinned bool
}

// Latest returns a tag that reads the most recent block.
func Latest() BlockTag { return BlockTag{} }

// AtBlock returns a tag pinned to block n.
func AtBlock(n uint64) BlockTag { return BlockTag{number: n, pinned: true} }

// ResolveBlockTag uses the snapshot block verbatim when supplied, else latest.
func ResolveBlockTag(snapshot *uint64) BlockTag {
	if snapshot == nil {
		return Latest()
	}
	return AtBlock(*snapshot)
}

// IsLatest reports whether the tag follows the chain head.
func (t BlockTag) IsLatest() bool { return !t.pinned }

// Uint64 returns the pinned block number; 0 for latest.
func (t BlockTag) Uint64() uint64 { return t.number }

// Number returns the block as *big.Int, nil for latest (the go-ethereum convention).
func (t BlockTag) Number() *big.Int {
	if !t.pinned {
		return nil
	}
	return new(big.Int).SetUint64(t.number)
}

func (t BlockTag) String() string {
	if !t.pinned {
		return "latest"
	}
	return strconv.FormatUint(t.number, 10)
}
