package chain

import "errors"

// Sentinel kinds for chain read errors.
var (
	ErrContractCall = errors.New("contract call failed")
	ErrDecode       = errors.New("decode contract output failed")
	ErrUnknownChain = errors.New("no debt source configured for chain")
)
