package subgraph

import "errors"

// Sentinel kinds for indexer errors.
var (
	ErrStatus = errors.New("indexer returned non-success status")
	ErrQuery  = errors.New("indexer query failed")
	ErrDecode = errors.New("decode indexer response failed")
)
