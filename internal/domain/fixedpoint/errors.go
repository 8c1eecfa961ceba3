package fixedpoint

import "errors"

// Sentinel kinds for fixed-point parsing.
var (
	ErrMalformed = errors.New("malformed fixed-point value")
)
