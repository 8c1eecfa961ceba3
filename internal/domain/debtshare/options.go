// Package debtshare computes a holder's share of the combined cross-chain debt pool.
package debtshare

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithOwnershipDecimals sets the fixed-point scale of recorded ownership fractions.
func WithOwnershipDecimals(decimals int32) Option {
	return func(c *Calculator) {
		if decimals > 0 {
			c.ownershipDecimals = decimals
		}
	}
}

// WithQuadratic switches the calculator to square-root voting weight.
func WithQuadratic(enabled bool) Option {
	return func(c *Calculator) {
		c.quadratic = enabled
	}
}
