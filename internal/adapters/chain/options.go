package chain

import (
	"github.com/okian/debtshare/pkg/logger"
)

// Option applies a configuration option to the ContractSource.
type Option func(*ContractSource)

// WithLogger sets a custom logger for the source.
func WithLogger(logger logger.Logger) Option {
	return func(s *ContractSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}
