package service

import "errors"

// Sentinel kinds for strategy errors.
var (
	ErrNotConfigured = errors.New("strategy source not configured")
)
