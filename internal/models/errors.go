package models

import "errors"

// Validation errors are rejected before any side effect.
var (
	ErrInvalidGame     = errors.New("invalid lottery type")
	ErrInvalidStrategy = errors.New("invalid strategy")
	ErrInvalidBet      = errors.New("invalid bet")
	ErrInvalidRequest  = errors.New("invalid request")
)

var (
	// ErrUpstreamUnavailable means the draw source failed and no cached fallback exists.
	ErrUpstreamUnavailable = errors.New("draw data unavailable")
	ErrBetNotFound         = errors.New("bet not found")
	ErrDuplicateBet        = errors.New("bet already exists")
	ErrDrawNotFound        = errors.New("draw not found")
)
