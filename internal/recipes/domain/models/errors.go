package models

import "errors"

// ErrOwnerRequired means an owner-scoped operation was called without a caller.
// It signals broken wiring, not bad input.
var ErrOwnerRequired = errors.New("owner identity is required")
