package sweeper

import "errors"

// Sweeper lifecycle error types
var (
	ErrSweeperAlreadyRunning = errors.New("sweeper is already running")
	ErrSweeperNotRunning     = errors.New("sweeper is not running")
)
