package interfaces

import "errors"

// Common interface errors used across components
var (
	ErrSessionNotFound  = errors.New("ask session not found")
	ErrDuplicateSession = errors.New("ask session already exists")
	ErrSessionExpired   = errors.New("ask session has expired")
)
