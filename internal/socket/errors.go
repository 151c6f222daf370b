package socket

import "errors"

// Socket server error types
var (
	ErrServerAlreadyRunning = errors.New("ask socket server is already running")
	ErrServerNotRunning     = errors.New("ask socket server is not running")
	ErrEmptyPayload         = errors.New("empty ask socket payload")
)
