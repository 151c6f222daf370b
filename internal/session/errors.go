package session

import "errors"

// Answer validation error types surfaced to the submission caller as text.
// A rejected submission never mutates the session; it stays pending.
var (
	ErrAnswerCountMismatch = errors.New("answers must contain exactly one entry per question")
	ErrDuplicateAnswerID   = errors.New("answers contain duplicate question ids")
	ErrNoteRequired        = errors.New("note is required for this ask session")
)
