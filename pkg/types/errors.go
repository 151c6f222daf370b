package types

import "errors"

// Request batch validation errors shared by the socket server and the CLI
var (
	ErrUnsupportedRequestType = errors.New("unsupported ask socket request type")
	ErrEmptyAskID             = errors.New("ask_id must not be empty")
	ErrNoQuestions            = errors.New("questions must contain at least one entry")
	ErrEmptyQuestionID        = errors.New("question id must not be empty")
	ErrDuplicateQuestionID    = errors.New("question ids must be unique per request")
	ErrInvalidSubmitStatus    = errors.New("status must be 'answered' or 'cancelled'")
)
