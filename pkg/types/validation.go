package types

import "strings"

// Validate checks a socket envelope before any session state is created.
// Validation here keeps the rules identical between the server and the CLI.
func (r *SocketRequest) Validate() error {
	if r.Type != RequestTypeAsk {
		return ErrUnsupportedRequestType
	}

	if strings.TrimSpace(r.AskID) == "" {
		return ErrEmptyAskID
	}

	return r.Request.Validate()
}

// Validate checks a request batch: at least one question, all question ids
// non-blank and unique within the batch
func (b *AskRequestBatch) Validate() error {
	if len(b.Questions) == 0 {
		return ErrNoQuestions
	}

	seen := make(map[string]bool, len(b.Questions))
	for _, question := range b.Questions {
		if strings.TrimSpace(question.ID) == "" {
			return ErrEmptyQuestionID
		}
		if seen[question.ID] {
			return ErrDuplicateQuestionID
		}
		seen[question.ID] = true
	}

	return nil
}

// Validate checks the submission payload shape; answer-level validation
// happens against the original question batch in the session store
func (p *SubmitPayload) Validate() error {
	if strings.TrimSpace(p.AskID) == "" {
		return ErrEmptyAskID
	}

	if p.Status != StatusAnswered && p.Status != StatusCancelled {
		return ErrInvalidSubmitStatus
	}

	return nil
}

// NormalizeOptionalText trims an optional string and drops it entirely when
// the result is empty
func NormalizeOptionalText(raw *string) *string {
	if raw == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}
