package session

import (
	"fmt"

	"askrelay/pkg/types"
)

// otherLabel is the authoritative label assigned to free-text answers
const otherLabel = "Other"

// ValidateAnswers checks a raw answer batch against the original questions
// and returns normalized answers in original-question order. The submission
// either fully succeeds or is fully rejected; no partial application.
//
// Caller-supplied labels are advisory only: the normalized label is always
// taken from the addressed option (or fixed to "Other").
func ValidateAnswers(questions []types.AskQuestion, rawAnswers []types.AskAnswer) ([]types.AskAnswer, error) {
	if len(rawAnswers) != len(questions) {
		return nil, ErrAnswerCountMismatch
	}

	answersByID := make(map[string]types.AskAnswer, len(rawAnswers))
	for _, answer := range rawAnswers {
		if _, exists := answersByID[answer.ID]; exists {
			return nil, ErrDuplicateAnswerID
		}
		answersByID[answer.ID] = answer
	}

	normalized := make([]types.AskAnswer, 0, len(questions))

	for _, question := range questions {
		answer, exists := answersByID[question.ID]
		if !exists {
			return nil, fmt.Errorf("answer is missing for question id: %s", question.ID)
		}

		if answer.UsedOther {
			if answer.SelectedIndex != nil {
				return nil, fmt.Errorf("selected_index must be null when used_other is true (question: %s)", question.ID)
			}

			otherText := types.NormalizeOptionalText(answer.OtherText)
			if otherText == nil {
				return nil, fmt.Errorf("other_text is required for question id: %s", question.ID)
			}

			normalized = append(normalized, types.AskAnswer{
				ID:            question.ID,
				SelectedLabel: otherLabel,
				SelectedIndex: nil,
				UsedOther:     true,
				OtherText:     otherText,
			})
			continue
		}

		if answer.OtherText != nil {
			return nil, fmt.Errorf("other_text must be null when used_other is false (question: %s)", question.ID)
		}

		if answer.SelectedIndex == nil {
			return nil, fmt.Errorf("selected_index is required for question id: %s", question.ID)
		}

		index := *answer.SelectedIndex
		if index < 0 || index >= len(question.Options) {
			return nil, fmt.Errorf("selected_index %d is out of range for question id: %s", index, question.ID)
		}

		selectedIndex := index
		normalized = append(normalized, types.AskAnswer{
			ID:            question.ID,
			SelectedLabel: question.Options[index].Label,
			SelectedIndex: &selectedIndex,
			UsedOther:     false,
			OtherText:     nil,
		})
	}

	return normalized, nil
}

// ValidateRequiredNote rejects a blank note when the batch's note spec marks
// it required. The note must already be normalized.
func ValidateRequiredNote(noteSpec *types.AskNote, normalizedNote *string) error {
	if noteSpec == nil || !noteSpec.Required {
		return nil
	}

	if normalizedNote == nil {
		return ErrNoteRequired
	}

	return nil
}
