package validator

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/setoos/goforms/internal/errors"
	"github.com/setoos/goforms/internal/models"
)

// ValidateQuestion checks a question's type-specific payload before save.
// Questions that would score to garbage at attempt time (no correct option,
// empty pair or item sets, missing keys) are rejected here so the learner
// path never sees them.
func ValidateQuestion(q *models.Question) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors

	if q.Points < 0 {
		errs = append(errs, *apperrors.NewValidationError("points", "must not be negative", q.Points))
	}

	switch q.Type {
	case models.MultipleChoice:
		errs = append(errs, validateMultipleChoice(q)...)
	case models.TrueFalse:
		errs = append(errs, validateTrueFalse(q)...)
	case models.FillBlank:
		errs = append(errs, validateFillBlank(q)...)
	case models.Matching:
		if len(q.MatchingPairs) == 0 {
			errs = append(errs, *apperrors.NewValidationError("matching_pairs", "matching question needs at least one pair", nil))
		}
	case models.Ordering:
		errs = append(errs, validateOrdering(q)...)
	case models.CompleteStatement:
		errs = append(errs, validateCompleteStatement(q)...)
	case models.Essay:
		// Rubrics are optional; graders can score freehand.
	case models.ShortAnswer, models.PictureBased, models.Definition:
		// Manually graded, no key required.
	default:
		errs = append(errs, *apperrors.NewValidationError("type", "unknown question type", string(q.Type)))
	}

	return errs
}

func validateMultipleChoice(q *models.Question) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors

	if len(q.Options) < 2 {
		errs = append(errs, *apperrors.NewValidationError("options", "multiple choice needs at least two options", len(q.Options)))
		return errs
	}

	hasCorrect := false
	for _, opt := range q.Options {
		if opt.Score > 0 {
			hasCorrect = true
			break
		}
	}
	if !hasCorrect {
		errs = append(errs, *apperrors.NewValidationError("options", "at least one option must have a positive score", nil))
	}

	return errs
}

func validateTrueFalse(q *models.Question) apperrors.ValidationErrors {
	if len(q.AnswerKey) == 0 {
		return apperrors.ValidationErrors{
			*apperrors.NewValidationError("answer_key", "true/false question needs an answer key", nil),
		}
	}
	var key models.TrueFalseKey
	if err := json.Unmarshal(q.AnswerKey, &key); err != nil {
		return apperrors.ValidationErrors{
			*apperrors.NewValidationError("answer_key", "answer key is not valid true/false JSON", nil),
		}
	}
	return nil
}

func validateFillBlank(q *models.Question) apperrors.ValidationErrors {
	var key models.FillBlankKey
	if len(q.AnswerKey) > 0 {
		if err := json.Unmarshal(q.AnswerKey, &key); err != nil {
			return apperrors.ValidationErrors{
				*apperrors.NewValidationError("answer_key", "answer key is not valid fill-blank JSON", nil),
			}
		}
	}
	if key.CorrectAnswer == "" {
		return apperrors.ValidationErrors{
			*apperrors.NewValidationError("answer_key", "fill-blank question needs a correct answer", nil),
		}
	}
	return nil
}

func validateOrdering(q *models.Question) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors

	if len(q.OrderingItems) == 0 {
		return apperrors.ValidationErrors{
			*apperrors.NewValidationError("ordering_items", "ordering question needs at least one item", nil),
		}
	}

	seen := make(map[int]bool, len(q.OrderingItems))
	for _, item := range q.OrderingItems {
		if item.CorrectPosition < 0 || item.CorrectPosition >= len(q.OrderingItems) {
			errs = append(errs, *apperrors.NewValidationError("ordering_items",
				fmt.Sprintf("correct_position %d out of range", item.CorrectPosition), item.CorrectPosition))
			continue
		}
		if seen[item.CorrectPosition] {
			errs = append(errs, *apperrors.NewValidationError("ordering_items",
				fmt.Sprintf("duplicate correct_position %d", item.CorrectPosition), item.CorrectPosition))
		}
		seen[item.CorrectPosition] = true
	}

	return errs
}

func validateCompleteStatement(q *models.Question) apperrors.ValidationErrors {
	var key models.CompleteStatementKey
	if len(q.AnswerKey) > 0 {
		if err := json.Unmarshal(q.AnswerKey, &key); err != nil {
			return apperrors.ValidationErrors{
				*apperrors.NewValidationError("answer_key", "answer key is not valid complete-statement JSON", nil),
			}
		}
	}

	var errs apperrors.ValidationErrors
	if len(key.Answers) == 0 {
		errs = append(errs, *apperrors.NewValidationError("answer_key", "complete-statement question needs per-blank answers", nil))
	}
	if key.Scoring.PerCorrect <= 0 {
		errs = append(errs, *apperrors.NewValidationError("answer_key", "per_correct scoring must be positive", key.Scoring.PerCorrect))
	}
	return errs
}
