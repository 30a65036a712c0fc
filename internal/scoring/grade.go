package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/setoos/goforms/internal/models"
)

// Evaluation is the outcome of scoring a single submitted answer.
type Evaluation struct {
	Score        float64 `json:"score"`
	MaxScore     float64 `json:"max_score"`
	Correct      *bool   `json:"correct,omitempty"` // nil when grading is deferred
	NeedsGrading bool    `json:"needs_grading"`
}

// EvaluateAnswer scores a raw structured answer against a question's key.
// Manually graded types (essay, short_answer, picture_based, definition)
// come back with a zero score and NeedsGrading set. Questions with missing
// or empty key data score zero rather than failing; malformed answer JSON is
// an error.
func EvaluateAnswer(q *models.Question, data json.RawMessage) (Evaluation, error) {
	if q.Type.NeedsManualGrading() {
		return Evaluation{MaxScore: q.Points, NeedsGrading: true}, nil
	}

	switch q.Type {
	case models.MultipleChoice:
		return evaluateMultipleChoice(q, data)
	case models.TrueFalse:
		return evaluateTrueFalse(q, data)
	case models.FillBlank:
		return evaluateFillBlank(q, data)
	case models.Matching:
		return evaluateMatching(q, data)
	case models.Ordering:
		return evaluateOrdering(q, data)
	case models.CompleteStatement:
		return evaluateCompleteStatement(q, data)
	default:
		return Evaluation{}, fmt.Errorf("unsupported question type %q", q.Type)
	}
}

func evaluateMultipleChoice(q *models.Question, data json.RawMessage) (Evaluation, error) {
	var answer models.MultipleChoiceAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return Evaluation{}, fmt.Errorf("invalid multiple choice answer: %w", err)
	}

	ev := Evaluation{MaxScore: q.Points}
	for _, opt := range q.Options {
		if opt.ID == answer.SelectedOptionID {
			ev.Score = opt.Score
			ev.Correct = boolPtr(opt.Score > 0)
			return ev, nil
		}
	}

	ev.Correct = boolPtr(false)
	return ev, nil
}

func evaluateTrueFalse(q *models.Question, data json.RawMessage) (Evaluation, error) {
	var answer models.TrueFalseAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return Evaluation{}, fmt.Errorf("invalid true/false answer: %w", err)
	}

	var key models.TrueFalseKey
	if len(q.AnswerKey) > 0 {
		if err := json.Unmarshal(q.AnswerKey, &key); err != nil {
			return Evaluation{}, fmt.Errorf("invalid true/false answer key: %w", err)
		}
	}

	correct := answer.Answer == key.CorrectAnswer
	ev := Evaluation{MaxScore: q.Points, Correct: boolPtr(correct)}
	if correct {
		ev.Score = q.Points
	}
	return ev, nil
}

func evaluateFillBlank(q *models.Question, data json.RawMessage) (Evaluation, error) {
	var answer models.FillBlankAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return Evaluation{}, fmt.Errorf("invalid fill-blank answer: %w", err)
	}

	var key models.FillBlankKey
	if len(q.AnswerKey) > 0 {
		if err := json.Unmarshal(q.AnswerKey, &key); err != nil {
			return Evaluation{}, fmt.Errorf("invalid fill-blank answer key: %w", err)
		}
	}

	given := normalize(answer.Text)
	correct := given != "" && given == normalize(key.CorrectAnswer)
	if !correct {
		for _, alt := range key.AlternativeAnswers {
			if given == normalize(alt) {
				correct = true
				break
			}
		}
	}

	ev := Evaluation{MaxScore: q.Points, Correct: boolPtr(correct)}
	if correct {
		ev.Score = q.Points
	}
	return ev, nil
}

func evaluateMatching(q *models.Question, data json.RawMessage) (Evaluation, error) {
	var answer models.MatchingAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return Evaluation{}, fmt.Errorf("invalid matching answer: %w", err)
	}

	ev := Evaluation{MaxScore: q.Points}
	if len(q.MatchingPairs) == 0 {
		ev.Correct = boolPtr(false)
		return ev, nil
	}

	// Points spread evenly across pairs, partial credit per correct match.
	perPair := q.Points / float64(len(q.MatchingPairs))
	matched := 0
	for _, pair := range q.MatchingPairs {
		if answer.Matches[pair.ID] == pair.ID {
			matched++
		}
	}

	ev.Score = perPair * float64(matched)
	ev.Correct = boolPtr(matched == len(q.MatchingPairs))
	return ev, nil
}

func evaluateOrdering(q *models.Question, data json.RawMessage) (Evaluation, error) {
	var answer models.OrderingAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return Evaluation{}, fmt.Errorf("invalid ordering answer: %w", err)
	}

	ev := Evaluation{MaxScore: q.Points}
	if len(q.OrderingItems) == 0 {
		ev.Correct = boolPtr(false)
		return ev, nil
	}

	correctPositions := make(map[uint]int, len(q.OrderingItems))
	for _, item := range q.OrderingItems {
		correctPositions[item.ID] = item.CorrectPosition
	}

	// Points spread evenly across items, one share per item in its correct slot.
	perItem := q.Points / float64(len(q.OrderingItems))
	placed := 0
	for pos, itemID := range answer.Order {
		if want, ok := correctPositions[itemID]; ok && want == pos {
			placed++
		}
	}

	ev.Score = perItem * float64(placed)
	ev.Correct = boolPtr(placed == len(q.OrderingItems))
	return ev, nil
}

func evaluateCompleteStatement(q *models.Question, data json.RawMessage) (Evaluation, error) {
	var answer models.CompleteStatementAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return Evaluation{}, fmt.Errorf("invalid complete-statement answer: %w", err)
	}

	var key models.CompleteStatementKey
	if len(q.AnswerKey) > 0 {
		if err := json.Unmarshal(q.AnswerKey, &key); err != nil {
			return Evaluation{}, fmt.Errorf("invalid complete-statement answer key: %w", err)
		}
	}

	ev := Evaluation{MaxScore: q.Points}
	if len(key.Answers) == 0 {
		ev.Correct = boolPtr(false)
		return ev, nil
	}

	correct := 0
	for i, want := range key.Answers {
		if i < len(answer.Blanks) && strings.EqualFold(strings.TrimSpace(answer.Blanks[i]), strings.TrimSpace(want)) {
			correct++
		}
	}

	ev.Score = key.Scoring.PerCorrect * float64(correct)
	ev.Correct = boolPtr(correct == len(key.Answers))
	return ev, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func boolPtr(b bool) *bool {
	return &b
}
