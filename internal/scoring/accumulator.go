package scoring

import (
	"encoding/json"
	"math"
)

// RecordedAnswer pairs a question with the score awarded and the raw
// structured answer the learner submitted.
type RecordedAnswer struct {
	QuestionID uint            `json:"question_id"`
	Score      float64         `json:"score"`
	Answer     json.RawMessage `json:"answer"`
}

// Accumulator collects per-question scores during a single attempt. Recording
// a question twice keeps only the latest score; entries stay in the order the
// questions were first answered. One Accumulator per attempt, never shared.
type Accumulator struct {
	scores  map[uint]float64
	answers map[uint]json.RawMessage
	order   []uint
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		scores:  make(map[uint]float64),
		answers: make(map[uint]json.RawMessage),
	}
}

// Record stores the score and raw answer for a question, overwriting any
// prior entry for the same question id.
func (a *Accumulator) Record(questionID uint, score float64, answer json.RawMessage) {
	if _, seen := a.scores[questionID]; !seen {
		a.order = append(a.order, questionID)
	}
	a.scores[questionID] = score
	a.answers[questionID] = answer
}

// Total returns the sum of all currently recorded scores.
func (a *Accumulator) Total() float64 {
	total := 0.0
	for _, s := range a.scores {
		total += s
	}
	return total
}

// Count returns the number of distinct questions recorded so far.
func (a *Accumulator) Count() int {
	return len(a.order)
}

// Score returns the recorded score for a question, if any.
func (a *Accumulator) Score(questionID uint) (float64, bool) {
	s, ok := a.scores[questionID]
	return s, ok
}

// ScoreMap returns a copy of the question-id -> score mapping.
func (a *Accumulator) ScoreMap() map[uint]float64 {
	m := make(map[uint]float64, len(a.scores))
	for id, s := range a.scores {
		m[id] = s
	}
	return m
}

// Answers returns the recorded answers in the order the questions were first
// answered.
func (a *Accumulator) Answers() []RecordedAnswer {
	out := make([]RecordedAnswer, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, RecordedAnswer{
			QuestionID: id,
			Score:      a.scores[id],
			Answer:     a.answers[id],
		})
	}
	return out
}

// Finalize normalizes the running total to a rounded percentage, treating
// every question as worth maxPerQuestion points. The result is clamped to
// [0, 100].
func (a *Accumulator) Finalize(questionCount int, maxPerQuestion float64) int {
	if questionCount <= 0 || maxPerQuestion <= 0 {
		return 0
	}
	pct := int(math.Round(a.Total() / (float64(questionCount) * maxPerQuestion) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
