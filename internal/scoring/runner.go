package scoring

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/setoos/goforms/internal/models"
)

// DefaultMaxPoints is the per-question maximum the percentage normalization
// assumes. Authored question points default to the same value.
const DefaultMaxPoints = 10.0

var ErrNoMoreQuestions = errors.New("no more questions in this attempt")

// Runner drives a single quiz attempt: a linear traversal over the question
// list with the accumulator collecting scores. No back-navigation, no skip
// logic; submitting an answer always advances to the next question.
type Runner struct {
	questions []models.Question
	index     int
	acc       *Accumulator
	startedAt time.Time
}

func NewRunner(questions []models.Question) *Runner {
	return &Runner{
		questions: questions,
		acc:       NewAccumulator(),
		startedAt: time.Now(),
	}
}

// Current returns the question awaiting an answer, or false when the attempt
// has finished.
func (r *Runner) Current() (*models.Question, bool) {
	if r.index >= len(r.questions) {
		return nil, false
	}
	return &r.questions[r.index], true
}

// Accumulator exposes the attempt's score state.
func (r *Runner) Accumulator() *Accumulator {
	return r.acc
}

// Outcome reports what a single submission produced.
type Outcome struct {
	Evaluation
	QuestionID uint
	Finished   bool
}

// Submit evaluates the given answer against the current question, records
// the score and advances. Finished is set on the last question's outcome.
func (r *Runner) Submit(data json.RawMessage) (Outcome, error) {
	q, ok := r.Current()
	if !ok {
		return Outcome{}, ErrNoMoreQuestions
	}

	ev, err := EvaluateAnswer(q, data)
	if err != nil {
		return Outcome{}, err
	}

	r.acc.Record(q.ID, ev.Score, data)
	r.index++

	return Outcome{
		Evaluation: ev,
		QuestionID: q.ID,
		Finished:   r.index >= len(r.questions),
	}, nil
}

// Result is the attempt summary handed to persistence and to the results
// screen.
type Result struct {
	Scores         map[uint]float64 `json:"scores"`
	Total          float64          `json:"total"`
	Percentage     int              `json:"percentage"`
	NeedsGrading   bool             `json:"needs_grading"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    time.Time        `json:"completed_at"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
}

// Result finalizes the attempt with every question worth maxPerQuestion.
func (r *Runner) Result(maxPerQuestion float64) Result {
	needsGrading := false
	for _, q := range r.questions {
		if q.Type.NeedsManualGrading() {
			needsGrading = true
			break
		}
	}

	now := time.Now()
	return Result{
		Scores:         r.acc.ScoreMap(),
		Total:          r.acc.Total(),
		Percentage:     r.acc.Finalize(len(r.questions), maxPerQuestion),
		NeedsGrading:   needsGrading,
		StartedAt:      r.startedAt,
		CompletedAt:    now,
		ElapsedSeconds: int(now.Sub(r.startedAt).Seconds()),
	}
}
