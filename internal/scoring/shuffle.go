package scoring

import (
	"math/rand"
	"time"

	"github.com/setoos/goforms/internal/models"
)

// NewRand returns the time-seeded source used on the learner path. Each quiz
// load gets an independent presentation order; tests inject their own source.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// ShuffleQuestions returns a copy of questions in uniformly random order.
// Each question's option list is shuffled independently and every Order field
// is rewritten to the element's new 0-based index, so Order always matches
// array position after the shuffle. The input slice is left unmodified.
//
// This must only be used on the learner-facing path; authoring views keep the
// authored order.
func ShuffleQuestions(r *rand.Rand, questions []models.Question) []models.Question {
	shuffled := make([]models.Question, len(questions))
	copy(shuffled, questions)

	// Fisher–Yates; the i > 0 bound makes empty and single-element inputs no-ops.
	for i := len(shuffled) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	for i := range shuffled {
		shuffled[i].Order = i
		if len(shuffled[i].Options) > 0 {
			shuffled[i].Options = ShuffleOptions(r, shuffled[i].Options)
		}
	}

	return shuffled
}

// ShuffleOptions returns a copy of options in uniformly random order with
// Order fields rewritten to match the new positions. The input slice is left
// unmodified.
func ShuffleOptions(r *rand.Rand, options []models.Option) []models.Option {
	shuffled := make([]models.Option, len(options))
	copy(shuffled, options)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	for i := range shuffled {
		shuffled[i].Order = i
	}

	return shuffled
}
