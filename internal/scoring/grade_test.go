package scoring

import (
	"encoding/json"
	"testing"

	"github.com/setoos/goforms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// mustKey marshals an answer key into the JSONB column type.
func mustKey(t *testing.T, v interface{}) datatypes.JSON {
	t.Helper()
	return datatypes.JSON(mustJSON(t, v))
}

func TestEvaluateAnswer_MultipleChoice(t *testing.T) {
	q := &models.Question{
		ID:     1,
		Type:   models.MultipleChoice,
		Points: 10,
		Options: []models.Option{
			{ID: 11, Score: 10, IsCorrect: true},
			{ID: 12, Score: 0},
		},
	}

	t.Run("correct option scores its stored value", func(t *testing.T) {
		ev, err := EvaluateAnswer(q, mustJSON(t, models.MultipleChoiceAnswer{SelectedOptionID: 11}))
		require.NoError(t, err)
		assert.Equal(t, 10.0, ev.Score)
		require.NotNil(t, ev.Correct)
		assert.True(t, *ev.Correct)
	})

	t.Run("wrong option scores zero", func(t *testing.T) {
		ev, err := EvaluateAnswer(q, mustJSON(t, models.MultipleChoiceAnswer{SelectedOptionID: 12}))
		require.NoError(t, err)
		assert.Equal(t, 0.0, ev.Score)
	})

	t.Run("unknown option scores zero", func(t *testing.T) {
		ev, err := EvaluateAnswer(q, mustJSON(t, models.MultipleChoiceAnswer{SelectedOptionID: 999}))
		require.NoError(t, err)
		assert.Equal(t, 0.0, ev.Score)
		assert.False(t, *ev.Correct)
	})
}

func TestEvaluateAnswer_TrueFalse(t *testing.T) {
	q := &models.Question{
		ID:        2,
		Type:      models.TrueFalse,
		Points:    5,
		AnswerKey: mustKey(t, models.TrueFalseKey{CorrectAnswer: true}),
	}

	ev, err := EvaluateAnswer(q, mustJSON(t, models.TrueFalseAnswer{Answer: true}))
	require.NoError(t, err)
	assert.Equal(t, 5.0, ev.Score)

	ev, err = EvaluateAnswer(q, mustJSON(t, models.TrueFalseAnswer{Answer: false}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.Score)
}

func TestEvaluateAnswer_FillBlank(t *testing.T) {
	q := &models.Question{
		ID:     3,
		Type:   models.FillBlank,
		Points: 10,
		AnswerKey: mustKey(t, models.FillBlankKey{
			CorrectAnswer:      "drip",
			AlternativeAnswers: []string{"nurture", "lead nurturing"},
		}),
	}

	cases := []struct {
		input string
		score float64
	}{
		{"drip", 10},
		{"  Drip  ", 10},
		{"Nurture", 10},
		{"LEAD NURTURING", 10},
		{"email blast", 0},
		{"", 0},
	}

	for _, tc := range cases {
		ev, err := EvaluateAnswer(q, mustJSON(t, models.FillBlankAnswer{Text: tc.input}))
		require.NoError(t, err)
		assert.Equal(t, tc.score, ev.Score, "input %q", tc.input)
	}
}

func TestEvaluateAnswer_MatchingPartialCredit(t *testing.T) {
	q := &models.Question{
		ID:     4,
		Type:   models.Matching,
		Points: 12,
		MatchingPairs: []models.MatchingPair{
			{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4},
		},
	}

	// 3 of 4 matched correctly: 12/4 * 3 = 9.
	answer := models.MatchingAnswer{Matches: map[uint]uint{1: 1, 2: 2, 3: 3, 4: 1}}
	ev, err := EvaluateAnswer(q, mustJSON(t, answer))
	require.NoError(t, err)
	assert.Equal(t, 9.0, ev.Score)
	assert.False(t, *ev.Correct)

	all := models.MatchingAnswer{Matches: map[uint]uint{1: 1, 2: 2, 3: 3, 4: 4}}
	ev, err = EvaluateAnswer(q, mustJSON(t, all))
	require.NoError(t, err)
	assert.Equal(t, 12.0, ev.Score)
	assert.True(t, *ev.Correct)
}

func TestEvaluateAnswer_MatchingWithoutPairs(t *testing.T) {
	q := &models.Question{ID: 5, Type: models.Matching, Points: 12}

	ev, err := EvaluateAnswer(q, mustJSON(t, models.MatchingAnswer{}))
	require.NoError(t, err, "empty pair set must degrade to zero, not fail")
	assert.Equal(t, 0.0, ev.Score)
}

func TestEvaluateAnswer_Ordering(t *testing.T) {
	q := &models.Question{
		ID:     6,
		Type:   models.Ordering,
		Points: 8,
		OrderingItems: []models.OrderingItem{
			{ID: 1, CorrectPosition: 0},
			{ID: 2, CorrectPosition: 1},
			{ID: 3, CorrectPosition: 2},
			{ID: 4, CorrectPosition: 3},
		},
	}

	t.Run("two items placed correctly", func(t *testing.T) {
		ev, err := EvaluateAnswer(q, mustJSON(t, models.OrderingAnswer{Order: []uint{1, 2, 4, 3}}))
		require.NoError(t, err)
		assert.Equal(t, 4.0, ev.Score) // 8/4 per item, 2 in place
	})

	t.Run("fully correct", func(t *testing.T) {
		ev, err := EvaluateAnswer(q, mustJSON(t, models.OrderingAnswer{Order: []uint{1, 2, 3, 4}}))
		require.NoError(t, err)
		assert.Equal(t, 8.0, ev.Score)
		assert.True(t, *ev.Correct)
	})
}

func TestEvaluateAnswer_CompleteStatement(t *testing.T) {
	q := &models.Question{
		ID:     7,
		Type:   models.CompleteStatement,
		Points: 6,
		AnswerKey: mustKey(t, models.CompleteStatementKey{
			Answers: []string{"alpha", "beta", "gamma"},
			Scoring: models.StatementScoring{PerCorrect: 2},
		}),
	}

	ev, err := EvaluateAnswer(q, mustJSON(t, models.CompleteStatementAnswer{
		Blanks: []string{"Alpha", "wrong", "GAMMA"},
	}))
	require.NoError(t, err)
	assert.Equal(t, 4.0, ev.Score, "2 points per case-insensitive exact match")
	assert.False(t, *ev.Correct)
}

func TestEvaluateAnswer_ManuallyGradedTypes(t *testing.T) {
	for _, typ := range []models.QuestionType{
		models.Essay, models.ShortAnswer, models.PictureBased, models.Definition,
	} {
		t.Run(string(typ), func(t *testing.T) {
			q := &models.Question{ID: 8, Type: typ, Points: 10}
			ev, err := EvaluateAnswer(q, mustJSON(t, models.FreeTextAnswer{Text: "some prose"}))
			require.NoError(t, err)
			assert.Equal(t, 0.0, ev.Score)
			assert.True(t, ev.NeedsGrading)
			assert.Nil(t, ev.Correct)
		})
	}
}

func TestEvaluateAnswer_MalformedPayload(t *testing.T) {
	q := &models.Question{ID: 9, Type: models.TrueFalse, Points: 5}

	_, err := EvaluateAnswer(q, json.RawMessage(`{"answer": "not a bool"}`))
	assert.Error(t, err)
}
