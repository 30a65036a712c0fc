package validator

import (
	"encoding/json"
	"testing"

	"github.com/setoos/goforms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestValidateQuestion_MultipleChoice(t *testing.T) {
	t.Run("requires a correct option", func(t *testing.T) {
		q := &models.Question{
			Type: models.MultipleChoice,
			Options: []models.Option{
				{Text: "a", Score: 0},
				{Text: "b", Score: 0},
			},
		}
		errs := ValidateQuestion(q)
		require.Len(t, errs, 1)
		assert.Equal(t, "options", errs[0].Field)
	})

	t.Run("requires two options", func(t *testing.T) {
		q := &models.Question{
			Type:    models.MultipleChoice,
			Options: []models.Option{{Text: "only", Score: 10}},
		}
		assert.NotEmpty(t, ValidateQuestion(q))
	})

	t.Run("valid", func(t *testing.T) {
		q := &models.Question{
			Type: models.MultipleChoice,
			Options: []models.Option{
				{Text: "right", Score: 10},
				{Text: "wrong", Score: 0},
			},
		}
		assert.Empty(t, ValidateQuestion(q))
	})
}

func TestValidateQuestion_PayloadPresence(t *testing.T) {
	cases := []struct {
		name  string
		q     *models.Question
		valid bool
	}{
		{"matching without pairs", &models.Question{Type: models.Matching}, false},
		{"ordering without items", &models.Question{Type: models.Ordering}, false},
		{"true/false without key", &models.Question{Type: models.TrueFalse}, false},
		{"fill blank without key", &models.Question{Type: models.FillBlank}, false},
		{
			"true/false with key",
			&models.Question{Type: models.TrueFalse, AnswerKey: key(t, models.TrueFalseKey{CorrectAnswer: true})},
			true,
		},
		{
			"fill blank with key",
			&models.Question{Type: models.FillBlank, AnswerKey: key(t, models.FillBlankKey{CorrectAnswer: "drip"})},
			true,
		},
		{"essay needs nothing", &models.Question{Type: models.Essay}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateQuestion(tc.q)
			if tc.valid {
				assert.Empty(t, errs)
			} else {
				assert.NotEmpty(t, errs)
			}
		})
	}
}

func TestValidateQuestion_Ordering(t *testing.T) {
	t.Run("rejects duplicate positions", func(t *testing.T) {
		q := &models.Question{
			Type: models.Ordering,
			OrderingItems: []models.OrderingItem{
				{Text: "a", CorrectPosition: 0},
				{Text: "b", CorrectPosition: 0},
			},
		}
		assert.NotEmpty(t, ValidateQuestion(q))
	})

	t.Run("rejects out-of-range positions", func(t *testing.T) {
		q := &models.Question{
			Type: models.Ordering,
			OrderingItems: []models.OrderingItem{
				{Text: "a", CorrectPosition: 5},
			},
		}
		assert.NotEmpty(t, ValidateQuestion(q))
	})
}

func TestValidateQuestion_CompleteStatement(t *testing.T) {
	q := &models.Question{
		Type: models.CompleteStatement,
		AnswerKey: key(t, models.CompleteStatementKey{
			Answers: []string{"alpha"},
			Scoring: models.StatementScoring{PerCorrect: 2},
		}),
	}
	assert.Empty(t, ValidateQuestion(q))

	q.AnswerKey = key(t, models.CompleteStatementKey{})
	assert.NotEmpty(t, ValidateQuestion(q))
}

func TestValidator_StructTags(t *testing.T) {
	v := New()

	type req struct {
		Type models.QuestionType `json:"type" validate:"required,question_type"`
	}

	assert.NoError(t, v.Validate(&req{Type: models.Matching}))
	assert.Error(t, v.Validate(&req{Type: "not_a_type"}))
}
