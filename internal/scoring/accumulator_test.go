package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_RecordAndTotal(t *testing.T) {
	acc := NewAccumulator()

	acc.Record(1, 10, json.RawMessage(`{}`))
	acc.Record(2, 5, json.RawMessage(`{}`))
	acc.Record(3, 0, json.RawMessage(`{}`))

	assert.Equal(t, 15.0, acc.Total())
	assert.Equal(t, 3, acc.Count())

	score, ok := acc.Score(2)
	require.True(t, ok)
	assert.Equal(t, 5.0, score)

	_, ok = acc.Score(99)
	assert.False(t, ok)
}

func TestAccumulator_ReAnswerIsIdempotent(t *testing.T) {
	acc := NewAccumulator()

	acc.Record(7, 10, json.RawMessage(`{"first":true}`))
	acc.Record(7, 4, json.RawMessage(`{"second":true}`))

	assert.Equal(t, 4.0, acc.Total(), "only the latest score counts")
	assert.Equal(t, 1, acc.Count())

	answers := acc.Answers()
	require.Len(t, answers, 1)
	assert.JSONEq(t, `{"second":true}`, string(answers[0].Answer))
}

func TestAccumulator_AnswersKeepInsertionOrder(t *testing.T) {
	acc := NewAccumulator()

	acc.Record(3, 1, json.RawMessage(`{}`))
	acc.Record(1, 2, json.RawMessage(`{}`))
	acc.Record(2, 3, json.RawMessage(`{}`))
	acc.Record(1, 9, json.RawMessage(`{}`)) // re-answer keeps original slot

	var ids []uint
	for _, rec := range acc.Answers() {
		ids = append(ids, rec.QuestionID)
	}
	assert.Equal(t, []uint{3, 1, 2}, ids)
}

func TestAccumulator_Finalize(t *testing.T) {
	cases := []struct {
		name     string
		scores   map[uint]float64
		count    int
		max      float64
		expected int
	}{
		{"perfect", map[uint]float64{1: 10, 2: 10}, 2, 10, 100},
		{"half", map[uint]float64{1: 10, 2: 0}, 2, 10, 50},
		{"rounded up", map[uint]float64{1: 10, 2: 10, 3: 0}, 3, 10, 67},
		{"rounded down", map[uint]float64{1: 10, 2: 0, 3: 0}, 3, 10, 33},
		{"zero", map[uint]float64{1: 0}, 1, 10, 0},
		{"no questions", nil, 0, 10, 0},
		{"zero max", map[uint]float64{1: 10}, 1, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc := NewAccumulator()
			for id, s := range tc.scores {
				acc.Record(id, s, nil)
			}
			assert.Equal(t, tc.expected, acc.Finalize(tc.count, tc.max))
		})
	}
}

func TestAccumulator_FinalizeStaysInBounds(t *testing.T) {
	acc := NewAccumulator()
	for id := uint(1); id <= 10; id++ {
		acc.Record(id, 10, nil)
	}

	for count := 1; count <= 12; count++ {
		pct := acc.Finalize(count, 10)
		assert.GreaterOrEqual(t, pct, 0)
		assert.LessOrEqual(t, pct, 100)
	}
}

func TestAccumulator_ScoreMapIsACopy(t *testing.T) {
	acc := NewAccumulator()
	acc.Record(1, 5, nil)

	m := acc.ScoreMap()
	m[1] = 999

	score, _ := acc.Score(1)
	assert.Equal(t, 5.0, score)
}
