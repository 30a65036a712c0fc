package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/setoos/goforms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), questionSheet)
	for i, name := range questionColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(questionSheet, cell, name))
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(questionSheet, cell, v))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestImportExportService_ImportQuestionsXLSX(t *testing.T) {
	draft := func() *models.Quiz {
		return &models.Quiz{ID: 1, Title: "Psychology 101", Status: models.QuizDraft, CreatedBy: "author-1"}
	}

	t.Run("imports valid rows and reports bad ones", func(t *testing.T) {
		workbook := buildWorkbook(t, [][]interface{}{
			{"multiple_choice", "Pick one", 10, "easy", "Right:10|Wrong:0"},
			{"true_false", "Sky is blue", 10, "easy", "true"},
			{"fill_blank", "Nature or ____", 10, "medium", "Nurture|nurture theory"},
			{"matching", "Match terms", 10, "hard", "Pavlov=Conditioning|Freud=Psychoanalysis"},
			{"ordering", "Order the stages", 10, "medium", "Sensorimotor|Preoperational|Concrete"},
			{"complete_statement", "Fill the blanks", 10, "medium", "id|ego|superego;2"},
			{"essay", "Discuss memory", 10, "hard", ""},
			{"bogus_type", "Broken row", 10, "easy", ""},
			{"true_false", "Missing key", 10, "easy", "maybe"},
		})

		repo := newMockRepository()
		repo.quiz.On("GetByID", mock.Anything, uint(1)).Return(draft(), nil)
		repo.question.On("GetByQuiz", mock.Anything, uint(1)).Return([]models.Question{}, nil)
		repo.question.On("ReplaceForQuiz", mock.Anything, uint(1), mock.MatchedBy(func(questions []models.Question) bool {
			return len(questions) == 7
		})).Return(nil)
		service := NewImportExportService(repo, testLogger())

		summary, err := service.ImportQuestionsXLSX(context.Background(), 1, workbook, "author-1")

		require.NoError(t, err)
		assert.Equal(t, 9, summary.TotalRows)
		assert.Equal(t, 7, summary.SuccessCount)
		assert.Equal(t, 2, summary.ErrorCount)
		require.Len(t, summary.Errors, 2)
		assert.Equal(t, 9, summary.Errors[0].Row)
		repo.question.AssertExpectations(t)
	})

	t.Run("rejects garbage bytes", func(t *testing.T) {
		repo := newMockRepository()
		repo.quiz.On("GetByID", mock.Anything, uint(1)).Return(draft(), nil)
		service := NewImportExportService(repo, testLogger())

		_, err := service.ImportQuestionsXLSX(context.Background(), 1, []byte("not a workbook"), "author-1")

		assert.True(t, IsBusinessRule(err))
	})

	t.Run("only the owner may import", func(t *testing.T) {
		repo := newMockRepository()
		repo.quiz.On("GetByID", mock.Anything, uint(1)).Return(draft(), nil)
		service := NewImportExportService(repo, testLogger())

		_, err := service.ImportQuestionsXLSX(context.Background(), 1, []byte{}, "someone-else")

		assert.True(t, IsUnauthorized(err))
	})
}

func TestImportExportService_RoundTrip(t *testing.T) {
	questions := []models.Question{
		{
			QuizID: 1, Type: models.MultipleChoice, Text: "Pick one", Points: 10, Difficulty: models.DifficultyEasy,
			Options: []models.Option{
				{Text: "Right", Score: 10, IsCorrect: true, Order: 0},
				{Text: "Wrong", Score: 0, Order: 1},
			},
		},
		{
			QuizID: 1, Type: models.TrueFalse, Text: "Sky is blue", Points: 5, Difficulty: models.DifficultyEasy,
			AnswerKey: []byte(`{"correct_answer":true}`),
		},
		{
			QuizID: 1, Type: models.Ordering, Text: "Order the stages", Points: 10, Difficulty: models.DifficultyMedium,
			OrderingItems: []models.OrderingItem{
				{Text: "Preoperational", CorrectPosition: 1, Order: 0},
				{Text: "Sensorimotor", CorrectPosition: 0, Order: 1},
			},
		},
	}
	owner := &models.Quiz{ID: 1, Title: "Psychology 101", Status: models.QuizDraft, CreatedBy: "author-1"}

	repo := newMockRepository()
	repo.quiz.On("GetByID", mock.Anything, uint(1)).Return(owner, nil)
	repo.question.On("GetByQuiz", mock.Anything, uint(1)).Return(questions, nil)
	service := NewImportExportService(repo, testLogger())

	exported, err := service.ExportQuestionsXLSX(context.Background(), 1, "author-1")
	require.NoError(t, err)

	var imported []models.Question
	repo2 := newMockRepository()
	repo2.quiz.On("GetByID", mock.Anything, uint(2)).Return(
		&models.Quiz{ID: 2, Title: "Copy", Status: models.QuizDraft, CreatedBy: "author-1"}, nil)
	repo2.question.On("GetByQuiz", mock.Anything, uint(2)).Return([]models.Question{}, nil)
	repo2.question.On("ReplaceForQuiz", mock.Anything, uint(2), mock.MatchedBy(func(questions []models.Question) bool {
		imported = questions
		return true
	})).Return(nil)
	service2 := NewImportExportService(repo2, testLogger())

	summary, err := service2.ImportQuestionsXLSX(context.Background(), 2, exported, "author-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.SuccessCount)
	assert.Zero(t, summary.ErrorCount)

	require.Len(t, imported, 3)
	assert.Equal(t, models.MultipleChoice, imported[0].Type)
	require.Len(t, imported[0].Options, 2)
	assert.Equal(t, 10.0, imported[0].Options[0].Score)
	assert.JSONEq(t, `{"correct_answer":true}`, string(imported[1].AnswerKey))
	// Ordering items come back sorted by correct position.
	assert.Equal(t, "Sensorimotor", imported[2].OrderingItems[0].Text)
	assert.Equal(t, 0, imported[2].OrderingItems[0].CorrectPosition)
}
