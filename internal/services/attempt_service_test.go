package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/setoos/goforms/internal/events"
	"github.com/setoos/goforms/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestAttemptService(repo *MockRepository) (AttemptService, *events.MockEventPublisher) {
	logger := testLogger()
	publisher := events.NewMockEventPublisher(logger)
	return NewAttemptService(repo, publisher, logger), publisher
}

func publishedQuiz() *models.Quiz {
	return &models.Quiz{
		ID:           1,
		Title:        "Psychology 101",
		Status:       models.QuizPublished,
		AccessType:   models.AccessPublic,
		PassingScore: 70,
		MaxAttempts:  2,
		RandomizeAll: true,
		CreatedBy:    "author-1",
		Questions: []models.Question{
			{
				ID: 10, QuizID: 1, Type: models.MultipleChoice, Text: "Pick one", Points: 10, Order: 0,
				Options: []models.Option{
					{ID: 100, Text: "Right", Score: 10, IsCorrect: true},
					{ID: 101, Text: "Wrong", Score: 0},
				},
			},
			{
				ID: 11, QuizID: 1, Type: models.TrueFalse, Text: "Sky is blue", Points: 10, Order: 1,
				AnswerKey: []byte(`{"correct_answer":true}`),
			},
		},
	}
}

func TestAttemptService_Start(t *testing.T) {
	t.Run("starts a fresh attempt with sanitized questions", func(t *testing.T) {
		repo := newMockRepository()
		repo.quiz.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(publishedQuiz(), nil)
		repo.attempt.On("GetActiveAttempt", mock.Anything, uint(1), "student-1").Return(nil, gorm.ErrRecordNotFound)
		repo.attempt.On("CountByStudent", mock.Anything, uint(1), "student-1").Return(int64(0), nil)
		repo.attempt.On("Create", mock.Anything, mock.MatchedBy(func(attempt *models.QuizAttempt) bool {
			return attempt.QuizID == 1 &&
				attempt.StudentID == "student-1" &&
				attempt.Status == models.AttemptInProgress
		})).Return(nil)
		service, _ := newTestAttemptService(repo)

		response, err := service.Start(context.Background(), &StartAttemptRequest{QuizID: 1}, "student-1")

		require.NoError(t, err)
		assert.False(t, response.Resumed)
		require.Len(t, response.Questions, 2)
		for i, q := range response.Questions {
			assert.Equal(t, i, q.Order)
			assert.Nil(t, q.AnswerKey)
			for _, opt := range q.Options {
				assert.Zero(t, opt.Score)
				assert.False(t, opt.IsCorrect)
			}
		}
		repo.attempt.AssertExpectations(t)
	})

	t.Run("resumes an in-progress attempt", func(t *testing.T) {
		active := &models.QuizAttempt{ID: 5, QuizID: 1, StudentID: "student-1", Status: models.AttemptInProgress}
		repo := newMockRepository()
		repo.quiz.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(publishedQuiz(), nil)
		repo.attempt.On("GetActiveAttempt", mock.Anything, uint(1), "student-1").Return(active, nil)
		service, _ := newTestAttemptService(repo)

		response, err := service.Start(context.Background(), &StartAttemptRequest{QuizID: 1}, "student-1")

		require.NoError(t, err)
		assert.True(t, response.Resumed)
		assert.Equal(t, uint(5), response.ID)
	})

	t.Run("enforces the attempt limit", func(t *testing.T) {
		repo := newMockRepository()
		repo.quiz.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(publishedQuiz(), nil)
		repo.attempt.On("GetActiveAttempt", mock.Anything, uint(1), "student-1").Return(nil, gorm.ErrRecordNotFound)
		repo.attempt.On("CountByStudent", mock.Anything, uint(1), "student-1").Return(int64(2), nil)
		service, _ := newTestAttemptService(repo)

		_, err := service.Start(context.Background(), &StartAttemptRequest{QuizID: 1}, "student-1")

		assert.ErrorIs(t, err, ErrAttemptLimitExceeded)
	})

	t.Run("times out a stale attempt and opens a fresh one", func(t *testing.T) {
		quiz := publishedQuiz()
		limit := 30
		quiz.TimeLimit = &limit
		stale := &models.QuizAttempt{
			ID: 7, QuizID: 1, StudentID: "student-1",
			Status:    models.AttemptInProgress,
			StartedAt: time.Now().Add(-2 * time.Hour),
		}
		repo := newMockRepository()
		repo.quiz.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(quiz, nil)
		repo.attempt.On("GetActiveAttempt", mock.Anything, uint(1), "student-1").Return(stale, nil)
		repo.attempt.On("UpdateStatus", mock.Anything, uint(7), models.AttemptTimedOut).Return(nil)
		repo.attempt.On("CountByStudent", mock.Anything, uint(1), "student-1").Return(int64(1), nil)
		repo.attempt.On("Create", mock.Anything, mock.Anything).Return(nil)
		service, _ := newTestAttemptService(repo)

		response, err := service.Start(context.Background(), &StartAttemptRequest{QuizID: 1}, "student-1")

		require.NoError(t, err)
		assert.False(t, response.Resumed)
		repo.attempt.AssertExpectations(t)
	})

	t.Run("simultaneous starts each get an independent question order", func(t *testing.T) {
		quiz := publishedQuiz()
		quiz.MaxAttempts = 100
		repo := newMockRepository()
		repo.quiz.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(quiz, nil)
		repo.attempt.On("GetActiveAttempt", mock.Anything, uint(1), mock.Anything).Return(nil, gorm.ErrRecordNotFound)
		repo.attempt.On("CountByStudent", mock.Anything, uint(1), mock.Anything).Return(int64(0), nil)
		repo.attempt.On("Create", mock.Anything, mock.Anything).Return(nil)
		service, _ := newTestAttemptService(repo)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				student := fmt.Sprintf("student-%d", n)
				response, err := service.Start(context.Background(), &StartAttemptRequest{QuizID: 1}, student)
				if assert.NoError(t, err) {
					assert.Len(t, response.Questions, 2)
				}
			}(i)
		}
		wg.Wait()
	})

	t.Run("refuses an expired quiz", func(t *testing.T) {
		expired := publishedQuiz()
		past := time.Now().Add(-time.Hour)
		expired.ExpiresAt = &past
		repo := newMockRepository()
		repo.quiz.On("GetByIDWithQuestions", mock.Anything, uint(1)).Return(expired, nil)
		service, _ := newTestAttemptService(repo)

		_, err := service.Start(context.Background(), &StartAttemptRequest{QuizID: 1}, "student-1")

		assert.ErrorIs(t, err, ErrQuizExpired)
	})
}

func TestAttemptService_SubmitAnswer(t *testing.T) {
	inProgress := func() *models.QuizAttempt {
		return &models.QuizAttempt{
			ID: 5, QuizID: 1, StudentID: "student-1",
			Status:   models.AttemptInProgress,
			ScoreMap: map[string]interface{}{},
		}
	}
	mcQuestion := func() *models.Question {
		q := publishedQuiz().Questions[0]
		return &q
	}

	t.Run("scores a correct selection", func(t *testing.T) {
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(inProgress(), nil)
		repo.question.On("GetByID", mock.Anything, uint(10)).Return(mcQuestion(), nil)
		repo.answer.On("Upsert", mock.Anything, mock.MatchedBy(func(answer *models.AttemptAnswer) bool {
			return answer.AttemptID == 5 && answer.QuestionID == 10 && answer.Score == 10
		})).Return(nil)
		repo.attempt.On("Update", mock.Anything, mock.MatchedBy(func(attempt *models.QuizAttempt) bool {
			return attempt.ScoreMap["10"] == 10.0
		})).Return(nil)
		service, _ := newTestAttemptService(repo)

		eval, err := service.SubmitAnswer(context.Background(), 5, &SubmitAnswerRequest{
			QuestionID: 10,
			AnswerData: []byte(`{"selected_option_id":100}`),
		}, "student-1")

		require.NoError(t, err)
		assert.Equal(t, 10.0, eval.Score)
		require.NotNil(t, eval.Correct)
		assert.True(t, *eval.Correct)
		repo.answer.AssertExpectations(t)
	})

	t.Run("rejects a malformed payload", func(t *testing.T) {
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(inProgress(), nil)
		repo.question.On("GetByID", mock.Anything, uint(10)).Return(mcQuestion(), nil)
		service, _ := newTestAttemptService(repo)

		_, err := service.SubmitAnswer(context.Background(), 5, &SubmitAnswerRequest{
			QuestionID: 10,
			AnswerData: []byte(`{{not json`),
		}, "student-1")

		assert.True(t, IsBusinessRule(err))
	})

	t.Run("rejects a question from another quiz", func(t *testing.T) {
		foreign := mcQuestion()
		foreign.QuizID = 99
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(inProgress(), nil)
		repo.question.On("GetByID", mock.Anything, uint(10)).Return(foreign, nil)
		service, _ := newTestAttemptService(repo)

		_, err := service.SubmitAnswer(context.Background(), 5, &SubmitAnswerRequest{
			QuestionID: 10,
			AnswerData: []byte(`{"selected_option_id":100}`),
		}, "student-1")

		assert.ErrorIs(t, err, ErrQuestionNotFound)
	})

	t.Run("rejects a completed attempt", func(t *testing.T) {
		done := inProgress()
		done.Status = models.AttemptCompleted
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(done, nil)
		service, _ := newTestAttemptService(repo)

		_, err := service.SubmitAnswer(context.Background(), 5, &SubmitAnswerRequest{
			QuestionID: 10,
			AnswerData: []byte(`{"selected_option_id":100}`),
		}, "student-1")

		assert.ErrorIs(t, err, ErrAttemptNotActive)
	})

	t.Run("another student's attempt is off limits", func(t *testing.T) {
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(inProgress(), nil)
		service, _ := newTestAttemptService(repo)

		_, err := service.SubmitAnswer(context.Background(), 5, &SubmitAnswerRequest{
			QuestionID: 10,
			AnswerData: []byte(`{"selected_option_id":100}`),
		}, "intruder")

		assert.True(t, IsUnauthorized(err))
	})
}

func TestAttemptService_Abandon(t *testing.T) {
	inProgress := func() *models.QuizAttempt {
		return &models.QuizAttempt{
			ID: 5, QuizID: 1, StudentID: "student-1",
			Status: models.AttemptInProgress,
		}
	}

	t.Run("marks an in-progress attempt abandoned", func(t *testing.T) {
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(inProgress(), nil)
		repo.attempt.On("UpdateStatus", mock.Anything, uint(5), models.AttemptAbandoned).Return(nil)
		service, _ := newTestAttemptService(repo)

		err := service.Abandon(context.Background(), 5, "student-1")

		require.NoError(t, err)
		repo.attempt.AssertExpectations(t)
	})

	t.Run("completed attempts cannot be abandoned", func(t *testing.T) {
		done := inProgress()
		done.Status = models.AttemptCompleted
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(done, nil)
		service, _ := newTestAttemptService(repo)

		err := service.Abandon(context.Background(), 5, "student-1")

		assert.ErrorIs(t, err, ErrAttemptNotActive)
	})

	t.Run("another student's attempt is off limits", func(t *testing.T) {
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(inProgress(), nil)
		service, _ := newTestAttemptService(repo)

		err := service.Abandon(context.Background(), 5, "intruder")

		assert.True(t, IsUnauthorized(err))
	})
}

func TestAttemptService_Complete(t *testing.T) {
	started := time.Now().Add(-3 * time.Minute)
	inProgress := func() *models.QuizAttempt {
		return &models.QuizAttempt{
			ID: 5, QuizID: 1, StudentID: "student-1",
			Status:    models.AttemptInProgress,
			StartedAt: started,
		}
	}
	answers := []*models.AttemptAnswer{
		{AttemptID: 5, QuestionID: 10, Score: 10, AnswerData: []byte(`{"selected_option_id":100}`)},
		{AttemptID: 5, QuestionID: 11, Score: 10, AnswerData: []byte(`{"answer":true}`)},
	}

	t.Run("finalizes a fully answered attempt", func(t *testing.T) {
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(inProgress(), nil)
		repo.quiz.On("GetByID", mock.Anything, uint(1)).Return(publishedQuiz(), nil)
		repo.question.On("CountByQuiz", mock.Anything, uint(1)).Return(int64(2), nil)
		repo.answer.On("GetByAttempt", mock.Anything, uint(5)).Return(answers, nil)
		repo.attempt.On("Update", mock.Anything, mock.MatchedBy(func(attempt *models.QuizAttempt) bool {
			return attempt.Status == models.AttemptCompleted &&
				attempt.Percentage == 100 &&
				attempt.Passed &&
				attempt.CompletedAt != nil
		})).Return(nil)
		service, publisher := newTestAttemptService(repo)

		result, err := service.Complete(context.Background(), 5, "student-1")

		require.NoError(t, err)
		assert.Equal(t, 100, result.Percentage)
		assert.Equal(t, 20.0, result.Total)
		assert.True(t, result.Passed)
		assert.False(t, result.NeedsGrading)
		assert.GreaterOrEqual(t, result.ElapsedSeconds, 179)
		require.Len(t, publisher.Events, 1)
		assert.Equal(t, events.EventAttemptCompleted, publisher.Events[0].Type)
	})

	t.Run("pending manual grades hold back the pass flag", func(t *testing.T) {
		graded := []*models.AttemptAnswer{
			{AttemptID: 5, QuestionID: 10, Score: 10, AnswerData: []byte(`{"selected_option_id":100}`)},
			{AttemptID: 5, QuestionID: 11, Score: 0, NeedsGrading: true, AnswerData: []byte(`{"text":"an essay"}`)},
		}
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(inProgress(), nil)
		repo.quiz.On("GetByID", mock.Anything, uint(1)).Return(publishedQuiz(), nil)
		repo.question.On("CountByQuiz", mock.Anything, uint(1)).Return(int64(2), nil)
		repo.answer.On("GetByAttempt", mock.Anything, uint(5)).Return(graded, nil)
		repo.attempt.On("Update", mock.Anything, mock.Anything).Return(nil)
		service, _ := newTestAttemptService(repo)

		result, err := service.Complete(context.Background(), 5, "student-1")

		require.NoError(t, err)
		assert.Equal(t, 50, result.Percentage)
		assert.True(t, result.NeedsGrading)
		assert.False(t, result.Passed)
	})

	t.Run("returns the local result when the final write fails", func(t *testing.T) {
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(inProgress(), nil)
		repo.quiz.On("GetByID", mock.Anything, uint(1)).Return(publishedQuiz(), nil)
		repo.question.On("CountByQuiz", mock.Anything, uint(1)).Return(int64(2), nil)
		repo.answer.On("GetByAttempt", mock.Anything, uint(5)).Return(answers, nil)
		repo.attempt.On("Update", mock.Anything, mock.Anything).Return(assert.AnError)
		service, publisher := newTestAttemptService(repo)

		result, err := service.Complete(context.Background(), 5, "student-1")

		require.NoError(t, err)
		assert.Equal(t, 100, result.Percentage)
		assert.Empty(t, publisher.Events)
	})

	t.Run("double completion is a conflict", func(t *testing.T) {
		done := inProgress()
		done.Status = models.AttemptCompleted
		repo := newMockRepository()
		repo.attempt.On("GetByID", mock.Anything, uint(5)).Return(done, nil)
		service, _ := newTestAttemptService(repo)

		_, err := service.Complete(context.Background(), 5, "student-1")

		assert.ErrorIs(t, err, ErrAttemptAlreadyCompleted)
		assert.True(t, IsConflict(err))
	})
}
