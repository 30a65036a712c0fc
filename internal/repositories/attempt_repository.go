package repositories

import (
	"context"

	"github.com/setoos/goforms/internal/models"
)

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, id uint) (*models.QuizAttempt, error)
	GetByIDWithAnswers(ctx context.Context, id uint) (*models.QuizAttempt, error)
	Update(ctx context.Context, attempt *models.QuizAttempt) error

	List(ctx context.Context, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
	GetActiveAttempt(ctx context.Context, quizID uint, studentID string) (*models.QuizAttempt, error)
	CountByStudent(ctx context.Context, quizID uint, studentID string) (int64, error)

	UpdateStatus(ctx context.Context, id uint, status models.AttemptStatus) error
}

type AnswerRepository interface {
	Upsert(ctx context.Context, answer *models.AttemptAnswer) error
	GetByID(ctx context.Context, id uint) (*models.AttemptAnswer, error)
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error)
	GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.AttemptAnswer, error)
	GetPendingByQuiz(ctx context.Context, quizID uint) ([]*models.AttemptAnswer, error)
	Update(ctx context.Context, answer *models.AttemptAnswer) error
	CountPendingByAttempt(ctx context.Context, attemptID uint) (int64, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}
