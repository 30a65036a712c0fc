package repositories

import (
	"context"

	"github.com/setoos/goforms/internal/models"
)

// QuizRepository covers quiz persistence and the owner/status queries the
// service layer needs.
type QuizRepository interface {
	// Basic CRUD
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id uint) (*models.Quiz, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Quiz, error) // Questions + payloads, authored order
	Update(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id uint) error // Soft delete

	// Query operations
	List(ctx context.Context, filters QuizFilters) ([]*models.Quiz, int64, error)
	GetByCreator(ctx context.Context, creatorID string, filters QuizFilters) ([]*models.Quiz, int64, error)
	Search(ctx context.Context, query string, filters QuizFilters) ([]*models.Quiz, int64, error)

	// Status management
	UpdateStatus(ctx context.Context, id uint, status models.QuizStatus) error

	// Permission checks
	IsOwner(ctx context.Context, quizID uint, userID string) (bool, error)

	// Validation helpers
	ExistsByTitle(ctx context.Context, title string, creatorID string, excludeID *uint) (bool, error)
	HasAttempts(ctx context.Context, id uint) (bool, error)

	// Statistics
	GetStats(ctx context.Context, id uint) (*QuizStats, error)
	GetCreatorStats(ctx context.Context, creatorID string) (*CreatorStats, error)
}

// QuestionRepository manages a quiz's question set. Saving is a wholesale
// replace: the existing questions (and their payload rows) are deleted and
// the new set inserted, matching the product's save semantics.
type QuestionRepository interface {
	GetByQuiz(ctx context.Context, quizID uint) ([]models.Question, error)
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	ReplaceForQuiz(ctx context.Context, quizID uint, questions []models.Question) error
	CountByQuiz(ctx context.Context, quizID uint) (int64, error)
}
