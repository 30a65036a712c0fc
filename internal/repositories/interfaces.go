package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/setoos/goforms/internal/models"
	"gorm.io/gorm"
)

// Repository aggregates the per-entity repositories behind one handle so
// services depend on a single interface.
type Repository interface {
	Quiz() QuizRepository
	Question() QuestionRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
	User() UserRepository
}

// TransactionRepository is implemented by repositories that can run the
// aggregate inside a database transaction. Begin returns a handle scoped to
// the transaction; writes through it land together on Commit.
type TransactionRepository interface {
	Repository
	Begin(ctx context.Context) (TransactionRepository, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// IsNotFoundError reports whether err is the storage layer's missing-record
// condition.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type QuizFilters struct {
	Status    *models.QuizStatus `json:"status"`
	CreatedBy *string            `json:"created_by"`
	DateFrom  *time.Time         `json:"date_from"`
	DateTo    *time.Time         `json:"date_to"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title", "expires_at"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status    models.AttemptStatus `json:"status"`
	QuizID    *uint                `json:"quiz_id"`
	StudentID *string              `json:"student_id"`
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`
	SortOrder string               `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type QuizStats struct {
	TotalAttempts     int     `json:"total_attempts"`
	CompletedAttempts int     `json:"completed_attempts"`
	AveragePercentage float64 `json:"average_percentage"`
	PassRate          float64 `json:"pass_rate"`
	AverageElapsed    int     `json:"average_elapsed"`
	QuestionCount     int     `json:"question_count"`
	TotalPoints       float64 `json:"total_points"`
}

type CreatorStats struct {
	TotalQuizzes     int `json:"total_quizzes"`
	PublishedQuizzes int `json:"published_quizzes"`
	DraftQuizzes     int `json:"draft_quizzes"`
	TotalQuestions   int `json:"total_questions"`
	TotalAttempts    int `json:"total_attempts"`
}
