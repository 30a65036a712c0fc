package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/setoos/goforms/internal/models"
	"github.com/setoos/goforms/internal/repositories"
	"github.com/setoos/goforms/internal/scoring"
)

// ===== SERVICE INTERFACES =====

type QuizService interface {
	Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*QuizResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	GetForLearner(ctx context.Context, id uint, accessCode *string) (*QuizResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	List(ctx context.Context, filters repositories.QuizFilters, userID string) ([]*models.Quiz, int64, error)
	Search(ctx context.Context, query string, filters repositories.QuizFilters, userID string) ([]*models.Quiz, int64, error)

	SaveQuestions(ctx context.Context, quizID uint, req *SaveQuestionsRequest, userID string) (*QuizResponse, error)
	Publish(ctx context.Context, id uint, userID string) (*QuizResponse, error)
	Archive(ctx context.Context, id uint, userID string) (*QuizResponse, error)

	GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizStats, error)
	GetCreatorStats(ctx context.Context, creatorID string) (*repositories.CreatorStats, error)
}

type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) (*scoring.Evaluation, error)
	Complete(ctx context.Context, attemptID uint, studentID string) (*AttemptResult, error)
	Abandon(ctx context.Context, attemptID uint, studentID string) error

	GetByID(ctx context.Context, id uint, userID string) (*models.QuizAttempt, error)
	List(ctx context.Context, filters repositories.AttemptFilters, userID string) ([]*models.QuizAttempt, int64, error)
}

type GradingService interface {
	ListPending(ctx context.Context, quizID uint, graderID string) ([]*models.AttemptAnswer, error)
	GradeAnswer(ctx context.Context, answerID uint, req *GradeAnswerRequest, graderID string) (*models.AttemptAnswer, error)
}

type ImportExportService interface {
	ImportQuestionsXLSX(ctx context.Context, quizID uint, data []byte, userID string) (*ImportSummary, error)
	ExportQuestionsXLSX(ctx context.Context, quizID uint, userID string) ([]byte, error)
}

// ServiceManager bundles the service set behind one handle for wiring.
type ServiceManager interface {
	Quiz() QuizService
	Attempt() AttemptService
	Grading() GradingService
	ImportExport() ImportExportService
}

// ===== REQUEST / RESPONSE TYPES =====

type CreateQuizRequest struct {
	Title        string     `json:"title" validate:"required,min=1,max=200"`
	Description  *string    `json:"description" validate:"omitempty,max=1000"`
	TimeLimit    *int       `json:"time_limit" validate:"omitempty,min=1,max=300"`
	PassingScore int        `json:"passing_score" validate:"min=0,max=100"`
	AccessType   string     `json:"access_type" validate:"omitempty,access_type"`
	AccessCode   *string    `json:"access_code" validate:"omitempty,min=4,max=100"`
	MaxAttempts  int        `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	ExpiresAt    *time.Time `json:"expires_at"`
	RandomizeAll *bool      `json:"randomize_all"`
	ShowFeedback *bool      `json:"show_feedback"`
}

type UpdateQuizRequest struct {
	Title        *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string    `json:"description" validate:"omitempty,max=1000"`
	TimeLimit    *int       `json:"time_limit" validate:"omitempty,min=1,max=300"`
	PassingScore *int       `json:"passing_score" validate:"omitempty,min=0,max=100"`
	AccessType   *string    `json:"access_type" validate:"omitempty,access_type"`
	AccessCode   *string    `json:"access_code" validate:"omitempty,min=4,max=100"`
	MaxAttempts  *int       `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	ExpiresAt    *time.Time `json:"expires_at"`
	RandomizeAll *bool      `json:"randomize_all"`
	ShowFeedback *bool      `json:"show_feedback"`
}

type SaveQuestionsRequest struct {
	Questions []QuestionInput `json:"questions" validate:"required,dive"`
}

type QuestionInput struct {
	Type       models.QuestionType `json:"type" validate:"required,question_type"`
	Text       string              `json:"text" validate:"required,min=1"`
	Points     float64             `json:"points" validate:"min=0"`
	Difficulty *string             `json:"difficulty" validate:"omitempty,difficulty_level"`
	Cognitive  *string             `json:"cognitive_level"`
	TimeLimit  *int                `json:"time_limit" validate:"omitempty,min=5"`
	MediaURL   *string             `json:"media_url"`
	AnswerKey  json.RawMessage     `json:"answer_key,omitempty"`

	Options       []OptionInput       `json:"options,omitempty" validate:"omitempty,dive"`
	MatchingPairs []MatchingPairInput `json:"matching_pairs,omitempty" validate:"omitempty,dive"`
	OrderingItems []OrderingItemInput `json:"ordering_items,omitempty" validate:"omitempty,dive"`
	EssayRubrics  []EssayRubricInput  `json:"essay_rubrics,omitempty" validate:"omitempty,dive"`
}

type OptionInput struct {
	Text     string  `json:"text" validate:"required"`
	Score    float64 `json:"score"`
	Feedback *string `json:"feedback"`
}

type MatchingPairInput struct {
	LeftText  string `json:"left_text" validate:"required"`
	RightText string `json:"right_text" validate:"required"`
}

type OrderingItemInput struct {
	Text            string `json:"text" validate:"required"`
	CorrectPosition int    `json:"correct_position" validate:"min=0"`
}

type EssayRubricInput struct {
	Criterion string  `json:"criterion" validate:"required"`
	MaxPoints float64 `json:"max_points" validate:"min=0"`
}

type QuizResponse struct {
	*models.Quiz
	CanEdit bool `json:"can_edit"`
}

type StartAttemptRequest struct {
	QuizID     uint    `json:"quiz_id" validate:"required"`
	AccessCode *string `json:"access_code"`
}

// AttemptResponse carries the attempt row plus the learner's question set,
// shuffled and stripped of answer keys.
type AttemptResponse struct {
	*models.QuizAttempt
	Questions []models.Question `json:"questions,omitempty"`
	Resumed   bool              `json:"resumed"`
}

type SubmitAnswerRequest struct {
	QuestionID uint            `json:"question_id" validate:"required"`
	AnswerData json.RawMessage `json:"answer_data" validate:"required"`
	TimeSpent  *int            `json:"time_spent"`
}

// AttemptResult is handed to the results screen. It is computed locally;
// a failed attempt write does not withhold it.
type AttemptResult struct {
	AttemptID      uint             `json:"attempt_id"`
	QuizID         uint             `json:"quiz_id"`
	Scores         map[uint]float64 `json:"scores"`
	Total          float64          `json:"total"`
	Percentage     int              `json:"percentage"`
	Passed         bool             `json:"passed"`
	NeedsGrading   bool             `json:"needs_grading"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
}

type GradeAnswerRequest struct {
	Score    float64 `json:"score" validate:"min=0"`
	Feedback *string `json:"feedback"`
}

type ImportSummary struct {
	TotalRows      int              `json:"total_rows"`
	SuccessCount   int              `json:"success_count"`
	ErrorCount     int              `json:"error_count"`
	Errors         []ImportRowError `json:"errors,omitempty"`
	ProcessingTime time.Duration    `json:"processing_time"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}
