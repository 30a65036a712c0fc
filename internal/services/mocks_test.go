package services

import (
	"context"

	"github.com/setoos/goforms/internal/models"
	"github.com/setoos/goforms/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// MockQuizRepository is a mock implementation of repositories.QuizRepository
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quiz), args.Error(1)
}

func (m *MockQuizRepository) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quiz), args.Error(1)
}

func (m *MockQuizRepository) Update(ctx context.Context, quiz *models.Quiz) error {
	args := m.Called(ctx, quiz)
	return args.Error(0)
}

func (m *MockQuizRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuizRepository) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Quiz), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuizRepository) GetByCreator(ctx context.Context, creatorID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	args := m.Called(ctx, creatorID, filters)
	return args.Get(0).([]*models.Quiz), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuizRepository) Search(ctx context.Context, query string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	args := m.Called(ctx, query, filters)
	return args.Get(0).([]*models.Quiz), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuizRepository) UpdateStatus(ctx context.Context, id uint, status models.QuizStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockQuizRepository) IsOwner(ctx context.Context, quizID uint, userID string) (bool, error) {
	args := m.Called(ctx, quizID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuizRepository) ExistsByTitle(ctx context.Context, title string, creatorID string, excludeID *uint) (bool, error) {
	args := m.Called(ctx, title, creatorID, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuizRepository) HasAttempts(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuizRepository) GetStats(ctx context.Context, id uint) (*repositories.QuizStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.QuizStats), args.Error(1)
}

func (m *MockQuizRepository) GetCreatorStats(ctx context.Context, creatorID string) (*repositories.CreatorStats, error) {
	args := m.Called(ctx, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.CreatorStats), args.Error(1)
}

// MockQuestionRepository is a mock implementation of repositories.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) GetByQuiz(ctx context.Context, quizID uint) ([]models.Question, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) ReplaceForQuiz(ctx context.Context, quizID uint, questions []models.Question) error {
	args := m.Called(ctx, quizID, questions)
	return args.Error(0)
}

func (m *MockQuestionRepository) CountByQuiz(ctx context.Context, quizID uint) (int64, error) {
	args := m.Called(ctx, quizID)
	return args.Get(0).(int64), args.Error(1)
}

// MockAttemptRepository is a mock implementation of repositories.AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id uint) (*models.QuizAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByIDWithAnswers(ctx context.Context, id uint) (*models.QuizAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) Update(ctx context.Context, attempt *models.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.QuizAttempt), args.Get(1).(int64), args.Error(2)
}

func (m *MockAttemptRepository) GetActiveAttempt(ctx context.Context, quizID uint, studentID string) (*models.QuizAttempt, error) {
	args := m.Called(ctx, quizID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) CountByStudent(ctx context.Context, quizID uint, studentID string) (int64, error) {
	args := m.Called(ctx, quizID, studentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepository) UpdateStatus(ctx context.Context, id uint, status models.AttemptStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockAnswerRepository is a mock implementation of repositories.AnswerRepository
type MockAnswerRepository struct {
	mock.Mock
}

func (m *MockAnswerRepository) Upsert(ctx context.Context, answer *models.AttemptAnswer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

func (m *MockAnswerRepository) GetByID(ctx context.Context, id uint) (*models.AttemptAnswer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttemptAnswer), args.Error(1)
}

func (m *MockAnswerRepository) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AttemptAnswer), args.Error(1)
}

func (m *MockAnswerRepository) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.AttemptAnswer, error) {
	args := m.Called(ctx, attemptID, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttemptAnswer), args.Error(1)
}

func (m *MockAnswerRepository) GetPendingByQuiz(ctx context.Context, quizID uint) ([]*models.AttemptAnswer, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AttemptAnswer), args.Error(1)
}

func (m *MockAnswerRepository) Update(ctx context.Context, answer *models.AttemptAnswer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

func (m *MockAnswerRepository) CountPendingByAttempt(ctx context.Context, attemptID uint) (int64, error) {
	args := m.Called(ctx, attemptID)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockRepository aggregates the per-entity mocks behind the Repository
// interface the services consume.
type MockRepository struct {
	quiz     *MockQuizRepository
	question *MockQuestionRepository
	attempt  *MockAttemptRepository
	answer   *MockAnswerRepository
	user     *MockUserRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		quiz:     &MockQuizRepository{},
		question: &MockQuestionRepository{},
		attempt:  &MockAttemptRepository{},
		answer:   &MockAnswerRepository{},
		user:     &MockUserRepository{},
	}
}

func (m *MockRepository) Quiz() repositories.QuizRepository         { return m.quiz }
func (m *MockRepository) Question() repositories.QuestionRepository { return m.question }
func (m *MockRepository) Attempt() repositories.AttemptRepository   { return m.attempt }
func (m *MockRepository) Answer() repositories.AnswerRepository     { return m.answer }
func (m *MockRepository) User() repositories.UserRepository         { return m.user }

// MockTxRepository adds transaction tracking on top of the aggregate mock.
type MockTxRepository struct {
	*MockRepository
	commits   int
	rollbacks int
}

func newMockTxRepository() *MockTxRepository {
	return &MockTxRepository{MockRepository: newMockRepository()}
}

func (m *MockTxRepository) Begin(ctx context.Context) (repositories.TransactionRepository, error) {
	return m, nil
}

func (m *MockTxRepository) Commit(ctx context.Context) error {
	m.commits++
	return nil
}

func (m *MockTxRepository) Rollback(ctx context.Context) error {
	m.rollbacks++
	return nil
}
