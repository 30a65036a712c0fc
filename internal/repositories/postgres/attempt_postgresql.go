package postgres

import (
	"context"
	"errors"

	"github.com/setoos/goforms/internal/models"
	"github.com/setoos/goforms/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (r *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) GetByIDWithAnswers(ctx context.Context, id uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.db.WithContext(ctx).
		Preload("Answers").
		Preload("Answers.Question").
		Preload("Quiz").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.QuizAttempt) error {
	return r.db.WithContext(ctx).Omit("Quiz", "Student", "Answers").Save(attempt).Error
}

func (r *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	var attempts []*models.QuizAttempt
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.QuizAttempt{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Quiz").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (r *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, quizID uint, studentID string) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, models.AttemptInProgress).
		First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptPostgreSQL) CountByStudent(ctx context.Context, quizID uint, studentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error
	return count, err
}

func (r *AttemptPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.AttemptStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// Upsert keys on (attempt_id, question_id) so re-answering a question inside
// a session overwrites the earlier row.
func (r *AnswerPostgreSQL) Upsert(ctx context.Context, answer *models.AttemptAnswer) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"answer_data", "score", "needs_grading", "time_spent", "updated_at",
			}),
		}).
		Create(answer).Error
}

func (r *AnswerPostgreSQL) GetByID(ctx context.Context, id uint) (*models.AttemptAnswer, error) {
	var answer models.AttemptAnswer
	if err := r.db.WithContext(ctx).Preload("Question").First(&answer, id).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error) {
	var answers []*models.AttemptAnswer
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *AnswerPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.AttemptAnswer, error) {
	var answer models.AttemptAnswer
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (r *AnswerPostgreSQL) GetPendingByQuiz(ctx context.Context, quizID uint) ([]*models.AttemptAnswer, error) {
	var answers []*models.AttemptAnswer
	if err := r.db.WithContext(ctx).
		Joins("JOIN quiz_attempts ON quiz_attempts.id = attempt_answers.attempt_id").
		Where("quiz_attempts.quiz_id = ? AND attempt_answers.needs_grading = true", quizID).
		Preload("Question").
		Order("attempt_answers.created_at ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *AnswerPostgreSQL) Update(ctx context.Context, answer *models.AttemptAnswer) error {
	return r.db.WithContext(ctx).Omit("Question").Save(answer).Error
}

func (r *AnswerPostgreSQL) CountPendingByAttempt(ctx context.Context, attemptID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AttemptAnswer{}).
		Where("attempt_id = ? AND needs_grading = true", attemptID).
		Count(&count).Error
	return count, err
}

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (r *UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserPostgreSQL) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "email", "avatar_url", "last_login_at", "updated_at"}),
		}).
		Create(user).Error
}
