package postgres

import (
	"context"

	"github.com/setoos/goforms/internal/models"
	"github.com/setoos/goforms/internal/repositories"
	"gorm.io/gorm"
)

type QuizPostgreSQL struct {
	db *gorm.DB
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{db: db}
}

func (r *QuizPostgreSQL) Create(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

func (r *QuizPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.display_order ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.display_order ASC")
		}).
		Preload("Questions.MatchingPairs").
		Preload("Questions.OrderingItems").
		Preload("Questions.EssayRubrics").
		First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizPostgreSQL) Update(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Omit("Questions", "Attempts", "Creator").Save(quiz).Error
}

func (r *QuizPostgreSQL) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Quiz{}, id).Error
}

func (r *QuizPostgreSQL) List(ctx context.Context, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var quizzes []*models.Quiz
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.Quiz{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

func (r *QuizPostgreSQL) GetByCreator(ctx context.Context, creatorID string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	filters.CreatedBy = &creatorID
	return r.List(ctx, filters)
}

func (r *QuizPostgreSQL) Search(ctx context.Context, search string, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var quizzes []*models.Quiz
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.Quiz{}), filters).
		Where("title ILIKE ? OR description ILIKE ?", "%"+search+"%", "%"+search+"%")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

func (r *QuizPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.QuizStatus) error {
	return r.db.WithContext(ctx).Model(&models.Quiz{}).Where("id = ?", id).Update("status", status).Error
}

func (r *QuizPostgreSQL) IsOwner(ctx context.Context, quizID uint, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ? AND created_by = ?", quizID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *QuizPostgreSQL) ExistsByTitle(ctx context.Context, title string, creatorID string, excludeID *uint) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("title = ? AND created_by = ?", title, creatorID)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *QuizPostgreSQL) HasAttempts(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *QuizPostgreSQL) GetStats(ctx context.Context, id uint) (*repositories.QuizStats, error) {
	var stats repositories.QuizStats

	var totalAttempts int64
	if err := r.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ?", id).
		Count(&totalAttempts).Error; err != nil {
		return nil, err
	}
	stats.TotalAttempts = int(totalAttempts)

	var completed, passed int64
	var avgPct, avgElapsed float64
	row := r.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND status = ?", id, models.AttemptCompleted).
		Select("COUNT(*), COALESCE(AVG(percentage), 0), COALESCE(AVG(elapsed_seconds), 0), COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0)").
		Row()
	if err := row.Scan(&completed, &avgPct, &avgElapsed, &passed); err != nil {
		return nil, err
	}

	stats.CompletedAttempts = int(completed)
	stats.AveragePercentage = avgPct
	stats.AverageElapsed = int(avgElapsed)
	if completed > 0 {
		stats.PassRate = float64(passed) / float64(completed)
	}

	var questionCount int64
	var totalPoints float64
	row = r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("quiz_id = ?", id).
		Select("COUNT(*), COALESCE(SUM(points), 0)").
		Row()
	if err := row.Scan(&questionCount, &totalPoints); err != nil {
		return nil, err
	}
	stats.QuestionCount = int(questionCount)
	stats.TotalPoints = totalPoints

	return &stats, nil
}

func (r *QuizPostgreSQL) GetCreatorStats(ctx context.Context, creatorID string) (*repositories.CreatorStats, error) {
	var stats repositories.CreatorStats

	counts := []struct {
		status models.QuizStatus
		dest   *int
	}{
		{models.QuizPublished, &stats.PublishedQuizzes},
		{models.QuizDraft, &stats.DraftQuizzes},
	}
	for _, c := range counts {
		var n int64
		if err := r.db.WithContext(ctx).
			Model(&models.Quiz{}).
			Where("created_by = ? AND status = ?", creatorID, c.status).
			Count(&n).Error; err != nil {
			return nil, err
		}
		*c.dest = int(n)
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("created_by = ?", creatorID).
		Count(&total).Error; err != nil {
		return nil, err
	}
	stats.TotalQuizzes = int(total)

	var questions int64
	if err := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Joins("JOIN quizzes ON quizzes.id = questions.quiz_id").
		Where("quizzes.created_by = ? AND quizzes.deleted_at IS NULL", creatorID).
		Count(&questions).Error; err != nil {
		return nil, err
	}
	stats.TotalQuestions = int(questions)

	var attempts int64
	if err := r.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id").
		Where("quizzes.created_by = ?", creatorID).
		Count(&attempts).Error; err != nil {
		return nil, err
	}
	stats.TotalAttempts = int(attempts)

	return &stats, nil
}

func (r *QuizPostgreSQL) applyFilters(query *gorm.DB, filters repositories.QuizFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}
