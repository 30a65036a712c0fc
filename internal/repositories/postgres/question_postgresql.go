package postgres

import (
	"context"

	"github.com/setoos/goforms/internal/models"
	"github.com/setoos/goforms/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (r *QuestionPostgreSQL) GetByQuiz(ctx context.Context, quizID uint) ([]models.Question, error) {
	var questions []models.Question
	if err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("display_order ASC").
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.display_order ASC")
		}).
		Preload("MatchingPairs").
		Preload("OrderingItems").
		Preload("EssayRubrics").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).
		Preload("Options").
		Preload("MatchingPairs").
		Preload("OrderingItems").
		Preload("EssayRubrics").
		First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// ReplaceForQuiz deletes the quiz's existing questions and payload rows and
// inserts the new set wholesale. Saves never diff in place.
func (r *QuestionPostgreSQL) ReplaceForQuiz(ctx context.Context, quizID uint, questions []models.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existingIDs []uint
		if err := tx.Model(&models.Question{}).
			Where("quiz_id = ?", quizID).
			Pluck("id", &existingIDs).Error; err != nil {
			return err
		}

		if len(existingIDs) > 0 {
			payloads := []interface{}{
				&models.Option{}, &models.MatchingPair{}, &models.OrderingItem{}, &models.EssayRubric{},
			}
			for _, payload := range payloads {
				if err := tx.Where("question_id IN ?", existingIDs).Delete(payload).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Question{}).Error; err != nil {
				return err
			}
		}

		if len(questions) == 0 {
			return nil
		}

		for i := range questions {
			questions[i].ID = 0
			questions[i].QuizID = quizID
			questions[i].Order = i
			for j := range questions[i].Options {
				questions[i].Options[j].ID = 0
				questions[i].Options[j].Order = j
			}
			for j := range questions[i].MatchingPairs {
				questions[i].MatchingPairs[j].ID = 0
			}
			for j := range questions[i].OrderingItems {
				questions[i].OrderingItems[j].ID = 0
			}
			for j := range questions[i].EssayRubrics {
				questions[i].EssayRubrics[j].ID = 0
			}
		}

		return tx.Create(&questions).Error
	})
}

func (r *QuestionPostgreSQL) CountByQuiz(ctx context.Context, quizID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	return count, err
}
