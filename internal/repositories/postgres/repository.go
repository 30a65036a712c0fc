package postgres

import (
	"context"
	"fmt"

	"github.com/setoos/goforms/internal/repositories"
	"gorm.io/gorm"
)

// gormRepository is the PostgreSQL-backed aggregate. A transactional copy
// shares the same wiring but carries the tx handle.
type gormRepository struct {
	db   *gorm.DB
	inTx bool
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Quiz() repositories.QuizRepository {
	return &QuizPostgreSQL{db: r.db}
}

func (r *gormRepository) Question() repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: r.db}
}

func (r *gormRepository) Attempt() repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: r.db}
}

func (r *gormRepository) Answer() repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: r.db}
}

func (r *gormRepository) User() repositories.UserRepository {
	return &UserPostgreSQL{db: r.db}
}

func (r *gormRepository) Begin(ctx context.Context) (repositories.TransactionRepository, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &gormRepository{db: tx, inTx: true}, nil
}

func (r *gormRepository) Commit(ctx context.Context) error {
	if !r.inTx {
		return nil
	}
	return r.db.Commit().Error
}

func (r *gormRepository) Rollback(ctx context.Context) error {
	if !r.inTx {
		return nil
	}
	return r.db.Rollback().Error
}

// applyPaginationAndSort applies the shared limit/offset/sort handling.
func applyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if sortBy != "" {
		order := "desc"
		if sortOrder == "asc" {
			order = "asc"
		}
		query = query.Order(fmt.Sprintf("%s %s", sortBy, order))
	} else {
		query = query.Order("created_at desc")
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
