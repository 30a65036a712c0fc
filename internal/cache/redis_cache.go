package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/setoos/goforms/internal/models"
)

// ErrCacheMiss is returned when the key is absent; callers fall through to
// the database.
var ErrCacheMiss = errors.New("cache miss")

// QuizCache fronts the published-quiz reads on the learner path. Authoring
// reads always hit the database.
type QuizCache interface {
	GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error)
	SetQuiz(ctx context.Context, quiz *models.Quiz, ttl time.Duration) error
	InvalidateQuiz(ctx context.Context, quizID uint) error
}

type redisQuizCache struct {
	client *redis.Client
}

func NewRedisQuizCache(client *redis.Client) QuizCache {
	return &redisQuizCache{client: client}
}

func quizKey(quizID uint) string {
	return fmt.Sprintf("goforms:quiz:%d", quizID)
}

func (c *redisQuizCache) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	data, err := c.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var quiz models.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		// Treat a corrupt entry as a miss and let the caller repopulate.
		return nil, ErrCacheMiss
	}
	return &quiz, nil
}

func (c *redisQuizCache) SetQuiz(ctx context.Context, quiz *models.Quiz, ttl time.Duration) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, quizKey(quiz.ID), data, ttl).Err()
}

func (c *redisQuizCache) InvalidateQuiz(ctx context.Context, quizID uint) error {
	return c.client.Del(ctx, quizKey(quizID)).Err()
}

// NoopQuizCache is used when Redis is not configured; every read is a miss.
type NoopQuizCache struct{}

func (NoopQuizCache) GetQuiz(ctx context.Context, quizID uint) (*models.Quiz, error) {
	return nil, ErrCacheMiss
}

func (NoopQuizCache) SetQuiz(ctx context.Context, quiz *models.Quiz, ttl time.Duration) error {
	return nil
}

func (NoopQuizCache) InvalidateQuiz(ctx context.Context, quizID uint) error {
	return nil
}
