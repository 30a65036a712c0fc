package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/setoos/goforms/internal/cache"
	"github.com/setoos/goforms/internal/events"
	"github.com/setoos/goforms/internal/models"
	"github.com/setoos/goforms/internal/repositories"
	"github.com/setoos/goforms/internal/scoring"
	"github.com/setoos/goforms/internal/validator"
)

const quizCacheTTL = 5 * time.Minute

type quizService struct {
	repo      repositories.Repository
	cache     cache.QuizCache
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
}

func NewQuizService(
	repo repositories.Repository,
	quizCache cache.QuizCache,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *slog.Logger,
) QuizService {
	return &quizService{
		repo:      repo,
		cache:     quizCache,
		publisher: publisher,
		validator: v,
		logger:    logger,
	}
}

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, creatorID string) (*QuizResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.Quiz().ExistsByTitle(ctx, req.Title, creatorID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check title uniqueness: %w", err)
	}
	if exists {
		return nil, ErrQuizDuplicateTitle
	}

	quiz := &models.Quiz{
		Title:        req.Title,
		Description:  req.Description,
		Status:       models.QuizDraft,
		TimeLimit:    req.TimeLimit,
		PassingScore: req.PassingScore,
		AccessType:   models.AccessPrivate,
		AccessCode:   req.AccessCode,
		MaxAttempts:  1,
		ExpiresAt:    req.ExpiresAt,
		RandomizeAll: true,
		ShowFeedback: true,
		CreatedBy:    creatorID,
		Version:      1,
	}
	if req.AccessType != "" {
		quiz.AccessType = models.AccessType(req.AccessType)
	}
	if req.MaxAttempts > 0 {
		quiz.MaxAttempts = req.MaxAttempts
	}
	if req.RandomizeAll != nil {
		quiz.RandomizeAll = *req.RandomizeAll
	}
	if req.ShowFeedback != nil {
		quiz.ShowFeedback = *req.ShowFeedback
	}
	if quiz.AccessType == models.AccessPassword && (quiz.AccessCode == nil || *quiz.AccessCode == "") {
		return nil, NewBusinessRuleError("access_code_required",
			"password-protected quizzes require an access code", nil)
	}

	if err := s.repo.Quiz().Create(ctx, quiz); err != nil {
		s.logger.Error("Failed to create quiz", "creator_id", creatorID, "error", err)
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created", "quiz_id", quiz.ID, "creator_id", creatorID)
	return &QuizResponse{Quiz: quiz, CanEdit: true}, nil
}

func (s *quizService) GetByID(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	canEdit := quiz.CreatedBy == userID
	if !canEdit && quiz.Status != models.QuizPublished {
		return nil, NewPermissionError(userID, id, "quiz", "read", "quiz is not published")
	}

	s.decorate(quiz)
	return &QuizResponse{Quiz: quiz, CanEdit: canEdit}, nil
}

// GetForLearner serves the taking path: published quizzes only, access code
// enforced, answer keys stripped, question order randomized when the quiz
// asks for it. Reads go through the cache.
func (s *quizService) GetForLearner(ctx context.Context, id uint, accessCode *string) (*QuizResponse, error) {
	quiz, err := s.cache.GetQuiz(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Quiz cache read failed", "quiz_id", id, "error", err)
		}
		quiz, err = s.repo.Quiz().GetByIDWithQuestions(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrQuizNotFound
			}
			return nil, fmt.Errorf("failed to get quiz: %w", err)
		}
		if quiz.Status == models.QuizPublished {
			if cacheErr := s.cache.SetQuiz(ctx, quiz, quizCacheTTL); cacheErr != nil {
				s.logger.Warn("Quiz cache write failed", "quiz_id", id, "error", cacheErr)
			}
		}
	}

	if quiz.Status != models.QuizPublished {
		return nil, ErrQuizNotPublished
	}
	if quiz.ExpiresAt != nil && time.Now().After(*quiz.ExpiresAt) {
		return nil, ErrQuizExpired
	}
	if err := checkAccessCode(quiz, accessCode); err != nil {
		return nil, err
	}

	SanitizeForLearner(quiz)
	if quiz.RandomizeAll {
		// A randomized quiz never shows a stable order, not even on preview.
		quiz.Questions = scoring.ShuffleQuestions(scoring.NewRand(), quiz.Questions)
	}
	s.decorate(quiz)
	return &QuizResponse{Quiz: quiz, CanEdit: false}, nil
}

func (s *quizService) Update(ctx context.Context, id uint, req *UpdateQuizRequest, userID string) (*QuizResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := s.getOwnedQuiz(ctx, id, userID, "update")
	if err != nil {
		return nil, err
	}
	if quiz.Status == models.QuizArchived {
		return nil, ErrQuizNotEditable
	}

	if req.Title != nil && *req.Title != quiz.Title {
		exists, err := s.repo.Quiz().ExistsByTitle(ctx, *req.Title, userID, &id)
		if err != nil {
			return nil, fmt.Errorf("failed to check title uniqueness: %w", err)
		}
		if exists {
			return nil, ErrQuizDuplicateTitle
		}
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.TimeLimit != nil {
		quiz.TimeLimit = req.TimeLimit
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.AccessType != nil {
		quiz.AccessType = models.AccessType(*req.AccessType)
	}
	if req.AccessCode != nil {
		quiz.AccessCode = req.AccessCode
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}
	if req.ExpiresAt != nil {
		quiz.ExpiresAt = req.ExpiresAt
	}
	if req.RandomizeAll != nil {
		quiz.RandomizeAll = *req.RandomizeAll
	}
	if req.ShowFeedback != nil {
		quiz.ShowFeedback = *req.ShowFeedback
	}
	if quiz.AccessType == models.AccessPassword && (quiz.AccessCode == nil || *quiz.AccessCode == "") {
		return nil, NewBusinessRuleError("access_code_required",
			"password-protected quizzes require an access code", nil)
	}

	quiz.Version++
	if err := s.repo.Quiz().Update(ctx, quiz); err != nil {
		s.logger.Error("Failed to update quiz", "quiz_id", id, "error", err)
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}
	s.invalidateCache(ctx, id)

	return &QuizResponse{Quiz: quiz, CanEdit: true}, nil
}

func (s *quizService) Delete(ctx context.Context, id uint, userID string) error {
	if _, err := s.getOwnedQuiz(ctx, id, userID, "delete"); err != nil {
		return err
	}

	hasAttempts, err := s.repo.Quiz().HasAttempts(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check attempts: %w", err)
	}
	if hasAttempts {
		return NewBusinessRuleError("quiz_has_attempts",
			"quizzes with recorded attempts must be archived, not deleted", nil)
	}

	if err := s.repo.Quiz().Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete quiz", "quiz_id", id, "error", err)
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	s.invalidateCache(ctx, id)

	s.logger.Info("Quiz deleted", "quiz_id", id, "user_id", userID)
	return nil
}

func (s *quizService) List(ctx context.Context, filters repositories.QuizFilters, userID string) ([]*models.Quiz, int64, error) {
	return s.repo.Quiz().GetByCreator(ctx, userID, filters)
}

func (s *quizService) Search(ctx context.Context, query string, filters repositories.QuizFilters, userID string) ([]*models.Quiz, int64, error) {
	filters.CreatedBy = &userID
	return s.repo.Quiz().Search(ctx, query, filters)
}

// SaveQuestions replaces the quiz's question set wholesale. Each incoming
// question is validated for its type before anything is written.
func (s *quizService) SaveQuestions(ctx context.Context, quizID uint, req *SaveQuestionsRequest, userID string) (*QuizResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := s.getOwnedQuiz(ctx, quizID, userID, "edit questions")
	if err != nil {
		return nil, err
	}
	if quiz.Status == models.QuizArchived {
		return nil, ErrQuizNotEditable
	}

	questions := make([]models.Question, 0, len(req.Questions))
	var allErrs ValidationErrors
	for i, input := range req.Questions {
		q := buildQuestion(quizID, i, input)
		if errs := validator.ValidateQuestion(&q); len(errs) > 0 {
			for _, e := range errs {
				e.Field = fmt.Sprintf("questions[%d].%s", i, e.Field)
				allErrs = append(allErrs, e)
			}
			continue
		}
		questions = append(questions, q)
	}
	if len(allErrs) > 0 {
		return nil, allErrs
	}

	// The replace and the version bump land together or not at all.
	repo := s.repo
	var tx repositories.TransactionRepository
	if starter, ok := s.repo.(repositories.TransactionRepository); ok {
		started, err := starter.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		tx = started
		repo = started
	}

	if err := repo.Question().ReplaceForQuiz(ctx, quizID, questions); err != nil {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
		s.logger.Error("Failed to save questions", "quiz_id", quizID, "error", err)
		return nil, fmt.Errorf("failed to save questions: %w", err)
	}

	quiz.Version++
	if err := repo.Quiz().Update(ctx, quiz); err != nil {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
		return nil, fmt.Errorf("failed to bump quiz version: %w", err)
	}
	if tx != nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit question save: %w", err)
		}
	}
	s.invalidateCache(ctx, quizID)

	updated, err := s.repo.Quiz().GetByIDWithQuestions(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload quiz: %w", err)
	}
	s.decorate(updated)

	s.logger.Info("Questions saved", "quiz_id", quizID, "count", len(questions))
	return &QuizResponse{Quiz: updated, CanEdit: true}, nil
}

func (s *quizService) Publish(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	quiz, err := s.getOwnedQuiz(ctx, id, userID, "publish")
	if err != nil {
		return nil, err
	}
	if quiz.Status == models.QuizPublished {
		return nil, ErrConflict
	}

	count, err := s.repo.Question().CountByQuiz(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	if count == 0 {
		return nil, ErrQuizHasNoQuestions
	}

	// Every question must pass its type checks before learners see the quiz.
	questions, err := s.repo.Question().GetByQuiz(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	var allErrs ValidationErrors
	for i := range questions {
		if errs := validator.ValidateQuestion(&questions[i]); len(errs) > 0 {
			for _, e := range errs {
				e.Field = fmt.Sprintf("questions[%d].%s", i, e.Field)
				allErrs = append(allErrs, e)
			}
		}
	}
	if len(allErrs) > 0 {
		return nil, allErrs
	}

	if err := s.repo.Quiz().UpdateStatus(ctx, id, models.QuizPublished); err != nil {
		s.logger.Error("Failed to publish quiz", "quiz_id", id, "error", err)
		return nil, fmt.Errorf("failed to publish quiz: %w", err)
	}
	quiz.Status = models.QuizPublished
	s.invalidateCache(ctx, id)

	// Notification is best effort.
	event := events.NewQuizEvent(events.EventQuizPublished, events.QuizPublishedEvent{
		QuizID:      quiz.ID,
		Title:       quiz.Title,
		CreatedBy:   quiz.CreatedBy,
		PublishedAt: time.Now().UTC(),
	})
	if err := s.publisher.PublishQuizEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish quiz event", "quiz_id", id, "error", err)
	}

	s.logger.Info("Quiz published", "quiz_id", id, "user_id", userID)
	return &QuizResponse{Quiz: quiz, CanEdit: true}, nil
}

func (s *quizService) Archive(ctx context.Context, id uint, userID string) (*QuizResponse, error) {
	quiz, err := s.getOwnedQuiz(ctx, id, userID, "archive")
	if err != nil {
		return nil, err
	}
	if quiz.Status == models.QuizArchived {
		return nil, ErrConflict
	}

	if err := s.repo.Quiz().UpdateStatus(ctx, id, models.QuizArchived); err != nil {
		return nil, fmt.Errorf("failed to archive quiz: %w", err)
	}
	quiz.Status = models.QuizArchived
	s.invalidateCache(ctx, id)

	s.logger.Info("Quiz archived", "quiz_id", id, "user_id", userID)
	return &QuizResponse{Quiz: quiz, CanEdit: true}, nil
}

func (s *quizService) GetStats(ctx context.Context, id uint, userID string) (*repositories.QuizStats, error) {
	if _, err := s.getOwnedQuiz(ctx, id, userID, "view stats"); err != nil {
		return nil, err
	}
	return s.repo.Quiz().GetStats(ctx, id)
}

func (s *quizService) GetCreatorStats(ctx context.Context, creatorID string) (*repositories.CreatorStats, error) {
	return s.repo.Quiz().GetCreatorStats(ctx, creatorID)
}

// ===== HELPERS =====

func (s *quizService) getOwnedQuiz(ctx context.Context, id uint, userID, action string) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "quiz", action, "not the quiz owner")
	}
	return quiz, nil
}

func (s *quizService) invalidateCache(ctx context.Context, quizID uint) {
	if err := s.cache.InvalidateQuiz(ctx, quizID); err != nil {
		s.logger.Warn("Quiz cache invalidation failed", "quiz_id", quizID, "error", err)
	}
}

func (s *quizService) decorate(quiz *models.Quiz) {
	quiz.QuestionsCount = len(quiz.Questions)
	var total float64
	for i := range quiz.Questions {
		total += quiz.Questions[i].Points
	}
	quiz.TotalPoints = total
}

func checkAccessCode(quiz *models.Quiz, accessCode *string) error {
	if quiz.AccessType != models.AccessPassword {
		return nil
	}
	if accessCode == nil || quiz.AccessCode == nil || *accessCode != *quiz.AccessCode {
		return ErrQuizWrongPassword
	}
	return nil
}

// SanitizeForLearner strips everything a quiz taker must not see: answer
// keys, option scores and correctness flags, ordering positions.
func SanitizeForLearner(quiz *models.Quiz) {
	quiz.AccessCode = nil
	for i := range quiz.Questions {
		SanitizeQuestionForLearner(&quiz.Questions[i])
	}
}

// Scrubbing happens on copies of the option and ordering slices so that a
// question list shared between concurrent requests is never written.
func SanitizeQuestionForLearner(q *models.Question) {
	q.AnswerKey = nil
	if len(q.Options) > 0 {
		options := append([]models.Option(nil), q.Options...)
		for j := range options {
			options[j].Score = 0
			options[j].IsCorrect = false
			options[j].Feedback = nil
		}
		q.Options = options
	}
	if len(q.OrderingItems) > 0 {
		items := append([]models.OrderingItem(nil), q.OrderingItems...)
		for j := range items {
			items[j].CorrectPosition = 0
		}
		q.OrderingItems = items
	}
	q.EssayRubrics = nil
}

func buildQuestion(quizID uint, index int, input QuestionInput) models.Question {
	q := models.Question{
		QuizID:    quizID,
		Type:      input.Type,
		Text:      input.Text,
		Points:    input.Points,
		Order:     index,
		TimeLimit: input.TimeLimit,
		MediaURL:  input.MediaURL,
	}
	if q.Points <= 0 {
		q.Points = scoring.DefaultMaxPoints
	}
	if input.Difficulty != nil {
		q.Difficulty = models.DifficultyLevel(*input.Difficulty)
	}
	if input.Cognitive != nil {
		q.Cognitive = models.CognitiveLevel(*input.Cognitive)
	}
	if len(input.AnswerKey) > 0 {
		q.AnswerKey = []byte(input.AnswerKey)
	}

	for i, opt := range input.Options {
		q.Options = append(q.Options, models.Option{
			Text:      opt.Text,
			Score:     opt.Score,
			IsCorrect: opt.Score > 0,
			Feedback:  opt.Feedback,
			Order:     i,
		})
	}
	for i, pair := range input.MatchingPairs {
		q.MatchingPairs = append(q.MatchingPairs, models.MatchingPair{
			LeftText:  pair.LeftText,
			RightText: pair.RightText,
			Order:     i,
		})
	}
	for i, item := range input.OrderingItems {
		q.OrderingItems = append(q.OrderingItems, models.OrderingItem{
			Text:            item.Text,
			CorrectPosition: item.CorrectPosition,
			Order:           i,
		})
	}
	for i, rubric := range input.EssayRubrics {
		q.EssayRubrics = append(q.EssayRubrics, models.EssayRubric{
			Criterion: rubric.Criterion,
			MaxPoints: rubric.MaxPoints,
			Order:     i,
		})
	}
	return q
}
