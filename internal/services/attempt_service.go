package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/setoos/goforms/internal/events"
	"github.com/setoos/goforms/internal/models"
	"github.com/setoos/goforms/internal/repositories"
	"github.com/setoos/goforms/internal/scoring"
)

type attemptService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewAttemptService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	logger *slog.Logger,
) AttemptService {
	return &attemptService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Start opens a new attempt, or resumes the student's in-progress one. The
// returned question set is shuffled (when the quiz randomizes) and stripped
// of answer keys.
func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, studentID string) (*AttemptResponse, error) {
	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, req.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	now := time.Now()
	if quiz.Status != models.QuizPublished {
		return nil, ErrQuizNotPublished
	}
	if !quiz.IsOpen(now) {
		return nil, ErrQuizExpired
	}
	if err := checkAccessCode(quiz, req.AccessCode); err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, ErrQuizHasNoQuestions
	}

	// An unfinished attempt is resumed rather than counted again, unless its
	// time limit already ran out. A stale attempt is marked timed out and
	// still counts toward the limit.
	active, err := s.repo.Attempt().GetActiveAttempt(ctx, quiz.ID, studentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}
	if active != nil {
		if !attemptOverdue(active, quiz, now) {
			return &AttemptResponse{
				QuizAttempt: active,
				Questions:   s.learnerQuestions(quiz),
				Resumed:     true,
			}, nil
		}
		if err := s.repo.Attempt().UpdateStatus(ctx, active.ID, models.AttemptTimedOut); err != nil {
			return nil, fmt.Errorf("failed to time out stale attempt: %w", err)
		}
		s.logger.Info("Attempt timed out", "attempt_id", active.ID, "quiz_id", quiz.ID, "student_id", studentID)
	}

	count, err := s.repo.Attempt().CountByStudent(ctx, quiz.ID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if int(count) >= quiz.MaxAttempts {
		return nil, ErrAttemptLimitExceeded
	}

	attempt := &models.QuizAttempt{
		QuizID:    quiz.ID,
		StudentID: studentID,
		Status:    models.AttemptInProgress,
		ScoreMap:  map[string]interface{}{},
		StartedAt: now,
	}
	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		s.logger.Error("Failed to create attempt", "quiz_id", quiz.ID, "student_id", studentID, "error", err)
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Attempt started", "attempt_id", attempt.ID, "quiz_id", quiz.ID, "student_id", studentID)
	return &AttemptResponse{
		QuizAttempt: attempt,
		Questions:   s.learnerQuestions(quiz),
	}, nil
}

// SubmitAnswer evaluates and records one answer. Re-answering the same
// question overwrites the previous score, it never double counts.
func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) (*scoring.Evaluation, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	question, err := s.repo.Question().GetByID(ctx, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question.QuizID != attempt.QuizID {
		return nil, ErrQuestionNotFound
	}

	eval, err := scoring.EvaluateAnswer(question, req.AnswerData)
	if err != nil {
		return nil, NewBusinessRuleError("malformed_answer",
			fmt.Sprintf("answer payload does not match question type %s", question.Type),
			map[string]interface{}{"question_id": question.ID})
	}

	answer := &models.AttemptAnswer{
		AttemptID:    attemptID,
		QuestionID:   question.ID,
		AnswerData:   []byte(req.AnswerData),
		Score:        eval.Score,
		NeedsGrading: eval.NeedsGrading,
		TimeSpent:    req.TimeSpent,
	}
	if err := s.repo.Answer().Upsert(ctx, answer); err != nil {
		s.logger.Error("Failed to record answer",
			"attempt_id", attemptID, "question_id", question.ID, "error", err)
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	if attempt.ScoreMap == nil {
		attempt.ScoreMap = map[string]interface{}{}
	}
	attempt.ScoreMap[fmt.Sprintf("%d", question.ID)] = eval.Score
	if eval.NeedsGrading {
		attempt.NeedsGrading = true
	}
	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		s.logger.Error("Failed to update attempt score map", "attempt_id", attemptID, "error", err)
		return nil, fmt.Errorf("failed to update attempt: %w", err)
	}

	return &eval, nil
}

// Complete closes the attempt and computes the final result from the
// recorded answers. The result is computed locally first; if the final
// write fails it is logged and the student still gets their result.
func (s *attemptService) Complete(ctx context.Context, attemptID uint, studentID string) (*AttemptResult, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == models.AttemptCompleted {
		return nil, ErrAttemptAlreadyCompleted
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	questionCount, err := s.repo.Question().CountByQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	answers, err := s.repo.Answer().GetByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	acc := scoring.NewAccumulator()
	needsGrading := false
	for _, a := range answers {
		acc.Record(a.QuestionID, a.Score, []byte(a.AnswerData))
		if a.NeedsGrading {
			needsGrading = true
		}
	}

	now := time.Now()
	percentage := acc.Finalize(int(questionCount), scoring.DefaultMaxPoints)
	result := &AttemptResult{
		AttemptID:      attemptID,
		QuizID:         attempt.QuizID,
		Scores:         acc.ScoreMap(),
		Total:          acc.Total(),
		Percentage:     percentage,
		Passed:         !needsGrading && percentage >= quiz.PassingScore,
		NeedsGrading:   needsGrading,
		ElapsedSeconds: int(now.Sub(attempt.StartedAt).Seconds()),
	}

	attempt.Status = models.AttemptCompleted
	attempt.Percentage = result.Percentage
	attempt.Passed = result.Passed
	attempt.NeedsGrading = needsGrading
	attempt.CompletedAt = &now
	attempt.ElapsedSeconds = result.ElapsedSeconds
	scoreMap := make(map[string]interface{}, len(result.Scores))
	for id, score := range result.Scores {
		scoreMap[fmt.Sprintf("%d", id)] = score
	}
	attempt.ScoreMap = scoreMap

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		// The student keeps their locally computed result either way.
		s.logger.Error("Failed to persist completed attempt, returning local result",
			"attempt_id", attemptID, "error", err)
		return result, nil
	}

	event := events.NewQuizEvent(events.EventAttemptCompleted, events.AttemptCompletedEvent{
		AttemptID:    attemptID,
		QuizID:       quiz.ID,
		QuizTitle:    quiz.Title,
		StudentID:    studentID,
		Scores:       result.Scores,
		Percentage:   result.Percentage,
		Passed:       result.Passed,
		NeedsGrading: result.NeedsGrading,
		CompletedAt:  now.UTC(),
	})
	if err := s.publisher.PublishQuizEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt completed event", "attempt_id", attemptID, "error", err)
	}

	s.logger.Info("Attempt completed",
		"attempt_id", attemptID,
		"percentage", result.Percentage,
		"passed", result.Passed,
		"needs_grading", result.NeedsGrading)
	return result, nil
}

// Abandon closes the student's own in-progress attempt without scoring it.
// An abandoned attempt still counts toward the quiz's attempt limit.
func (s *attemptService) Abandon(ctx context.Context, attemptID uint, studentID string) error {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptNotActive
	}
	if err := s.repo.Attempt().UpdateStatus(ctx, attemptID, models.AttemptAbandoned); err != nil {
		s.logger.Error("Failed to abandon attempt", "attempt_id", attemptID, "error", err)
		return fmt.Errorf("failed to abandon attempt: %w", err)
	}
	s.logger.Info("Attempt abandoned", "attempt_id", attemptID, "student_id", studentID)
	return nil
}

func (s *attemptService) GetByID(ctx context.Context, id uint, userID string) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != userID {
		owner, err := s.repo.Quiz().IsOwner(ctx, attempt.QuizID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check quiz ownership: %w", err)
		}
		if !owner {
			return nil, NewPermissionError(userID, id, "attempt", "read", "not the attempt owner")
		}
	}
	return attempt, nil
}

func (s *attemptService) List(ctx context.Context, filters repositories.AttemptFilters, userID string) ([]*models.QuizAttempt, int64, error) {
	if filters.QuizID != nil {
		owner, err := s.repo.Quiz().IsOwner(ctx, *filters.QuizID, userID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to check quiz ownership: %w", err)
		}
		if owner {
			return s.repo.Attempt().List(ctx, filters)
		}
	}
	// Non-owners only ever see their own attempts.
	filters.StudentID = &userID
	return s.repo.Attempt().List(ctx, filters)
}

// ===== HELPERS =====

func attemptOverdue(attempt *models.QuizAttempt, quiz *models.Quiz, now time.Time) bool {
	if quiz.TimeLimit == nil {
		return false
	}
	deadline := attempt.StartedAt.Add(time.Duration(*quiz.TimeLimit) * time.Minute)
	return now.After(deadline)
}

func (s *attemptService) getOwnedAttempt(ctx context.Context, id uint, studentID string) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != studentID {
		return nil, NewPermissionError(studentID, id, "attempt", "write", "not the attempt owner")
	}
	return attempt, nil
}

func (s *attemptService) learnerQuestions(quiz *models.Quiz) []models.Question {
	questions := quiz.Questions
	if quiz.RandomizeAll {
		// rand.Rand is not safe for concurrent use, so each request gets
		// its own freshly seeded source.
		questions = scoring.ShuffleQuestions(scoring.NewRand(), questions)
	} else {
		questions = append([]models.Question(nil), questions...)
	}
	for i := range questions {
		SanitizeQuestionForLearner(&questions[i])
	}
	return questions
}
