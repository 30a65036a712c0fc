package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/setoos/goforms/internal/models"
	"github.com/setoos/goforms/internal/repositories"
	"github.com/setoos/goforms/internal/scoring"
)

type gradingService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewGradingService(repo repositories.Repository, logger *slog.Logger) GradingService {
	return &gradingService{repo: repo, logger: logger}
}

// ListPending returns the quiz's answers still waiting for a grade, oldest
// first. Only the quiz owner may see them.
func (s *gradingService) ListPending(ctx context.Context, quizID uint, graderID string) ([]*models.AttemptAnswer, error) {
	owner, err := s.repo.Quiz().IsOwner(ctx, quizID, graderID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to check quiz ownership: %w", err)
	}
	if !owner {
		return nil, NewPermissionError(graderID, quizID, "quiz", "grade", "not the quiz owner")
	}
	return s.repo.Answer().GetPendingByQuiz(ctx, quizID)
}

// GradeAnswer records a manual score for one answer. Once the attempt has
// no pending answers left, its percentage is recomputed and the grading
// flag cleared.
func (s *gradingService) GradeAnswer(ctx context.Context, answerID uint, req *GradeAnswerRequest, graderID string) (*models.AttemptAnswer, error) {
	answer, err := s.repo.Answer().GetByID(ctx, answerID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}
	if !answer.NeedsGrading {
		return nil, ErrGradingNotNeeded
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, answer.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	owner, err := s.repo.Quiz().IsOwner(ctx, attempt.QuizID, graderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check quiz ownership: %w", err)
	}
	if !owner {
		return nil, NewPermissionError(graderID, answerID, "answer", "grade", "not the quiz owner")
	}

	question, err := s.repo.Question().GetByID(ctx, answer.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if req.Score < 0 || req.Score > question.Points {
		return nil, ErrGradingInvalidScore
	}

	now := time.Now()
	answer.Score = req.Score
	answer.NeedsGrading = false
	answer.GradedBy = &graderID
	answer.GradedAt = &now
	answer.Feedback = req.Feedback
	if err := s.repo.Answer().Update(ctx, answer); err != nil {
		s.logger.Error("Failed to save grade", "answer_id", answerID, "error", err)
		return nil, fmt.Errorf("failed to save grade: %w", err)
	}

	if err := s.refinalizeAttempt(ctx, attempt); err != nil {
		s.logger.Error("Failed to refinalize attempt after grading",
			"attempt_id", attempt.ID, "error", err)
		return nil, err
	}

	s.logger.Info("Answer graded",
		"answer_id", answerID, "attempt_id", attempt.ID, "grader_id", graderID, "score", req.Score)
	return answer, nil
}

// refinalizeAttempt rebuilds the attempt's score map and percentage from
// its answer rows after a grade lands.
func (s *gradingService) refinalizeAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	answers, err := s.repo.Answer().GetByAttempt(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to load answers: %w", err)
	}
	pending, err := s.repo.Answer().CountPendingByAttempt(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to count pending answers: %w", err)
	}
	questionCount, err := s.repo.Question().CountByQuiz(ctx, attempt.QuizID)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	quiz, err := s.repo.Quiz().GetByID(ctx, attempt.QuizID)
	if err != nil {
		return fmt.Errorf("failed to get quiz: %w", err)
	}

	acc := scoring.NewAccumulator()
	scoreMap := make(map[string]interface{}, len(answers))
	for _, a := range answers {
		acc.Record(a.QuestionID, a.Score, []byte(a.AnswerData))
		scoreMap[fmt.Sprintf("%d", a.QuestionID)] = a.Score
	}

	attempt.ScoreMap = scoreMap
	attempt.NeedsGrading = pending > 0
	attempt.Percentage = acc.Finalize(int(questionCount), scoring.DefaultMaxPoints)
	attempt.Passed = !attempt.NeedsGrading && attempt.Percentage >= quiz.PassingScore

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return nil
}
