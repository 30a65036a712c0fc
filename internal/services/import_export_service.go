package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/setoos/goforms/internal/models"
	"github.com/setoos/goforms/internal/repositories"
	"github.com/setoos/goforms/internal/scoring"
	"github.com/setoos/goforms/internal/validator"
	"github.com/xuri/excelize/v2"
)

const questionSheet = "Questions"

// xlsx column layout. Type-specific content goes in the Answers column:
//
//	multiple_choice     text:score|text:score (one entry per option)
//	true_false          true or false
//	fill_blank          answer|alternative|alternative
//	matching            left=right|left=right
//	ordering            item|item|item (listed in correct order)
//	complete_statement  answer|answer;per_correct
//	manual types        left empty, graded by hand
var questionColumns = []string{"Type", "Text", "Points", "Difficulty", "Answers"}

type importExportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewImportExportService(repo repositories.Repository, logger *slog.Logger) ImportExportService {
	return &importExportService{repo: repo, logger: logger}
}

// ImportQuestionsXLSX parses a workbook and appends the valid rows to the
// quiz's question set. Row failures are collected, not fatal.
func (s *importExportService) ImportQuestionsXLSX(ctx context.Context, quizID uint, data []byte, userID string) (*ImportSummary, error) {
	start := time.Now()

	quiz, err := s.getOwnedQuiz(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}
	if quiz.Status == models.QuizArchived {
		return nil, ErrQuizNotEditable
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewBusinessRuleError("invalid_workbook", "file is not a valid xlsx workbook", nil)
	}
	defer f.Close()

	sheet := questionSheet
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, NewBusinessRuleError("empty_workbook", "workbook has no question rows", nil)
	}

	existing, err := s.repo.Question().GetByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing questions: %w", err)
	}

	summary := &ImportSummary{TotalRows: len(rows) - 1}
	questions := existing
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header
		q, err := parseQuestionRow(row, quizID, len(questions))
		if err != nil {
			summary.ErrorCount++
			summary.Errors = append(summary.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		if errs := validator.ValidateQuestion(&q); len(errs) > 0 {
			summary.ErrorCount++
			summary.Errors = append(summary.Errors, ImportRowError{Row: rowNum, Message: errs.Error()})
			continue
		}
		questions = append(questions, q)
		summary.SuccessCount++
	}

	if summary.SuccessCount > 0 {
		if err := s.repo.Question().ReplaceForQuiz(ctx, quizID, questions); err != nil {
			s.logger.Error("Failed to save imported questions", "quiz_id", quizID, "error", err)
			return nil, fmt.Errorf("failed to save imported questions: %w", err)
		}
	}

	summary.ProcessingTime = time.Since(start)
	s.logger.Info("Questions imported",
		"quiz_id", quizID,
		"success", summary.SuccessCount,
		"errors", summary.ErrorCount)
	return summary, nil
}

// ExportQuestionsXLSX writes the quiz's questions into a workbook using the
// same layout the importer reads.
func (s *importExportService) ExportQuestionsXLSX(ctx context.Context, quizID uint, userID string) ([]byte, error) {
	if _, err := s.getOwnedQuiz(ctx, quizID, userID); err != nil {
		return nil, err
	}
	questions, err := s.repo.Question().GetByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), questionSheet)

	for col, name := range questionColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(questionSheet, cell, name); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, q := range questions {
		values := []interface{}{
			string(q.Type),
			q.Text,
			q.Points,
			string(q.Difficulty),
			formatAnswers(&q),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(questionSheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *importExportService) getOwnedQuiz(ctx context.Context, quizID uint, userID string) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.CreatedBy != userID {
		return nil, NewPermissionError(userID, quizID, "quiz", "import/export", "not the quiz owner")
	}
	return quiz, nil
}

// ===== ROW CODEC =====

func parseQuestionRow(row []string, quizID uint, order int) (models.Question, error) {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	q := models.Question{
		QuizID: quizID,
		Type:   models.QuestionType(get(0)),
		Text:   get(1),
		Points: scoring.DefaultMaxPoints,
		Order:  order,
	}
	if q.Text == "" {
		return q, fmt.Errorf("question text is required")
	}
	if raw := get(2); raw != "" {
		points, err := strconv.ParseFloat(raw, 64)
		if err != nil || points < 0 {
			return q, fmt.Errorf("invalid points value %q", raw)
		}
		q.Points = points
	}
	if raw := get(3); raw != "" {
		q.Difficulty = models.DifficultyLevel(raw)
	}

	answers := get(4)
	switch q.Type {
	case models.MultipleChoice:
		if answers == "" {
			return q, fmt.Errorf("multiple_choice rows need options in the Answers column")
		}
		for i, part := range strings.Split(answers, "|") {
			text, scoreRaw, found := strings.Cut(part, ":")
			score := 0.0
			if found {
				parsed, err := strconv.ParseFloat(strings.TrimSpace(scoreRaw), 64)
				if err != nil {
					return q, fmt.Errorf("invalid option score in %q", part)
				}
				score = parsed
			}
			q.Options = append(q.Options, models.Option{
				Text:      strings.TrimSpace(text),
				Score:     score,
				IsCorrect: score > 0,
				Order:     i,
			})
		}
	case models.TrueFalse:
		correct, err := strconv.ParseBool(strings.ToLower(answers))
		if err != nil {
			return q, fmt.Errorf("true_false rows need true or false in the Answers column")
		}
		q.AnswerKey = mustKey(models.TrueFalseKey{CorrectAnswer: correct})
	case models.FillBlank:
		parts := strings.Split(answers, "|")
		if parts[0] == "" {
			return q, fmt.Errorf("fill_blank rows need at least one answer")
		}
		key := models.FillBlankKey{CorrectAnswer: strings.TrimSpace(parts[0])}
		for _, alt := range parts[1:] {
			if alt = strings.TrimSpace(alt); alt != "" {
				key.AlternativeAnswers = append(key.AlternativeAnswers, alt)
			}
		}
		q.AnswerKey = mustKey(key)
	case models.Matching:
		for i, part := range strings.Split(answers, "|") {
			left, right, found := strings.Cut(part, "=")
			if !found {
				return q, fmt.Errorf("matching rows need left=right pairs, got %q", part)
			}
			q.MatchingPairs = append(q.MatchingPairs, models.MatchingPair{
				LeftText:  strings.TrimSpace(left),
				RightText: strings.TrimSpace(right),
				Order:     i,
			})
		}
	case models.Ordering:
		for i, part := range strings.Split(answers, "|") {
			q.OrderingItems = append(q.OrderingItems, models.OrderingItem{
				Text:            strings.TrimSpace(part),
				CorrectPosition: i,
				Order:           i,
			})
		}
	case models.CompleteStatement:
		list, perCorrectRaw, _ := strings.Cut(answers, ";")
		key := models.CompleteStatementKey{
			Scoring: models.StatementScoring{PerCorrect: 2},
		}
		for _, part := range strings.Split(list, "|") {
			if part = strings.TrimSpace(part); part != "" {
				key.Answers = append(key.Answers, part)
			}
		}
		if len(key.Answers) == 0 {
			return q, fmt.Errorf("complete_statement rows need at least one answer")
		}
		if perCorrectRaw = strings.TrimSpace(perCorrectRaw); perCorrectRaw != "" {
			perCorrect, err := strconv.ParseFloat(perCorrectRaw, 64)
			if err != nil || perCorrect < 0 {
				return q, fmt.Errorf("invalid per-correct score %q", perCorrectRaw)
			}
			key.Scoring.PerCorrect = perCorrect
		}
		q.AnswerKey = mustKey(key)
	case models.Essay, models.ShortAnswer, models.PictureBased, models.Definition:
		// Manually graded, no key to parse.
	default:
		return q, fmt.Errorf("unknown question type %q", get(0))
	}

	return q, nil
}

func formatAnswers(q *models.Question) string {
	switch q.Type {
	case models.MultipleChoice:
		parts := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			parts = append(parts, fmt.Sprintf("%s:%g", opt.Text, opt.Score))
		}
		return strings.Join(parts, "|")
	case models.TrueFalse:
		var key models.TrueFalseKey
		if err := json.Unmarshal(q.AnswerKey, &key); err == nil {
			return strconv.FormatBool(key.CorrectAnswer)
		}
	case models.FillBlank:
		var key models.FillBlankKey
		if err := json.Unmarshal(q.AnswerKey, &key); err == nil {
			return strings.Join(append([]string{key.CorrectAnswer}, key.AlternativeAnswers...), "|")
		}
	case models.Matching:
		parts := make([]string, 0, len(q.MatchingPairs))
		for _, pair := range q.MatchingPairs {
			parts = append(parts, pair.LeftText+"="+pair.RightText)
		}
		return strings.Join(parts, "|")
	case models.Ordering:
		ordered := make([]string, len(q.OrderingItems))
		for _, item := range q.OrderingItems {
			if item.CorrectPosition >= 0 && item.CorrectPosition < len(ordered) {
				ordered[item.CorrectPosition] = item.Text
			}
		}
		return strings.Join(ordered, "|")
	case models.CompleteStatement:
		var key models.CompleteStatementKey
		if err := json.Unmarshal(q.AnswerKey, &key); err == nil {
			return fmt.Sprintf("%s;%g", strings.Join(key.Answers, "|"), key.Scoring.PerCorrect)
		}
	}
	return ""
}

func mustKey(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err) // static key structs never fail to marshal
	}
	return data
}
