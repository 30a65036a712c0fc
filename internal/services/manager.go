package services

import (
	"log/slog"

	"github.com/setoos/goforms/internal/cache"
	"github.com/setoos/goforms/internal/events"
	"github.com/setoos/goforms/internal/repositories"
	"github.com/setoos/goforms/internal/validator"
)

type serviceManager struct {
	quiz         QuizService
	attempt      AttemptService
	grading      GradingService
	importExport ImportExportService
}

// NewServiceManager wires the service set against shared infrastructure.
func NewServiceManager(
	repo repositories.Repository,
	quizCache cache.QuizCache,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *slog.Logger,
) ServiceManager {
	quiz := NewQuizService(repo, quizCache, publisher, v, logger)
	return &serviceManager{
		quiz:         quiz,
		attempt:      NewAttemptService(repo, publisher, logger),
		grading:      NewGradingService(repo, logger),
		importExport: NewImportExportService(repo, logger),
	}
}

func (m *serviceManager) Quiz() QuizService                 { return m.quiz }
func (m *serviceManager) Attempt() AttemptService           { return m.attempt }
func (m *serviceManager) Grading() GradingService           { return m.grading }
func (m *serviceManager) ImportExport() ImportExportService { return m.importExport }
