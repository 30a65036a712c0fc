package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAttemptCompleted EventType = "attempt.completed"
	EventQuizPublished    EventType = "quiz.published"
)

// QuizEvent is the envelope every published event travels in. Consumers
// (the email function among them) dispatch on Type.
type QuizEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewQuizEvent(eventType EventType, data interface{}) *QuizEvent {
	return &QuizEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "goforms",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// AttemptCompletedEvent notifies downstream consumers that a learner
// finished an attempt. Scores are the raw per-question map.
type AttemptCompletedEvent struct {
	AttemptID    uint             `json:"attempt_id"`
	QuizID       uint             `json:"quiz_id"`
	QuizTitle    string           `json:"quiz_title"`
	StudentID    string           `json:"student_id"`
	Scores       map[uint]float64 `json:"scores"`
	Percentage   int              `json:"percentage"`
	Passed       bool             `json:"passed"`
	NeedsGrading bool             `json:"needs_grading"`
	CompletedAt  time.Time        `json:"completed_at"`
}

// QuizPublishedEvent announces a quiz becoming available to learners.
type QuizPublishedEvent struct {
	QuizID      uint      `json:"quiz_id"`
	Title       string    `json:"title"`
	CreatedBy   string    `json:"created_by"`
	PublishedAt time.Time `json:"published_at"`
}
