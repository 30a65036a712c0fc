package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
	AttemptTimedOut   AttemptStatus = "timed_out"
)

type QuizAttempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	QuizID    uint          `json:"quiz_id" gorm:"not null;index"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;index"`
	Status    AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	// Scoring outcome. ScoreMap holds the raw question-id -> awarded-score
	// mapping so a weighted recomputation stays possible after manual grading.
	ScoreMap   datatypes.JSONMap `json:"score_map" gorm:"type:jsonb"`
	Percentage int               `json:"percentage" gorm:"default:0"`
	Passed     bool              `json:"passed" gorm:"default:false"`

	// Manual grading state: true while any answer is awaiting a human grader.
	NeedsGrading bool `json:"needs_grading" gorm:"default:false;index"`

	StartedAt      time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt    *time.Time `json:"completed_at"`
	ElapsedSeconds int        `json:"elapsed_seconds" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz    Quiz            `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
	Student User            `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Answers []AttemptAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

type AttemptAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;index:idx_attempt_question,unique"`
	QuestionID uint `json:"question_id" gorm:"not null;index:idx_attempt_question,unique"`

	// Raw structured answer payload, shape depends on question type.
	AnswerData datatypes.JSON `json:"answer_data" gorm:"type:jsonb"`

	Score        float64 `json:"score" gorm:"default:0"`
	NeedsGrading bool    `json:"needs_grading" gorm:"default:false;index"`

	// Manual grading fields
	GradedBy *string    `json:"graded_by" gorm:"size:255"`
	GradedAt *time.Time `json:"graded_at"`
	Feedback *string    `json:"feedback" gorm:"type:text"`

	TimeSpent *int `json:"time_spent"` // Seconds

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
