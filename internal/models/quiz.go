package models

import (
	"time"

	"gorm.io/gorm"
)

type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizPublished QuizStatus = "published"
	QuizArchived  QuizStatus = "archived"
)

type AccessType string

const (
	AccessPublic   AccessType = "public"
	AccessPrivate  AccessType = "private"
	AccessPassword AccessType = "password"
)

type Quiz struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Title        string     `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description  *string    `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	Status       QuizStatus `json:"status" gorm:"default:draft;index" validate:"omitempty,oneof=draft published archived"`
	TimeLimit    *int       `json:"time_limit" validate:"omitempty,min=1,max=300"` // Minutes
	PassingScore int        `json:"passing_score" gorm:"default:70" validate:"min=0,max=100"`

	// Sharing configuration
	AccessType    AccessType `json:"access_type" gorm:"default:private" validate:"omitempty,access_type"`
	AccessCode    *string    `json:"-" gorm:"size:100"`
	MaxAttempts   int        `json:"max_attempts" gorm:"default:1" validate:"min=1,max=10"`
	ExpiresAt     *time.Time `json:"expires_at"`
	RandomizeAll  bool       `json:"randomize_all" gorm:"default:true"`
	ShowFeedback  bool       `json:"show_feedback" gorm:"default:true"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Version control
	Version int `json:"version" gorm:"default:1"`

	// Relations
	Questions []Question    `json:"questions" gorm:"foreignKey:QuizID"`
	Attempts  []QuizAttempt `json:"attempts,omitempty" gorm:"foreignKey:QuizID"`
	Creator   User          `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`

	// Computed fields (not stored)
	QuestionsCount int     `json:"questions_count" gorm:"-"`
	TotalPoints    float64 `json:"total_points" gorm:"-"`
	AttemptCount   int     `json:"attempt_count" gorm:"-"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// IsOpen reports whether the quiz currently accepts new attempts.
func (q *Quiz) IsOpen(now time.Time) bool {
	if q.Status != QuizPublished {
		return false
	}
	if q.ExpiresAt != nil && now.After(*q.ExpiresAt) {
		return false
	}
	return true
}
