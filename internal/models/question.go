package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice    QuestionType = "multiple_choice"
	TrueFalse         QuestionType = "true_false"
	FillBlank         QuestionType = "fill_blank"
	ShortAnswer       QuestionType = "short_answer"
	Matching          QuestionType = "matching"
	Ordering          QuestionType = "ordering"
	Essay             QuestionType = "essay"
	PictureBased      QuestionType = "picture_based"
	CompleteStatement QuestionType = "complete_statement"
	Definition        QuestionType = "definition"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

type CognitiveLevel string

const (
	CognitiveRecall      CognitiveLevel = "recall"
	CognitiveUnderstand  CognitiveLevel = "understand"
	CognitiveApplication CognitiveLevel = "application"
	CognitiveAnalysis    CognitiveLevel = "analysis"
)

type Question struct {
	ID     uint         `json:"id" gorm:"primaryKey"`
	QuizID uint         `json:"quiz_id" gorm:"not null;index"`
	Type   QuestionType `json:"type" gorm:"not null;size:30;index" validate:"required,question_type"`
	Text   string       `json:"text" gorm:"not null;type:text" validate:"required,min=1"`

	// Scoring metadata
	Points     float64          `json:"points" gorm:"default:10" validate:"min=0"`
	Cognitive  CognitiveLevel   `json:"cognitive_level" gorm:"default:recall;size:20"`
	Difficulty DifficultyLevel  `json:"difficulty" gorm:"default:medium;size:10" validate:"omitempty,difficulty_level"`
	TimeLimit  *int             `json:"time_limit"` // Seconds, per-question
	MediaURL   *string          `json:"media_url" gorm:"size:500"`

	// Presentation order within the quiz (0-based); rewritten after a shuffle
	// so it always matches array position on the learner path.
	Order int `json:"order" gorm:"column:display_order;default:0"`

	// Answer key for non-option types (correct_answer, alternative_answers,
	// per-blank answers, per_correct scoring).
	AnswerKey datatypes.JSON `json:"answer_key,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Type-specific payloads
	Options       []Option       `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
	MatchingPairs []MatchingPair `json:"matching_pairs,omitempty" gorm:"foreignKey:QuestionID"`
	OrderingItems []OrderingItem `json:"ordering_items,omitempty" gorm:"foreignKey:QuestionID"`
	EssayRubrics  []EssayRubric  `json:"essay_rubrics,omitempty" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

type Option struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	QuestionID uint    `json:"question_id" gorm:"not null;index"`
	Text       string  `json:"text" gorm:"not null;type:text" validate:"required"`
	Score      float64 `json:"score" gorm:"default:0"`
	IsCorrect  bool    `json:"is_correct" gorm:"default:false"`
	Feedback   *string `json:"feedback" gorm:"type:text"`
	Order      int     `json:"order" gorm:"column:display_order;default:0"`
}

func (Option) TableName() string {
	return "options"
}

type MatchingPair struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	LeftText   string `json:"left_text" gorm:"not null;type:text" validate:"required"`
	RightText  string `json:"right_text" gorm:"not null;type:text" validate:"required"`
	Order      int    `json:"order" gorm:"column:display_order;default:0"`
}

func (MatchingPair) TableName() string {
	return "matching_pairs"
}

type OrderingItem struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	QuestionID      uint   `json:"question_id" gorm:"not null;index"`
	Text            string `json:"text" gorm:"not null;type:text" validate:"required"`
	CorrectPosition int    `json:"correct_position" gorm:"not null"`
	Order           int    `json:"order" gorm:"column:display_order;default:0"`
}

func (OrderingItem) TableName() string {
	return "ordering_items"
}

type EssayRubric struct {
	ID         uint    `json:"id" gorm:"primaryKey"`
	QuestionID uint    `json:"question_id" gorm:"not null;index"`
	Criterion  string  `json:"criterion" gorm:"not null;type:text" validate:"required"`
	MaxPoints  float64 `json:"max_points" gorm:"default:0" validate:"min=0"`
	Order      int     `json:"order" gorm:"column:display_order;default:0"`
}

func (EssayRubric) TableName() string {
	return "essay_rubrics"
}

// Decoded shapes of Question.AnswerKey, one per key-carrying type.

type TrueFalseKey struct {
	CorrectAnswer bool `json:"correct_answer"`
}

type FillBlankKey struct {
	CorrectAnswer      string   `json:"correct_answer"`
	AlternativeAnswers []string `json:"alternative_answers,omitempty"`
}

type CompleteStatementKey struct {
	Answers []string         `json:"answers"` // Ordered, one per blank
	Scoring StatementScoring `json:"scoring"`
}

type StatementScoring struct {
	PerCorrect float64 `json:"per_correct"`
}

// NeedsManualGrading reports whether a question type defers scoring to a
// human grader.
func (t QuestionType) NeedsManualGrading() bool {
	switch t {
	case Essay, ShortAnswer, PictureBased, Definition:
		return true
	}
	return false
}
