package models

// Structured answer payloads submitted by learners, one shape per question
// type. These are what gets stored in AttemptAnswer.AnswerData.

type MultipleChoiceAnswer struct {
	SelectedOptionID uint `json:"selected_option_id"`
	TimeSpent        int  `json:"time_spent"`
}

type TrueFalseAnswer struct {
	Answer    bool `json:"answer"`
	TimeSpent int  `json:"time_spent"`
}

type FillBlankAnswer struct {
	Text      string `json:"text"`
	TimeSpent int    `json:"time_spent"`
}

type MatchingAnswer struct {
	// Left pair ID -> right pair ID the learner matched it with. A pair is
	// correct when its left side was matched back to its own right side.
	Matches   map[uint]uint `json:"matches"`
	TimeSpent int           `json:"time_spent"`
}

type OrderingAnswer struct {
	// Item IDs in the learner's final arrangement, first to last.
	Order     []uint `json:"order"`
	TimeSpent int    `json:"time_spent"`
}

type CompleteStatementAnswer struct {
	// One entry per blank, in statement order.
	Blanks    []string `json:"blanks"`
	TimeSpent int      `json:"time_spent"`
}

// FreeTextAnswer covers the manually graded types: essay, short_answer,
// picture_based and definition.
type FreeTextAnswer struct {
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	TimeSpent int    `json:"time_spent"`
}
