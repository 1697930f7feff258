package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// QuestionCategory tags a bank question by the section of the entrance exam it belongs to.
type QuestionCategory string

const (
	CategoryAptitude     QuestionCategory = "aptitude"
	CategoryLogical      QuestionCategory = "logical"
	CategoryQuantitative QuestionCategory = "quantitative"
	CategoryVerbal       QuestionCategory = "verbal"
	CategoryTechnical    QuestionCategory = "technical"
)

// Valid reports whether c is one of the known categories.
func (c QuestionCategory) Valid() bool {
	switch c {
	case CategoryAptitude, CategoryLogical, CategoryQuantitative, CategoryVerbal, CategoryTechnical:
		return true
	}
	return false
}

var (
	ErrTooFewOptions       = errors.New("question needs at least two options")
	ErrCorrectOptionCount  = errors.New("question must have exactly one correct option")
	ErrCorrectTextMismatch = errors.New("correct option text does not match correct answer text")
	ErrUnknownCategory     = errors.New("unknown question category")
	ErrEmptyQuestionText   = errors.New("question text is required")
)

// Option is one choice of a multiple-choice question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is a multiple-choice bank question with exactly one correct option.
type Question struct {
	ID                uuid.UUID        `json:"id"`
	Text              string           `json:"text"`
	Options           []Option         `json:"options"`
	CorrectAnswerText string           `json:"correct_answer_text"`
	Category          QuestionCategory `json:"category"`
	Explanation       string           `json:"explanation,omitempty"`
	IsActive          bool             `json:"is_active"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// CorrectOptionIndex returns the index of the option whose text equals
// CorrectAnswerText, or -1 when no option matches.
func (q *Question) CorrectOptionIndex() int {
	for i, opt := range q.Options {
		if opt.Text == q.CorrectAnswerText {
			return i
		}
	}
	return -1
}

// Validate enforces the single-correct-option invariant.
func (q *Question) Validate() error {
	if q.Text == "" {
		return ErrEmptyQuestionText
	}
	if !q.Category.Valid() {
		return ErrUnknownCategory
	}
	if len(q.Options) < 2 {
		return ErrTooFewOptions
	}

	correct := -1
	for i, opt := range q.Options {
		if !opt.IsCorrect {
			continue
		}
		if correct >= 0 {
			return ErrCorrectOptionCount
		}
		correct = i
	}
	if correct < 0 {
		return ErrCorrectOptionCount
	}
	if q.Options[correct].Text != q.CorrectAnswerText {
		return ErrCorrectTextMismatch
	}
	return nil
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	opts := make([]string, len(q.Options))
	for i, o := range q.Options {
		opts[i] = o.Text
	}
	return QuestionForStudent{
		ID:       q.ID,
		Text:     q.Text,
		Options:  opts,
		Category: q.Category,
	}
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID       uuid.UUID        `json:"id"`
	Text     string           `json:"text"`
	Options  []string         `json:"options"`
	Category QuestionCategory `json:"category"`
}

// OptionRequest is one option inside a question payload.
type OptionRequest struct {
	Text      string `json:"text" binding:"required,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

// CreateQuestionRequest is the payload for adding a bank question.
type CreateQuestionRequest struct {
	Text              string          `json:"text" binding:"required,min=1,max=4000"`
	Options           []OptionRequest `json:"options" binding:"required,min=2,max=10,dive"`
	CorrectAnswerText string          `json:"correct_answer_text" binding:"required,max=1000"`
	Category          string          `json:"category" binding:"required,question_category"`
	Explanation       string          `json:"explanation" binding:"omitempty,max=4000"`
}

// ToQuestion builds an active Question from the request.
func (r *CreateQuestionRequest) ToQuestion() *Question {
	opts := make([]Option, len(r.Options))
	for i, o := range r.Options {
		opts[i] = Option{Text: o.Text, IsCorrect: o.IsCorrect}
	}
	return &Question{
		Text:              r.Text,
		Options:           opts,
		CorrectAnswerText: r.CorrectAnswerText,
		Category:          QuestionCategory(r.Category),
		Explanation:       r.Explanation,
		IsActive:          true,
	}
}

// UpdateQuestionRequest replaces a question's content. IsActive is optional.
type UpdateQuestionRequest struct {
	CreateQuestionRequest
	IsActive *bool `json:"is_active"`
}

// BulkCreateQuestionsRequest is the bulk-upload payload.
type BulkCreateQuestionsRequest struct {
	Questions []CreateQuestionRequest `json:"questions" binding:"required,min=1,max=500,dive"`
}
