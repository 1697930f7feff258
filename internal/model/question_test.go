package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleQuestion() *Question {
	return &Question{
		Text: "Pick b",
		Options: []Option{
			{Text: "a"}, {Text: "b", IsCorrect: true}, {Text: "c"},
		},
		CorrectAnswerText: "b",
		Category:          CategoryLogical,
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(q *Question)
		want   error
	}{
		{name: "valid", modify: func(*Question) {}},
		{name: "empty text", modify: func(q *Question) { q.Text = "" }, want: ErrEmptyQuestionText},
		{name: "unknown category", modify: func(q *Question) { q.Category = "history" }, want: ErrUnknownCategory},
		{name: "one option", modify: func(q *Question) { q.Options = q.Options[1:2] }, want: ErrTooFewOptions},
		{name: "no correct option", modify: func(q *Question) { q.Options[1].IsCorrect = false }, want: ErrCorrectOptionCount},
		{name: "two correct options", modify: func(q *Question) { q.Options[0].IsCorrect = true }, want: ErrCorrectOptionCount},
		{name: "text mismatch", modify: func(q *Question) { q.CorrectAnswerText = "c" }, want: ErrCorrectTextMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := sampleQuestion()
			tc.modify(q)
			err := q.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestQuestionCorrectOptionIndex(t *testing.T) {
	q := sampleQuestion()
	assert.Equal(t, 1, q.CorrectOptionIndex())

	q.CorrectAnswerText = "z"
	assert.Equal(t, -1, q.CorrectOptionIndex())
}

func TestQuestionForStudentHidesAnswer(t *testing.T) {
	q := sampleQuestion()
	q.Explanation = "b is b"

	s := q.ForStudent()
	assert.Equal(t, []string{"a", "b", "c"}, s.Options)
	assert.Equal(t, CategoryLogical, s.Category)
}

func TestValidateSchedule(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	open := &TestDefinition{}
	assert.NoError(t, open.ValidateSchedule())

	ok := &TestDefinition{HasExpiry: true, StartTime: &start, EndTime: &end}
	assert.NoError(t, ok.ValidateSchedule())

	missing := &TestDefinition{HasExpiry: true, StartTime: &start}
	assert.ErrorIs(t, missing.ValidateSchedule(), ErrScheduleIncomplete)

	reversed := &TestDefinition{HasExpiry: true, StartTime: &end, EndTime: &start}
	assert.ErrorIs(t, reversed.ValidateSchedule(), ErrScheduleOrder)

	same := &TestDefinition{HasExpiry: true, StartTime: &start, EndTime: &start}
	assert.ErrorIs(t, same.ValidateSchedule(), ErrScheduleOrder)
}

func TestSessionHelpers(t *testing.T) {
	s := &TestSession{Status: SessionStatusPending}
	assert.True(t, s.IsOpen())
	s.Status = SessionStatusActive
	assert.True(t, s.IsOpen())
	s.Status = SessionStatusCompleted
	assert.False(t, s.IsOpen())
}
