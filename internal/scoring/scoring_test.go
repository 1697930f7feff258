package scoring

import (
	"testing"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func question(correct int, texts ...string) model.Question {
	q := model.Question{ID: uuid.New(), Text: "q", Category: model.CategoryAptitude, IsActive: true}
	for i, t := range texts {
		q.Options = append(q.Options, model.Option{Text: t, IsCorrect: i == correct})
	}
	if correct >= 0 {
		q.CorrectAnswerText = texts[correct]
	}
	return q
}

func paper(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = question(1, "a", "b", "c", "d")
	}
	return qs
}

func TestCalculate_ThreeOfFour(t *testing.T) {
	qs := paper(4)
	answers := []Answer{
		{QuestionID: qs[0].ID, SelectedAnswerIndex: 1, TimeSpentSeconds: 10},
		{QuestionID: qs[1].ID, SelectedAnswerIndex: 1, TimeSpentSeconds: 20},
		{QuestionID: qs[2].ID, SelectedAnswerIndex: 1, TimeSpentSeconds: 30},
		{QuestionID: qs[3].ID, SelectedAnswerIndex: 0, TimeSpentSeconds: 40},
	}

	res := Calculate(qs, answers, 70)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 75, res.Percentage)
	assert.Equal(t, 4, res.TotalQuestions)
	assert.True(t, res.IsPassed)

	res = Calculate(qs, answers, 76)
	assert.Equal(t, 75, res.Percentage)
	assert.False(t, res.IsPassed)
}

func TestCalculate_PreservesOrderAndAnnotates(t *testing.T) {
	qs := paper(3)
	qs[1].Explanation = "because b"
	answers := []Answer{
		{QuestionID: qs[2].ID, SelectedAnswerIndex: 1, TimeSpentSeconds: 5},
		{QuestionID: qs[0].ID, SelectedAnswerIndex: 3, TimeSpentSeconds: 7},
	}

	res := Calculate(qs, answers, 50)
	require.Len(t, res.CorrectedAnswers, 3)
	for i, rec := range res.CorrectedAnswers {
		assert.Equal(t, qs[i].ID, rec.QuestionID)
		require.NotNil(t, rec.CorrectOptionIndex)
		assert.Equal(t, 1, *rec.CorrectOptionIndex)
	}

	assert.Equal(t, 3, res.CorrectedAnswers[0].SelectedAnswerIndex)
	assert.Equal(t, 7, res.CorrectedAnswers[0].TimeSpentSeconds)
	assert.False(t, res.CorrectedAnswers[0].IsCorrect)

	assert.Equal(t, model.Unanswered, res.CorrectedAnswers[1].SelectedAnswerIndex)
	assert.Equal(t, 0, res.CorrectedAnswers[1].TimeSpentSeconds)
	assert.False(t, res.CorrectedAnswers[1].IsCorrect)
	assert.Equal(t, "because b", res.CorrectedAnswers[1].Explanation)

	assert.True(t, res.CorrectedAnswers[2].IsCorrect)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 33, res.Percentage)
	assert.False(t, res.IsPassed)
}

func TestCalculate_EmptyPaper(t *testing.T) {
	res := Calculate(nil, nil, 0)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0, res.Percentage)
	assert.Equal(t, 0, res.TotalQuestions)
	assert.False(t, res.IsPassed)
	assert.Empty(t, res.CorrectedAnswers)
}

func TestCalculate_NoMatchingCorrectOption(t *testing.T) {
	q := question(0, "x", "y")
	q.CorrectAnswerText = "z"

	res := Calculate([]model.Question{q}, []Answer{{QuestionID: q.ID, SelectedAnswerIndex: 0}}, 0)
	require.Len(t, res.CorrectedAnswers, 1)
	assert.Equal(t, -1, *res.CorrectedAnswers[0].CorrectOptionIndex)
	assert.False(t, res.CorrectedAnswers[0].IsCorrect)
	assert.Equal(t, 0, res.Score)

	// A -1 selection must not match a -1 correct index.
	res = Calculate([]model.Question{q}, []Answer{{QuestionID: q.ID, SelectedAnswerIndex: -1}}, 0)
	assert.Equal(t, 0, res.Score)
}

func TestCalculate_DuplicateAnswersLastWins(t *testing.T) {
	qs := paper(1)
	answers := []Answer{
		{QuestionID: qs[0].ID, SelectedAnswerIndex: 0},
		{QuestionID: qs[0].ID, SelectedAnswerIndex: 1, TimeSpentSeconds: 9},
	}

	res := Calculate(qs, answers, 100)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 9, res.CorrectedAnswers[0].TimeSpentSeconds)
	assert.Equal(t, []uuid.UUID{qs[0].ID}, res.DuplicateAnswers)
	assert.True(t, res.IsPassed)
}

func TestCalculate_UnknownAnswersIgnored(t *testing.T) {
	qs := paper(2)
	stray := uuid.New()
	res := Calculate(qs, []Answer{{QuestionID: stray, SelectedAnswerIndex: 1}}, 0)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 2, res.TotalQuestions)
	assert.Equal(t, []uuid.UUID{stray}, res.UnknownAnswers)
}

func TestCalculate_CorrectIndexMatchesBank(t *testing.T) {
	q := question(2, "alpha", "beta", "gamma", "delta")
	res := Calculate([]model.Question{q}, nil, 0)
	assert.Equal(t, 2, *res.CorrectedAnswers[0].CorrectOptionIndex)
	assert.Equal(t, q.CorrectOptionIndex(), *res.CorrectedAnswers[0].CorrectOptionIndex)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{5, 5, 100},
		{3, 4, 75},
		{1, 8, 13},
		{1, 3, 33},
		{2, 3, 67},
		{7, 40, 18},
		{1, 200, 1},
		{1, 201, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Percentage(tc.score, tc.total), "%d/%d", tc.score, tc.total)
	}
}
