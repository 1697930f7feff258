// Package scoring grades a submitted session against the question bank's answer key.
package scoring

import (
	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/google/uuid"
)

// Answer is a student's final answer to one question.
type Answer struct {
	QuestionID          uuid.UUID
	SelectedAnswerIndex int
	TimeSpentSeconds    int
}

// Result is the graded outcome of one session.
type Result struct {
	Score            int
	Percentage       int
	TotalQuestions   int
	IsPassed         bool
	CorrectedAnswers []model.SessionQuestion
	// DuplicateAnswers lists question ids supplied more than once; the last one won.
	DuplicateAnswers []uuid.UUID
	// UnknownAnswers lists answers for questions not attached to the session.
	UnknownAnswers []uuid.UUID
}

// Calculate grades answers against questions, keeping the order of questions.
// A question whose options carry no text equal to its correct answer text is
// always scored incorrect. An empty paper scores 0% and fails.
func Calculate(questions []model.Question, answers []Answer, passingPercentage int) Result {
	lookup := make(map[uuid.UUID]Answer, len(answers))
	res := Result{TotalQuestions: len(questions)}

	for _, a := range answers {
		if _, seen := lookup[a.QuestionID]; seen {
			res.DuplicateAnswers = append(res.DuplicateAnswers, a.QuestionID)
		}
		lookup[a.QuestionID] = a
	}

	attached := make(map[uuid.UUID]struct{}, len(questions))
	res.CorrectedAnswers = make([]model.SessionQuestion, 0, len(questions))

	for i := range questions {
		q := &questions[i]
		attached[q.ID] = struct{}{}

		correctIdx := q.CorrectOptionIndex()
		rec := model.SessionQuestion{
			QuestionID:          q.ID,
			SelectedAnswerIndex: model.Unanswered,
			CorrectOptionIndex:  &correctIdx,
			Explanation:         q.Explanation,
		}

		if a, ok := lookup[q.ID]; ok {
			rec.SelectedAnswerIndex = a.SelectedAnswerIndex
			rec.TimeSpentSeconds = a.TimeSpentSeconds
			rec.IsCorrect = correctIdx >= 0 && a.SelectedAnswerIndex == correctIdx
		}

		if rec.IsCorrect {
			res.Score++
		}
		res.CorrectedAnswers = append(res.CorrectedAnswers, rec)
	}

	for _, a := range answers {
		if _, ok := attached[a.QuestionID]; !ok {
			res.UnknownAnswers = append(res.UnknownAnswers, a.QuestionID)
		}
	}

	res.Percentage = Percentage(res.Score, res.TotalQuestions)
	res.IsPassed = res.TotalQuestions > 0 && res.Percentage >= passingPercentage
	return res
}

// Percentage returns score/total*100 rounded half-up to an integer, computed
// on integers so boundary values like 12.5 round exactly. Zero total yields 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (score*200 + total) / (2 * total)
}
