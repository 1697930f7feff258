package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	svc       *TestSessionService
	store     *fakeSessionStore
	bank      *fakeBank
	published *fakePublisher
	def       *model.TestDefinition
	college   *model.College
	student   *model.Student
	now       time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	college := &model.College{ID: uuid.New(), Name: "North College", RegisteredTestIDs: []string{"T-100"}}
	student := &model.Student{ID: uuid.New(), CollegeID: college.ID, Name: "Asha"}
	def := &model.TestDefinition{
		ID:                  uuid.New(),
		TestID:              "T-100",
		CollegeID:           college.ID,
		BatchName:           "2026-A",
		DurationMinutes:     30,
		QuestionsPerTest:    5,
		PassingScorePercent: 60,
	}

	f := &sessionFixture{
		store:     newFakeSessionStore(),
		bank:      &fakeBank{questions: bankOf(10)},
		published: &fakePublisher{},
		def:       def,
		college:   college,
		student:   student,
		now:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewTestSessionService(
		&fakeColleges{byID: map[uuid.UUID]*model.College{college.ID: college}},
		&fakeTests{defs: []*model.TestDefinition{def}},
		&fakeStudents{byID: map[uuid.UUID]*model.Student{student.ID: student}},
		f.store,
		f.bank,
		NewSeededSampler(1, 2),
		f.published,
		time.UTC,
		zerolog.Nop(),
	)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *sessionFixture) admission() AdmissionRequest {
	return AdmissionRequest{
		StudentID: f.student.ID,
		TestID:    f.def.TestID,
		CollegeID: f.college.ID,
		BatchName: f.def.BatchName,
		IPAddress: "10.0.0.7",
		UserAgent: "test-agent",
	}
}

func (f *sessionFixture) request(t *testing.T) *model.TestSession {
	t.Helper()
	sess, err := f.svc.RequestSession(context.Background(), f.admission())
	require.NoError(t, err)
	return sess
}

func (f *sessionFixture) start(t *testing.T, sess *model.TestSession) *model.StartSessionResponse {
	t.Helper()
	res, err := f.svc.StartSession(context.Background(), sess.ID, f.student.ID, f.def.TestID, f.college.ID)
	require.NoError(t, err)
	return res
}

// correctAnswers answers the first n slots correctly and the rest wrongly.
func correctAnswers(sess *model.TestSession, n int) []scoring.Answer {
	answers := make([]scoring.Answer, len(sess.Questions))
	for i, q := range sess.Questions {
		selected := 0
		if i < n {
			selected = 1
		}
		answers[i] = scoring.Answer{QuestionID: q.QuestionID, SelectedAnswerIndex: selected, TimeSpentSeconds: 15}
	}
	return answers
}

// ─── Admission ──────────────────────────────────────────────────────

func TestRequestSession_CreatesPendingSession(t *testing.T) {
	f := newSessionFixture(t)

	sess := f.request(t)

	assert.NotEqual(t, uuid.Nil, sess.ID)
	assert.Equal(t, model.SessionStatusPending, sess.Status)
	assert.Equal(t, f.def.ID, sess.TestDefinitionID)
	assert.Equal(t, 30, sess.Duration)
	assert.Equal(t, 60, sess.PassingPercentage)
	assert.Equal(t, "10.0.0.7", sess.IPAddress)
	assert.Nil(t, sess.StartTime)
	require.Len(t, sess.Questions, 5)

	seen := map[uuid.UUID]bool{}
	for _, q := range sess.Questions {
		assert.Equal(t, model.Unanswered, q.SelectedAnswerIndex)
		assert.False(t, seen[q.QuestionID], "question sampled twice")
		seen[q.QuestionID] = true
	}
}

func TestRequestSession_ReturnsOpenSession(t *testing.T) {
	f := newSessionFixture(t)

	first := f.request(t)
	second := f.request(t)
	assert.Equal(t, first.ID, second.ID)

	f.start(t, first)
	third := f.request(t)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, model.SessionStatusActive, third.Status)
	assert.Equal(t, 1, f.store.creates)
}

func TestRequestSession_ConcurrentRequestsShareOneSession(t *testing.T) {
	f := newSessionFixture(t)

	const n = 25
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := f.svc.RequestSession(context.Background(), f.admission())
			errs[i] = err
			if err == nil {
				ids[i] = sess.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, f.store.creates)
}

func TestRequestSession_Denials(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *sessionFixture, req *AdmissionRequest)
		want   error
	}{
		{
			name:   "missing batch",
			modify: func(_ *sessionFixture, req *AdmissionRequest) { req.BatchName = "" },
			want:   ErrValidation,
		},
		{
			name:   "unknown college",
			modify: func(_ *sessionFixture, req *AdmissionRequest) { req.CollegeID = uuid.New() },
			want:   ErrInvalidLink,
		},
		{
			name: "test not registered with college",
			modify: func(f *sessionFixture, req *AdmissionRequest) {
				f.college.RegisteredTestIDs = nil
			},
			want: ErrInvalidLink,
		},
		{
			name:   "no definition for batch",
			modify: func(_ *sessionFixture, req *AdmissionRequest) { req.BatchName = "2026-B" },
			want:   ErrInvalidTest,
		},
		{
			name:   "unknown student",
			modify: func(_ *sessionFixture, req *AdmissionRequest) { req.StudentID = uuid.New() },
			want:   ErrNotRegistered,
		},
		{
			name: "student of another college",
			modify: func(f *sessionFixture, _ *AdmissionRequest) {
				f.student.CollegeID = uuid.New()
			},
			want: ErrNotRegistered,
		},
		{
			name: "bank too small",
			modify: func(f *sessionFixture, _ *AdmissionRequest) {
				f.bank.questions = bankOf(4)
			},
			want: ErrNoQuestionsAvailable,
		},
		{
			name: "inactive questions are not sampled",
			modify: func(f *sessionFixture, _ *AdmissionRequest) {
				for i := range f.bank.questions[:6] {
					f.bank.questions[i].IsActive = false
				}
			},
			want: ErrNoQuestionsAvailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newSessionFixture(t)
			req := f.admission()
			tc.modify(f, &req)

			_, err := f.svc.RequestSession(context.Background(), req)
			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, f.store.creates)
		})
	}
}

func TestRequestSession_Window(t *testing.T) {
	at := func(h, m int) *time.Time {
		v := time.Date(2026, 3, 1, h, m, 0, 0, time.UTC)
		return &v
	}

	tests := []struct {
		name       string
		start, end *time.Time
		want       error
		detail     string
	}{
		{name: "inside window", start: at(9, 0), end: at(12, 0)},
		{name: "exactly enough time", start: at(9, 0), end: at(10, 30)},
		{name: "not yet open", start: at(11, 0), end: at(13, 0), want: ErrNotYetOpen, detail: "01 Mar 2026 11:00 UTC"},
		{name: "closed", start: at(8, 0), end: at(9, 30), want: ErrWindowClosed, detail: "01 Mar 2026 09:30 UTC"},
		{name: "not enough time left", start: at(9, 0), end: at(10, 20), want: ErrInsufficientTime, detail: "20 minutes from now"},
		{name: "missing end", start: at(9, 0), want: ErrMisconfiguredSchedule},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newSessionFixture(t)
			f.def.HasExpiry = true
			f.def.StartTime, f.def.EndTime = tc.start, tc.end

			sess, err := f.svc.RequestSession(context.Background(), f.admission())
			if tc.want == nil {
				require.NoError(t, err)
				assert.Equal(t, model.SessionStatusPending, sess.Status)
				return
			}
			require.ErrorIs(t, err, tc.want)
			if tc.detail != "" {
				assert.Contains(t, err.Error(), tc.detail)
			}
		})
	}
}

func TestRequestSession_Retake(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	first := f.request(t)
	_, err := f.svc.SubmitSession(ctx, first.ID, f.student.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.RequestSession(ctx, f.admission())
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	f.def.AllowRetake = true
	second, err := f.svc.RequestSession(ctx, f.admission())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, model.SessionStatusPending, second.Status)

	// The retake is the open session now.
	again, err := f.svc.RequestSession(ctx, f.admission())
	require.NoError(t, err)
	assert.Equal(t, second.ID, again.ID)

	old, err := f.store.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, old.Status)
}

func TestRequestSession_ZeroQuestionTest(t *testing.T) {
	f := newSessionFixture(t)
	f.def.QuestionsPerTest = 0

	sess := f.request(t)
	assert.Empty(t, sess.Questions)

	res, err := f.svc.SubmitSession(context.Background(), sess.ID, f.student.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Percentage)
	assert.Equal(t, 0, res.TotalQuestions)
	assert.False(t, res.IsPassed)
}

// ─── Start ──────────────────────────────────────────────────────────

func TestStartSession(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.request(t)

	res := f.start(t, sess)

	assert.Equal(t, model.SessionStatusActive, res.Session.Status)
	require.NotNil(t, res.Session.StartTime)
	assert.True(t, res.Session.StartTime.Equal(f.now))
	require.Len(t, res.Questions, 5)
	for i, q := range res.Questions {
		assert.Equal(t, sess.Questions[i].QuestionID, q.ID, "paper keeps slot order")
		assert.Len(t, q.Options, 4)
	}

	require.Len(t, f.published.events, 1)
	assert.Equal(t, model.StudentTestInProgress, f.published.events[0].Status)
	assert.Nil(t, f.published.events[0].Score)
	assert.True(t, f.published.events[0].OccurredAt.Equal(f.now))
}

func TestStartSession_Rejections(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess := f.request(t)

	_, err := f.svc.StartSession(ctx, uuid.New(), f.student.ID, f.def.TestID, f.college.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.StartSession(ctx, sess.ID, uuid.New(), f.def.TestID, f.college.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.StartSession(ctx, sess.ID, f.student.ID, "T-999", f.college.ID)
	assert.ErrorIs(t, err, ErrInvalidLink)

	f.start(t, sess)
	_, err = f.svc.StartSession(ctx, sess.ID, f.student.ID, f.def.TestID, f.college.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.SubmitSession(ctx, sess.ID, f.student.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.StartSession(ctx, sess.ID, f.student.ID, f.def.TestID, f.college.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// ─── Record answer ──────────────────────────────────────────────────

func TestRecordAnswer(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess := f.request(t)
	qid := sess.Questions[2].QuestionID

	err := f.svc.RecordAnswer(ctx, sess.ID, f.student.ID, qid, 1, 20)
	assert.ErrorIs(t, err, ErrSessionNotActive, "pending sessions take no answers")

	f.start(t, sess)
	require.NoError(t, f.svc.RecordAnswer(ctx, sess.ID, f.student.ID, qid, 1, 20))
	require.NoError(t, f.svc.RecordAnswer(ctx, sess.ID, f.student.ID, qid, 3, 35))

	stored, err := f.store.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, stored.Questions, 5)
	assert.Equal(t, 3, stored.Questions[2].SelectedAnswerIndex)
	assert.Equal(t, 35, stored.Questions[2].TimeSpentSeconds)
	assert.Equal(t, model.Unanswered, stored.Questions[0].SelectedAnswerIndex)
}

func TestRecordAnswer_QuestionOffPaper(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess := f.request(t)
	f.start(t, sess)

	err := f.svc.RecordAnswer(ctx, sess.ID, f.student.ID, uuid.New(), 0, 5)
	assert.ErrorIs(t, err, ErrValidation)

	onPaper := map[uuid.UUID]bool{}
	for _, q := range sess.Questions {
		onPaper[q.QuestionID] = true
	}
	var extra uuid.UUID
	for _, q := range f.bank.questions {
		if !onPaper[q.ID] {
			extra = q.ID
			break
		}
	}
	require.NoError(t, f.svc.RecordAnswer(ctx, sess.ID, f.student.ID, extra, 2, 5))

	stored, err := f.store.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, stored.Questions, 6)
	assert.Equal(t, extra, stored.Questions[5].QuestionID)
	assert.Equal(t, 2, stored.Questions[5].SelectedAnswerIndex)
}

func TestRecordAnswer_InvalidInput(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.request(t)
	f.start(t, sess)

	err := f.svc.RecordAnswer(context.Background(), sess.ID, f.student.ID, sess.Questions[0].QuestionID, -2, 0)
	assert.ErrorIs(t, err, ErrValidation)

	err = f.svc.RecordAnswer(context.Background(), sess.ID, uuid.New(), sess.Questions[0].QuestionID, 1, 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// ─── Submit ─────────────────────────────────────────────────────────

func TestSubmitSession_Scores(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess := f.request(t)
	f.start(t, sess)
	f.now = f.now.Add(12 * time.Minute)

	res, err := f.svc.SubmitSession(ctx, sess.ID, f.student.ID, correctAnswers(sess, 3))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 60, res.Percentage)
	assert.Equal(t, 5, res.TotalQuestions)
	assert.True(t, res.IsPassed)
	require.Len(t, res.CorrectedAnswers, 5)
	for i, ca := range res.CorrectedAnswers {
		assert.Equal(t, sess.Questions[i].QuestionID, ca.QuestionID)
		require.NotNil(t, ca.CorrectOptionIndex)
		assert.Equal(t, 1, *ca.CorrectOptionIndex)
		assert.Equal(t, i < 3, ca.IsCorrect)
	}

	stored, err := f.store.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, stored.Status)
	require.NotNil(t, stored.EndTime)
	assert.True(t, stored.EndTime.Equal(f.now))
	assert.Equal(t, 3, stored.Score)

	last := f.published.events[len(f.published.events)-1]
	assert.Equal(t, model.StudentTestCompleted, last.Status)
	assert.True(t, last.OccurredAt.Equal(f.now))
	require.NotNil(t, last.Percentage)
	assert.Equal(t, 60, *last.Percentage)
}

// offPaperQuestion returns a bank question that is not on sess's paper.
func (f *sessionFixture) offPaperQuestion(t *testing.T, sess *model.TestSession) uuid.UUID {
	t.Helper()
	for _, q := range f.bank.questions {
		if sess.QuestionIndex(q.ID) < 0 {
			return q.ID
		}
	}
	t.Fatal("bank has no question outside the paper")
	return uuid.Nil
}

func TestSubmitSession_SingleConnection(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess := f.request(t)
	f.start(t, sess)

	conns := newFakeConns(1)
	f.store.conns = conns
	f.bank.conns = conns

	extra := f.offPaperQuestion(t, sess)
	require.NoError(t, f.svc.RecordAnswer(ctx, sess.ID, f.student.ID, extra, 1, 9))

	res, err := f.svc.SubmitSession(ctx, sess.ID, f.student.ID, correctAnswers(sess, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 6, res.TotalQuestions)
}

func TestSubmitSession_PaperGrowsBeforeLock(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess := f.request(t)
	f.start(t, sess)

	extra := f.offPaperQuestion(t, sess)
	grown := false
	f.bank.afterGet = func() {
		if grown {
			return
		}
		grown = true
		_, err := f.store.Mutate(ctx, sess.ID, func(ts *model.TestSession) error {
			ts.Questions = append(ts.Questions, model.SessionQuestion{QuestionID: extra, SelectedAnswerIndex: 1})
			return nil
		})
		require.NoError(t, err)
	}

	res, err := f.svc.SubmitSession(ctx, sess.ID, f.student.ID, correctAnswers(sess, 0))
	require.NoError(t, err)
	assert.Equal(t, 6, res.TotalQuestions)
	assert.Equal(t, 1, res.Score)
	require.Len(t, res.CorrectedAnswers, 6)
	assert.True(t, res.CorrectedAnswers[5].IsCorrect)
}

func TestSubmitSession_Twice(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess := f.request(t)
	f.start(t, sess)

	_, err := f.svc.SubmitSession(ctx, sess.ID, f.student.ID, correctAnswers(sess, 5))
	require.NoError(t, err)

	_, err = f.svc.SubmitSession(ctx, sess.ID, f.student.ID, correctAnswers(sess, 0))
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	stored, err := f.store.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Score, "second submission must not rescore")

	err = f.svc.RecordAnswer(ctx, sess.ID, f.student.ID, sess.Questions[0].QuestionID, 0, 1)
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestSubmitSession_ConcurrentSubmitsCompleteOnce(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.request(t)
	f.start(t, sess)

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SubmitSession(context.Background(), sess.ID, f.student.ID, correctAnswers(sess, 4))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadySubmitted):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, rejected)
}

func TestSubmitSession_UsesAutosavedAnswers(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess := f.request(t)
	f.start(t, sess)

	for _, q := range sess.Questions[:2] {
		require.NoError(t, f.svc.RecordAnswer(ctx, sess.ID, f.student.ID, q.QuestionID, 1, 10))
	}
	// Submitted answers override the autosaved one for the same question.
	override := []scoring.Answer{{QuestionID: sess.Questions[1].QuestionID, SelectedAnswerIndex: 0}}

	res, err := f.svc.SubmitSession(ctx, sess.ID, f.student.ID, override)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 20, res.Percentage)
	assert.False(t, res.IsPassed)
	assert.Equal(t, 0, res.CorrectedAnswers[1].SelectedAnswerIndex)
}

func TestSubmitSession_FromPending(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.request(t)

	res, err := f.svc.SubmitSession(context.Background(), sess.ID, f.student.ID, correctAnswers(sess, 5))
	require.NoError(t, err)
	assert.Equal(t, 100, res.Percentage)

	stored, err := f.store.GetByID(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.StartTime)
	assert.NotNil(t, stored.EndTime)
}

func TestSubmitSession_DeletedQuestionScoresIncorrect(t *testing.T) {
	f := newSessionFixture(t)
	sess := f.request(t)

	gone := sess.Questions[0].QuestionID
	kept := f.bank.questions[:0]
	for _, q := range f.bank.questions {
		if q.ID != gone {
			kept = append(kept, q)
		}
	}
	f.bank.questions = kept

	res, err := f.svc.SubmitSession(context.Background(), sess.ID, f.student.ID, correctAnswers(sess, 5))
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalQuestions)
	assert.Equal(t, 4, res.Score)
	assert.False(t, res.CorrectedAnswers[0].IsCorrect)
}

// ─── Read-back ──────────────────────────────────────────────────────

func TestGetSession(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	sess := f.request(t)

	view, err := f.svc.GetSession(ctx, sess.ID, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, view.Paper, 5)
	assert.Nil(t, view.RemainingSeconds)

	f.start(t, sess)
	f.now = f.now.Add(10 * time.Minute)
	view, err = f.svc.GetSession(ctx, sess.ID, f.student.ID)
	require.NoError(t, err)
	require.NotNil(t, view.RemainingSeconds)
	assert.Equal(t, 20*60, *view.RemainingSeconds)

	f.now = f.now.Add(time.Hour)
	view, err = f.svc.GetSession(ctx, sess.ID, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, *view.RemainingSeconds)

	_, err = f.svc.SubmitSession(ctx, sess.ID, f.student.ID, nil)
	require.NoError(t, err)
	view, err = f.svc.GetSession(ctx, sess.ID, f.student.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Paper)
	assert.Len(t, view.Session.Questions, 5)

	_, err = f.svc.GetSession(ctx, sess.ID, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
