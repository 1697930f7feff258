package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/repository"
	"github.com/eduvista/entrance-backend/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// windowTimeLayout renders window bounds in denial reasons.
const windowTimeLayout = "02 Jan 2006 15:04 MST"

// maxAdmissionAttempts bounds the create-or-fetch loop when concurrent
// requests race for the same session slot.
const maxAdmissionAttempts = 3

// maxSubmitAttempts bounds how often a submission reloads its answer key
// when the paper grows between the load and the lock.
const maxSubmitAttempts = 3

// Internal retry signals of the locked section; never returned to callers.
var (
	errStaleAnswerKey = errors.New("paper changed after the answer key was loaded")
	errOffPaper       = errors.New("question is not on the paper")
)

// CollegeLookup resolves colleges for admission.
type CollegeLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.College, error)
}

// TestDefinitionLookup resolves the definition behind a (test, college, batch).
type TestDefinitionLookup interface {
	Find(ctx context.Context, testID string, collegeID uuid.UUID, batchName string) (*model.TestDefinition, error)
}

// StudentLookup resolves students for admission.
type StudentLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
}

// SessionStore persists test sessions. CreateOpen must return
// repository.ErrDuplicate when an open session already holds the
// (student, college, test) slot, and Mutate must run fn under an exclusive
// lock on the session. fn holds a database connection while it runs, so it
// must not call back into storage.
type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error)
	LatestByTriple(ctx context.Context, studentID, collegeID uuid.UUID, testID string) (*model.TestSession, error)
	CreateOpen(ctx context.Context, s *model.TestSession) error
	Mutate(ctx context.Context, id uuid.UUID, fn func(*model.TestSession) error) (*model.TestSession, error)
}

// QuestionBank supplies sampling pools and answer keys.
type QuestionBank interface {
	ActivePool(ctx context.Context) ([]model.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// AdmissionRequest asks for a session on behalf of an authenticated student.
type AdmissionRequest struct {
	StudentID uuid.UUID
	TestID    string
	CollegeID uuid.UUID
	BatchName string
	IPAddress string
	UserAgent string
}

// SessionView is a session as shown to its student. Paper is only set while
// the session is open; once completed, Session.Questions holds the review.
type SessionView struct {
	Session          *model.TestSession         `json:"session"`
	Paper            []model.QuestionForStudent `json:"questions,omitempty"`
	RemainingSeconds *int                       `json:"remaining_seconds,omitempty"`
}

// TestSessionService runs admission control and the session state machine.
type TestSessionService struct {
	colleges CollegeLookup
	tests    TestDefinitionLookup
	students StudentLookup
	sessions SessionStore
	bank     QuestionBank
	sampler  QuestionSampler
	results  ResultPublisher
	loc      *time.Location
	log      zerolog.Logger
	now      func() time.Time
}

// NewTestSessionService creates a new TestSessionService. results may be nil.
func NewTestSessionService(
	colleges CollegeLookup,
	tests TestDefinitionLookup,
	students StudentLookup,
	sessions SessionStore,
	bank QuestionBank,
	sampler QuestionSampler,
	results ResultPublisher,
	loc *time.Location,
	log zerolog.Logger,
) *TestSessionService {
	if loc == nil {
		loc = time.UTC
	}
	return &TestSessionService{
		colleges: colleges,
		tests:    tests,
		students: students,
		sessions: sessions,
		bank:     bank,
		sampler:  sampler,
		results:  results,
		loc:      loc,
		log:      log.With().Str("component", "test_session_service").Logger(),
		now:      time.Now,
	}
}

// RequestSession admits a student to a test. An open session for the same
// student, college and test is returned as is; otherwise a pending session
// with a freshly sampled paper is created.
func (s *TestSessionService) RequestSession(ctx context.Context, req AdmissionRequest) (*model.TestSession, error) {
	if req.StudentID == uuid.Nil || req.CollegeID == uuid.Nil || req.TestID == "" || req.BatchName == "" {
		return nil, fmt.Errorf("%w: student, college, test and batch are required", ErrValidation)
	}

	college, err := s.colleges.GetByID(ctx, req.CollegeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidLink
		}
		return nil, persistence("get college", err)
	}
	if !college.HasTest(req.TestID) {
		return nil, ErrInvalidLink
	}

	def, err := s.tests.Find(ctx, req.TestID, req.CollegeID, req.BatchName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidTest
		}
		return nil, persistence("find test definition", err)
	}

	if err := s.checkWindow(def, s.now()); err != nil {
		return nil, err
	}

	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, persistence("get student", err)
	}
	if student.CollegeID != req.CollegeID {
		return nil, ErrNotRegistered
	}

	var paper []model.Question
	for attempt := 0; attempt < maxAdmissionAttempts; attempt++ {
		existing, err := s.sessions.LatestByTriple(ctx, req.StudentID, req.CollegeID, req.TestID)
		switch {
		case err == nil:
			if existing.IsOpen() {
				return existing, nil
			}
			if !def.AllowRetake {
				return nil, ErrAlreadyCompleted
			}
		case !errors.Is(err, repository.ErrNotFound):
			return nil, persistence("find existing session", err)
		}

		if paper == nil {
			if paper, err = s.samplePaper(ctx, def.QuestionsPerTest); err != nil {
				return nil, err
			}
		}

		sess := newPendingSession(req, def, paper)
		err = s.sessions.CreateOpen(ctx, sess)
		if err == nil {
			s.log.Info().
				Str("session_id", sess.ID.String()).
				Str("student_id", req.StudentID.String()).
				Str("test_id", req.TestID).
				Int("questions", len(sess.Questions)).
				Msg("Session created")
			return sess, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, persistence("create session", err)
		}
		// Another request took the slot; resolve to its session.
	}

	return nil, persistence("create session", errors.New("session slot still contended after retries"))
}

// checkWindow enforces the optional time window of a test definition. A
// session must be able to run its full duration before the window closes.
func (s *TestSessionService) checkWindow(def *model.TestDefinition, now time.Time) error {
	if !def.HasExpiry {
		return nil
	}
	if def.StartTime == nil || def.EndTime == nil {
		return ErrMisconfiguredSchedule
	}

	start, end := *def.StartTime, *def.EndTime
	if now.Before(start) {
		return fmt.Errorf("%w: the test opens at %s", ErrNotYetOpen, s.formatTime(start))
	}
	if now.After(end) {
		return fmt.Errorf("%w: the test closed at %s", ErrWindowClosed, s.formatTime(end))
	}

	need := time.Duration(def.DurationMinutes) * time.Minute
	if left := end.Sub(now); left < need {
		return fmt.Errorf("%w: the test closes at %s, %d minutes from now, and takes %d minutes",
			ErrInsufficientTime, s.formatTime(end), int(left/time.Minute), def.DurationMinutes)
	}
	return nil
}

func (s *TestSessionService) formatTime(t time.Time) string {
	return t.In(s.loc).Format(windowTimeLayout)
}

func (s *TestSessionService) samplePaper(ctx context.Context, n int) ([]model.Question, error) {
	pool, err := s.bank.ActivePool(ctx)
	if err != nil {
		return nil, err
	}
	paper, err := s.sampler.SampleQuestions(pool, n)
	if err != nil {
		if errors.Is(err, ErrNoQuestionsAvailable) {
			return nil, fmt.Errorf("%w: need %d, %d active", ErrNoQuestionsAvailable, n, len(pool))
		}
		return nil, err
	}
	return paper, nil
}

func newPendingSession(req AdmissionRequest, def *model.TestDefinition, paper []model.Question) *model.TestSession {
	questions := make([]model.SessionQuestion, len(paper))
	for i, q := range paper {
		questions[i] = model.SessionQuestion{
			QuestionID:          q.ID,
			SelectedAnswerIndex: model.Unanswered,
		}
	}
	return &model.TestSession{
		StudentID:         req.StudentID,
		CollegeID:         req.CollegeID,
		TestID:            req.TestID,
		TestDefinitionID:  def.ID,
		BatchName:         def.BatchName,
		Status:            model.SessionStatusPending,
		Duration:          def.DurationMinutes,
		PassingPercentage: def.PassingScorePercent,
		Questions:         questions,
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
	}
}

// StartSession moves a pending session to active and returns its paper
// without the answer key.
func (s *TestSessionService) StartSession(ctx context.Context, sessionID, studentID uuid.UUID, testID string, collegeID uuid.UUID) (*model.StartSessionResponse, error) {
	sess, err := s.mutate(ctx, sessionID, "start session", func(ts *model.TestSession) error {
		if ts.StudentID != studentID {
			return ErrSessionNotFound
		}
		if ts.TestID != testID || ts.CollegeID != collegeID {
			return ErrInvalidLink
		}
		if ts.Status != model.SessionStatusPending {
			return fmt.Errorf("%w: session is %s", ErrInvalidTransition, ts.Status)
		}
		now := s.now()
		ts.Status = model.SessionStatusActive
		ts.StartTime = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	paper, err := s.paperFor(ctx, sess)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, StudentResultEvent{
		StudentID:  sess.StudentID,
		SessionID:  sess.ID,
		Status:     model.StudentTestInProgress,
		OccurredAt: *sess.StartTime,
	})

	return &model.StartSessionResponse{Session: sess, Questions: paper}, nil
}

// RecordAnswer autosaves one answer of an active session. A question that
// is not yet on the paper is appended when it exists in the bank.
func (s *TestSessionService) RecordAnswer(ctx context.Context, sessionID, studentID, questionID uuid.UUID, selected, timeSpent int) error {
	if selected < model.Unanswered || timeSpent < 0 {
		return fmt.Errorf("%w: selected answer must be -1 or an option index", ErrValidation)
	}

	inBank := false
	for {
		_, err := s.mutate(ctx, sessionID, "record answer", func(ts *model.TestSession) error {
			if ts.StudentID != studentID {
				return ErrSessionNotFound
			}
			if ts.Status != model.SessionStatusActive {
				return fmt.Errorf("%w: session is %s", ErrSessionNotActive, ts.Status)
			}

			if i := ts.QuestionIndex(questionID); i >= 0 {
				ts.Questions[i].SelectedAnswerIndex = selected
				ts.Questions[i].TimeSpentSeconds = timeSpent
				return nil
			}
			if !inBank {
				return errOffPaper
			}
			ts.Questions = append(ts.Questions, model.SessionQuestion{
				QuestionID:          questionID,
				SelectedAnswerIndex: selected,
				TimeSpentSeconds:    timeSpent,
			})
			return nil
		})
		if !errors.Is(err, errOffPaper) {
			return err
		}

		// The bank lookup runs outside the lock, then the save is retried.
		found, err := s.bank.GetByIDs(ctx, []uuid.UUID{questionID})
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("%w: unknown question %s", ErrValidation, questionID)
		}
		inBank = true
	}
}

// SubmitSession scores a pending or active session and completes it.
// Supplied answers take precedence over autosaved ones. Only one submission
// can complete a session; later ones get ErrAlreadySubmitted.
func (s *TestSessionService) SubmitSession(ctx context.Context, sessionID, studentID uuid.UUID, answers []scoring.Answer) (*model.SessionResult, error) {
	var (
		res     scoring.Result
		missing []uuid.UUID
		sess    *model.TestSession
	)

	for attempt := 1; ; attempt++ {
		key, err := s.loadAnswerKey(ctx, sessionID, studentID)
		if err != nil {
			return nil, err
		}

		sess, err = s.mutate(ctx, sessionID, "submit session", func(ts *model.TestSession) error {
			if ts.StudentID != studentID {
				return ErrSessionNotFound
			}
			if ts.Status == model.SessionStatusCompleted {
				return ErrAlreadySubmitted
			}

			var questions []model.Question
			var ok bool
			if questions, missing, ok = key.questionsFor(ts); !ok {
				return errStaleAnswerKey
			}

			res = scoring.Calculate(questions, withAutosaved(ts, answers), ts.PassingPercentage)

			now := s.now()
			ts.Questions = res.CorrectedAnswers
			ts.Score = res.Score
			ts.Percentage = res.Percentage
			ts.IsPassed = res.IsPassed
			ts.Status = model.SessionStatusCompleted
			ts.EndTime = &now
			return nil
		})
		if errors.Is(err, errStaleAnswerKey) {
			if attempt < maxSubmitAttempts {
				continue
			}
			return nil, persistence("submit session", err)
		}
		if err != nil {
			return nil, err
		}
		break
	}

	for _, id := range missing {
		s.log.Warn().
			Str("session_id", sess.ID.String()).
			Str("question_id", id.String()).
			Msg("Session question missing from bank")
	}

	if len(res.DuplicateAnswers) > 0 || len(res.UnknownAnswers) > 0 {
		s.log.Warn().
			Str("session_id", sess.ID.String()).
			Int("duplicate_answers", len(res.DuplicateAnswers)).
			Int("unknown_answers", len(res.UnknownAnswers)).
			Msg("Submission carried duplicate or foreign answers")
	}

	s.log.Info().
		Str("session_id", sess.ID.String()).
		Int("score", res.Score).
		Int("total", res.TotalQuestions).
		Int("percentage", res.Percentage).
		Bool("passed", res.IsPassed).
		Msg("Session submitted and scored")

	score, pct, passed := res.Score, res.Percentage, res.IsPassed
	s.publish(ctx, StudentResultEvent{
		StudentID:  sess.StudentID,
		SessionID:  sess.ID,
		Status:     model.StudentTestCompleted,
		Score:      &score,
		Percentage: &pct,
		IsPassed:   &passed,
		OccurredAt: *sess.EndTime,
	})

	return &model.SessionResult{
		SessionID:        sess.ID,
		Score:            res.Score,
		Percentage:       res.Percentage,
		TotalQuestions:   res.TotalQuestions,
		IsPassed:         res.IsPassed,
		CorrectedAnswers: res.CorrectedAnswers,
	}, nil
}

// GetSession returns a student's own session. Open sessions carry the paper,
// active ones also the seconds left on their timer.
func (s *TestSessionService) GetSession(ctx context.Context, sessionID, studentID uuid.UUID) (*SessionView, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, persistence("get session", err)
	}
	if sess.StudentID != studentID {
		return nil, ErrSessionNotFound
	}

	view := &SessionView{Session: sess}
	if !sess.IsOpen() {
		return view, nil
	}

	if view.Paper, err = s.paperFor(ctx, sess); err != nil {
		return nil, err
	}
	if sess.Status == model.SessionStatusActive && sess.StartTime != nil {
		deadline := sess.StartTime.Add(time.Duration(sess.Duration) * time.Minute)
		left := max(int(deadline.Sub(s.now())/time.Second), 0)
		view.RemainingSeconds = &left
	}
	return view, nil
}

// mutate runs fn under the session lock. Rule errors from fn come back
// unchanged; storage failures are wrapped in PersistenceError.
func (s *TestSessionService) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*model.TestSession) error) (*model.TestSession, error) {
	var ruleErr error
	sess, err := s.sessions.Mutate(ctx, id, func(ts *model.TestSession) error {
		ruleErr = fn(ts)
		return ruleErr
	})
	if ruleErr != nil {
		return nil, ruleErr
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, persistence(op, err)
	}
	return sess, nil
}

// paperFor returns the session's questions in paper order without answers.
func (s *TestSessionService) paperFor(ctx context.Context, sess *model.TestSession) ([]model.QuestionForStudent, error) {
	questions, err := s.bank.GetByIDs(ctx, sess.QuestionIDs())
	if err != nil {
		return nil, err
	}
	paper := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		paper[i] = questions[i].ForStudent()
	}
	return paper, nil
}

// answerKey holds the bank rows for a session's questions. It is loaded
// before the session lock is taken.
type answerKey struct {
	loaded map[uuid.UUID]struct{}
	found  map[uuid.UUID]model.Question
}

// loadAnswerKey reads the session without locking it and fetches the bank
// rows for its paper. Ownership and completion are checked early so a
// rejected submission never touches the bank.
func (s *TestSessionService) loadAnswerKey(ctx context.Context, sessionID, studentID uuid.UUID) (*answerKey, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, persistence("get session", err)
	}
	if sess.StudentID != studentID {
		return nil, ErrSessionNotFound
	}
	if sess.Status == model.SessionStatusCompleted {
		return nil, ErrAlreadySubmitted
	}

	ids := sess.QuestionIDs()
	found, err := s.bank.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	key := &answerKey{
		loaded: make(map[uuid.UUID]struct{}, len(ids)),
		found:  make(map[uuid.UUID]model.Question, len(found)),
	}
	for _, id := range ids {
		key.loaded[id] = struct{}{}
	}
	for _, q := range found {
		key.found[q.ID] = q
	}
	return key, nil
}

// questionsFor returns one question per session slot, in slot order. A
// question missing from the bank is kept as an empty placeholder so it
// scores as incorrect instead of shrinking the paper; its id is listed in
// missing. ok is false when the paper holds a question the key was not
// loaded for.
func (k *answerKey) questionsFor(sess *model.TestSession) (questions []model.Question, missing []uuid.UUID, ok bool) {
	questions = make([]model.Question, len(sess.Questions))
	for i, sq := range sess.Questions {
		if _, loaded := k.loaded[sq.QuestionID]; !loaded {
			return nil, nil, false
		}
		q, found := k.found[sq.QuestionID]
		if !found {
			missing = append(missing, sq.QuestionID)
			q = model.Question{ID: sq.QuestionID}
		}
		questions[i] = q
	}
	return questions, missing, true
}

// withAutosaved adds the session's recorded answers for every question the
// final submission does not mention.
func withAutosaved(sess *model.TestSession, submitted []scoring.Answer) []scoring.Answer {
	mentioned := make(map[uuid.UUID]struct{}, len(submitted))
	for _, a := range submitted {
		mentioned[a.QuestionID] = struct{}{}
	}

	merged := make([]scoring.Answer, 0, len(sess.Questions)+len(submitted))
	for _, sq := range sess.Questions {
		if sq.SelectedAnswerIndex == model.Unanswered {
			continue
		}
		if _, ok := mentioned[sq.QuestionID]; ok {
			continue
		}
		merged = append(merged, scoring.Answer{
			QuestionID:          sq.QuestionID,
			SelectedAnswerIndex: sq.SelectedAnswerIndex,
			TimeSpentSeconds:    sq.TimeSpentSeconds,
		})
	}
	return append(merged, submitted...)
}

func (s *TestSessionService) publish(ctx context.Context, ev StudentResultEvent) {
	if s.results == nil {
		return
	}
	if err := s.results.Publish(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("session_id", ev.SessionID.String()).
			Str("status", string(ev.Status)).
			Msg("Failed to queue student result")
	}
}
