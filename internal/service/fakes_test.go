package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/repository"
	"github.com/google/uuid"
)

// ─── Colleges / students / tests ────────────────────────────────────

type fakeColleges struct {
	byID map[uuid.UUID]*model.College
}

func (f *fakeColleges) GetByID(_ context.Context, id uuid.UUID) (*model.College, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type fakeStudents struct {
	byID map[uuid.UUID]*model.Student
}

func (f *fakeStudents) GetByID(_ context.Context, id uuid.UUID) (*model.Student, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

type fakeTests struct {
	defs []*model.TestDefinition
}

func (f *fakeTests) Find(_ context.Context, testID string, collegeID uuid.UUID, batchName string) (*model.TestDefinition, error) {
	for _, d := range f.defs {
		if d.TestID == testID && d.CollegeID == collegeID && d.BatchName == batchName {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ─── Connections ────────────────────────────────────────────────────

var errPoolExhausted = errors.New("no free database connection")

// fakeConns models a database pool shared by the session store and the bank.
// Acquire fails instead of blocking, so a call that needs a second
// connection while one is held shows up as an error rather than a hang.
// A nil *fakeConns is an unlimited pool.
type fakeConns struct {
	slots chan struct{}
}

func newFakeConns(n int) *fakeConns {
	return &fakeConns{slots: make(chan struct{}, n)}
}

func (c *fakeConns) acquire() (release func(), err error) {
	if c == nil {
		return func() {}, nil
	}
	select {
	case c.slots <- struct{}{}:
		return func() { <-c.slots }, nil
	default:
		return nil, errPoolExhausted
	}
}

// ─── Sessions ───────────────────────────────────────────────────────

// fakeSessionStore emulates the row lock with one mutex and the partial
// unique index on open (student, college, test) slots.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.TestSession
	order    []uuid.UUID
	creates  int
	clock    time.Time
	conns    *fakeConns
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[uuid.UUID]*model.TestSession),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func cloneSession(s *model.TestSession) *model.TestSession {
	cp := *s
	cp.Questions = slices.Clone(s.Questions)
	return &cp
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.TestSession, error) {
	release, err := f.conns.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(s), nil
}

func (f *fakeSessionStore) LatestByTriple(_ context.Context, studentID, collegeID uuid.UUID, testID string) (*model.TestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.order) - 1; i >= 0; i-- {
		s := f.sessions[f.order[i]]
		if s.StudentID == studentID && s.CollegeID == collegeID && s.TestID == testID {
			return cloneSession(s), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSessionStore) CreateOpen(_ context.Context, s *model.TestSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.sessions {
		if existing.StudentID == s.StudentID && existing.CollegeID == s.CollegeID &&
			existing.TestID == s.TestID && existing.Status != model.SessionStatusCompleted {
			return repository.ErrDuplicate
		}
	}
	f.clock = f.clock.Add(time.Second)
	s.ID = uuid.New()
	s.CreatedAt, s.UpdatedAt = f.clock, f.clock
	f.sessions[s.ID] = cloneSession(s)
	f.order = append(f.order, s.ID)
	f.creates++
	return nil
}

// Mutate holds one connection for the whole of fn, like the row-locking
// transaction it stands in for.
func (f *fakeSessionStore) Mutate(_ context.Context, id uuid.UUID, fn func(*model.TestSession) error) (*model.TestSession, error) {
	release, err := f.conns.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	work := cloneSession(s)
	if err := fn(work); err != nil {
		return nil, err
	}
	f.sessions[id] = cloneSession(work)
	return work, nil
}

func (f *fakeSessionStore) put(s *model.TestSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = cloneSession(s)
	f.order = append(f.order, s.ID)
}

// ─── Question bank ──────────────────────────────────────────────────

type fakeBank struct {
	questions []model.Question
	conns     *fakeConns
	// afterGet runs after every GetByIDs, once its connection is released.
	afterGet func()
}

func (f *fakeBank) ActivePool(_ context.Context) ([]model.Question, error) {
	var pool []model.Question
	for _, q := range f.questions {
		if q.IsActive {
			pool = append(pool, q)
		}
	}
	return pool, nil
}

func (f *fakeBank) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	release, err := f.conns.acquire()
	if err != nil {
		return nil, err
	}
	var out []model.Question
	for _, id := range ids {
		for _, q := range f.questions {
			if q.ID == id {
				out = append(out, q)
			}
		}
	}
	release()
	if f.afterGet != nil {
		f.afterGet()
	}
	return out, nil
}

// ─── Result queue ───────────────────────────────────────────────────

type fakePublisher struct {
	mu     sync.Mutex
	events []StudentResultEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev StudentResultEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

// ─── Builders ───────────────────────────────────────────────────────

// bankQuestion has four options with the second one correct.
func bankQuestion(category model.QuestionCategory) model.Question {
	return model.Question{
		ID:   uuid.New(),
		Text: "question",
		Options: []model.Option{
			{Text: "a"}, {Text: "b", IsCorrect: true}, {Text: "c"}, {Text: "d"},
		},
		CorrectAnswerText: "b",
		Category:          category,
		IsActive:          true,
	}
}

func bankOf(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = bankQuestion(model.CategoryAptitude)
	}
	return qs
}
