package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TestDefinitionStore is the definition persistence used by TestDefinitionService.
type TestDefinitionStore interface {
	Create(ctx context.Context, t *model.TestDefinition) error
	ListByCollege(ctx context.Context, collegeID uuid.UUID) ([]model.TestDefinition, error)
}

// TestResultLister lists the sessions of one test for its college.
type TestResultLister interface {
	ListResultsByTest(ctx context.Context, collegeID uuid.UUID, testID string) ([]repository.TestResult, error)
}

// TestDefinitionService lets colleges publish tests and read their results.
type TestDefinitionService struct {
	testRepo TestDefinitionStore
	colleges CollegeLookup
	results  TestResultLister
	log      zerolog.Logger
	newID    func() string
}

// NewTestDefinitionService creates a new TestDefinitionService.
func NewTestDefinitionService(testRepo TestDefinitionStore, colleges CollegeLookup, results TestResultLister, log zerolog.Logger) *TestDefinitionService {
	return &TestDefinitionService{
		testRepo: testRepo,
		colleges: colleges,
		results:  results,
		log:      log.With().Str("component", "test_definition_service").Logger(),
		newID:    newTestID,
	}
}

// newTestID returns a short opaque token students can type in.
func newTestID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// Create stores a test for the college under a new test id and registers
// the id on the college.
func (s *TestDefinitionService) Create(ctx context.Context, collegeID uuid.UUID, req *model.CreateTestRequest) (*model.TestDefinition, error) {
	def := &model.TestDefinition{
		CollegeID:           collegeID,
		BatchName:           strings.TrimSpace(req.BatchName),
		DurationMinutes:     req.DurationMinutes,
		QuestionsPerTest:    req.QuestionsPerTest,
		PassingScorePercent: req.PassingScorePercent,
		AllowRetake:         req.AllowRetake,
		HasExpiry:           req.HasExpiry,
	}
	if req.HasExpiry {
		def.StartTime = req.StartTime
		def.EndTime = req.EndTime
	}
	if err := def.ValidateSchedule(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if def.HasExpiry && def.EndTime.Sub(*def.StartTime).Minutes() < float64(def.DurationMinutes) {
		return nil, fmt.Errorf("%w: window is shorter than the test duration", ErrValidation)
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		def.TestID = s.newID()
		err = s.testRepo.Create(ctx, def)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCollegeNotFound
		}
		return nil, persistence("create test definition", err)
	}

	s.log.Info().
		Str("college_id", collegeID.String()).
		Str("test_id", def.TestID).
		Str("batch", def.BatchName).
		Msg("Test definition created")
	return def, nil
}

// ListByCollege returns the college's tests, newest first.
func (s *TestDefinitionService) ListByCollege(ctx context.Context, collegeID uuid.UUID) ([]model.TestDefinition, error) {
	defs, err := s.testRepo.ListByCollege(ctx, collegeID)
	if err != nil {
		return nil, persistence("list test definitions", err)
	}
	if defs == nil {
		defs = []model.TestDefinition{}
	}
	return defs, nil
}

// Results lists every session of one of the college's tests.
func (s *TestDefinitionService) Results(ctx context.Context, collegeID uuid.UUID, testID string) ([]repository.TestResult, error) {
	college, err := s.colleges.GetByID(ctx, collegeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCollegeNotFound
		}
		return nil, persistence("get college", err)
	}
	if !college.HasTest(testID) {
		return nil, ErrInvalidLink
	}

	results, err := s.results.ListResultsByTest(ctx, collegeID, testID)
	if err != nil {
		return nil, persistence("list results", err)
	}
	if results == nil {
		results = []repository.TestResult{}
	}
	return results, nil
}
