package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/repository"
	"github.com/eduvista/entrance-backend/internal/response"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QuestionStore is the bank persistence used by QuestionService.
type QuestionStore interface {
	ListActive(ctx context.Context) ([]model.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	List(ctx context.Context, f repository.QuestionFilter, limit, offset int) ([]model.Question, int, error)
	Create(ctx context.Context, q *model.Question) error
	CreateBatch(ctx context.Context, questions []*model.Question) error
	Update(ctx context.Context, q *model.Question) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// QuestionPoolCache holds the active pool between bank mutations.
type QuestionPoolCache interface {
	Load(ctx context.Context) ([]model.Question, bool, error)
	Store(ctx context.Context, questions []model.Question) error
	Invalidate(ctx context.Context) error
}

// QuestionService handles question bank business logic.
type QuestionService struct {
	questionRepo QuestionStore
	cache        QuestionPoolCache
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService. cache may be nil.
func NewQuestionService(questionRepo QuestionStore, cache QuestionPoolCache, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		cache:        cache,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// ActivePool returns every question eligible for sampling. A cache failure
// falls through to the database.
func (s *QuestionService) ActivePool(ctx context.Context) ([]model.Question, error) {
	if s.cache != nil {
		pool, ok, err := s.cache.Load(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("Active pool cache read failed")
		} else if ok {
			return pool, nil
		}
	}

	pool, err := s.questionRepo.ListActive(ctx)
	if err != nil {
		return nil, persistence("list active questions", err)
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, pool); err != nil {
			s.log.Warn().Err(err).Msg("Active pool cache write failed")
		}
	}
	return pool, nil
}

// GetByIDs returns the questions with the given ids, in the order of ids.
// Ids with no stored question are skipped.
func (s *QuestionService) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	found, err := s.questionRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, persistence("get questions", err)
	}

	byID := make(map[uuid.UUID]model.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}

	ordered := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

// List retrieves a filtered page of the bank.
func (s *QuestionService) List(ctx context.Context, f repository.QuestionFilter, page, perPage int) ([]model.Question, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	questions, total, err := s.questionRepo.List(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, persistence("list questions", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}

	return questions, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

// Create validates and stores a single question.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, error) {
	q := req.ToQuestion()
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, persistence("create question", err)
	}
	s.invalidate(ctx)
	return q, nil
}

// BulkCreate validates every question first and stores none if any is invalid.
func (s *QuestionService) BulkCreate(ctx context.Context, reqs []model.CreateQuestionRequest) ([]*model.Question, error) {
	questions := make([]*model.Question, len(reqs))
	for i := range reqs {
		q := reqs[i].ToQuestion()
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: questions[%d]: %v", ErrValidation, i, err)
		}
		questions[i] = q
	}

	if err := s.questionRepo.CreateBatch(ctx, questions); err != nil {
		return nil, persistence("bulk create questions", err)
	}
	s.invalidate(ctx)

	s.log.Info().Int("count", len(questions)).Msg("Questions uploaded")
	return questions, nil
}

// Update replaces a question's content. The active flag is kept unless the
// request sets it.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	existing, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, persistence("get question", err)
	}

	q := req.ToQuestion()
	q.ID = existing.ID
	q.IsActive = existing.IsActive
	if req.IsActive != nil {
		q.IsActive = *req.IsActive
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.questionRepo.Update(ctx, q); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, persistence("update question", err)
	}
	s.invalidate(ctx)
	return q, nil
}

// Deactivate removes a question from sampling. Questions are never hard
// deleted because sessions keep referencing them.
func (s *QuestionService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.questionRepo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return persistence("deactivate question", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *QuestionService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Active pool cache invalidation failed")
	}
}
