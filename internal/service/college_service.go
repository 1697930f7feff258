package service

import (
	"context"
	"errors"
	"strings"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/repository"
	"github.com/google/uuid"
)

// CollegeStore is the college persistence used by CollegeService.
type CollegeStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.College, error)
	GetByEmail(ctx context.Context, email string) (*model.College, error)
	Create(ctx context.Context, c *model.College) error
}

// CollegeService handles college registration and login.
type CollegeService struct {
	collegeRepo CollegeStore
	auth        *AuthService
}

// NewCollegeService creates a new CollegeService.
func NewCollegeService(collegeRepo CollegeStore, auth *AuthService) *CollegeService {
	return &CollegeService{collegeRepo: collegeRepo, auth: auth}
}

// GetByID retrieves a college by ID.
func (s *CollegeService) GetByID(ctx context.Context, id uuid.UUID) (*model.College, error) {
	return s.collegeRepo.GetByID(ctx, id)
}

// Register creates a college account and signs it in.
func (s *CollegeService) Register(ctx context.Context, req *model.RegisterCollegeRequest) (*model.CollegeLoginResponse, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	college := &model.College{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
	}
	if err := s.collegeRepo.Create(ctx, college); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, persistence("create college", err)
	}

	token, err := s.auth.IssueToken(ctx, model.RoleCollege, college.ID, college.ID)
	if err != nil {
		return nil, err
	}
	return &model.CollegeLoginResponse{Token: token, College: *college}, nil
}

// Login checks a college's credentials.
func (s *CollegeService) Login(ctx context.Context, req *model.CollegeLoginRequest) (*model.CollegeLoginResponse, error) {
	college, err := s.collegeRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, persistence("get college", err)
	}
	if err := s.auth.CheckPassword(college.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, err := s.auth.IssueToken(ctx, model.RoleCollege, college.ID, college.ID)
	if err != nil {
		return nil, err
	}
	return &model.CollegeLoginResponse{Token: token, College: *college}, nil
}
