package service

import (
	"context"
	"errors"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/repository"
	"github.com/google/uuid"
)

// AdminStore is the admin persistence used by AdminService.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	Create(ctx context.Context, a *model.Admin) error
}

// AdminService handles admin business logic.
type AdminService struct {
	adminRepo AdminStore
	auth      *AuthService
}

// NewAdminService creates a new AdminService.
func NewAdminService(adminRepo AdminStore, auth *AuthService) *AdminService {
	return &AdminService{adminRepo: adminRepo, auth: auth}
}

// Login checks an admin's credentials.
func (s *AdminService) Login(ctx context.Context, req *model.AdminLoginRequest) (*model.AdminLoginResponse, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, persistence("get admin", err)
	}
	if err := s.auth.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, err := s.auth.IssueToken(ctx, model.RoleAdmin, admin.ID, uuid.Nil)
	if err != nil {
		return nil, err
	}
	return &model.AdminLoginResponse{Token: token, Admin: *admin}, nil
}

// Create hashes the password and stores a new admin.
func (s *AdminService) Create(ctx context.Context, name, email, password string) (*model.Admin, error) {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	admin := &model.Admin{Name: name, Email: email, PasswordHash: hash}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, persistence("create admin", err)
	}
	return admin, nil
}
