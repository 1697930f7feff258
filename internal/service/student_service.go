package service

import (
	"context"
	"errors"
	"strings"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/eduvista/entrance-backend/internal/repository"
	"github.com/google/uuid"
)

// StudentStore is the student persistence used by StudentService.
type StudentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	GetByEmail(ctx context.Context, collegeID uuid.UUID, email string) (*model.Student, error)
	Create(ctx context.Context, s *model.Student) error
}

// StudentService handles student registration and login.
type StudentService struct {
	studentRepo StudentStore
	colleges    CollegeLookup
	auth        *AuthService
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo StudentStore, colleges CollegeLookup, auth *AuthService) *StudentService {
	return &StudentService{studentRepo: studentRepo, colleges: colleges, auth: auth}
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// Register binds a new student to a college. The email must be unused within
// that college.
func (s *StudentService) Register(ctx context.Context, req *model.RegisterStudentRequest) (*model.Student, error) {
	if _, err := s.colleges.GetByID(ctx, req.CollegeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCollegeNotFound
		}
		return nil, persistence("get college", err)
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	student := &model.Student{
		CollegeID:    req.CollegeID,
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		TestStatus:   model.StudentTestNotStarted,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, persistence("create student", err)
	}
	return student, nil
}

// Login checks a student's credentials within their college and issues a
// token that replaces any earlier login.
func (s *StudentService) Login(ctx context.Context, req *model.StudentLoginRequest) (*model.StudentLoginResponse, error) {
	student, err := s.studentRepo.GetByEmail(ctx, req.CollegeID, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, persistence("get student", err)
	}
	if err := s.auth.CheckPassword(student.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, err := s.auth.IssueToken(ctx, model.RoleStudent, student.ID, student.CollegeID)
	if err != nil {
		return nil, err
	}
	return &model.StudentLoginResponse{Token: token, Student: *student}, nil
}
