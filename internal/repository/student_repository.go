package repository

import (
	"context"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = `id, college_id, name, email, password_hash, test_status,
	last_test_score, last_test_percentage, last_test_passed, created_at, updated_at`

func scanStudent(row rowScanner) (*model.Student, error) {
	s := &model.Student{}
	err := row.Scan(&s.ID, &s.CollegeID, &s.Name, &s.Email, &s.PasswordHash, &s.TestStatus,
		&s.LastTestScore, &s.LastTestPercentage, &s.LastTestPassed, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
}

// GetByEmail retrieves a student by email within one college.
func (r *StudentRepository) GetByEmail(ctx context.Context, collegeID uuid.UUID, email string) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE college_id = $1 AND lower(email) = lower($2)`,
		collegeID, email))
}

// Create inserts a new student. Returns ErrDuplicate if the email is already
// registered with the same college.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	if s.TestStatus == "" {
		s.TestStatus = model.StudentTestNotStarted
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (college_id, name, email, password_hash, test_status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		s.CollegeID, s.Name, s.Email, s.PasswordHash, s.TestStatus,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return translate(err)
}
