package repository

import (
	"context"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CollegeRepository handles college data access.
type CollegeRepository struct {
	pool *pgxpool.Pool
}

// NewCollegeRepository creates a new CollegeRepository.
func NewCollegeRepository(pool *pgxpool.Pool) *CollegeRepository {
	return &CollegeRepository{pool: pool}
}

const collegeColumns = `id, name, email, password_hash, registered_test_ids, created_at`

func scanCollege(row rowScanner) (*model.College, error) {
	c := &model.College{}
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.RegisteredTestIDs, &c.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// GetByID retrieves a college by ID.
func (r *CollegeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.College, error) {
	return scanCollege(r.pool.QueryRow(ctx,
		`SELECT `+collegeColumns+` FROM colleges WHERE id = $1`, id))
}

// GetByEmail retrieves a college by its login email.
func (r *CollegeRepository) GetByEmail(ctx context.Context, email string) (*model.College, error) {
	return scanCollege(r.pool.QueryRow(ctx,
		`SELECT `+collegeColumns+` FROM colleges WHERE lower(email) = lower($1)`, email))
}

// Create inserts a new college. Returns ErrDuplicate if the email is taken.
func (r *CollegeRepository) Create(ctx context.Context, c *model.College) error {
	if c.RegisteredTestIDs == nil {
		c.RegisteredTestIDs = []string{}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO colleges (name, email, password_hash, registered_test_ids)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		c.Name, c.Email, c.PasswordHash, c.RegisteredTestIDs,
	).Scan(&c.ID, &c.CreatedAt)
	return translate(err)
}
