package repository

import (
	"context"
	"fmt"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDefinitionRepository handles test definition data access.
type TestDefinitionRepository struct {
	pool *pgxpool.Pool
}

// NewTestDefinitionRepository creates a new TestDefinitionRepository.
func NewTestDefinitionRepository(pool *pgxpool.Pool) *TestDefinitionRepository {
	return &TestDefinitionRepository{pool: pool}
}

const testDefinitionColumns = `id, test_id, college_id, batch_name, duration_minutes, questions_per_test,
	passing_score_percent, allow_retake, has_expiry, start_time, end_time, created_at`

func scanTestDefinition(row rowScanner) (*model.TestDefinition, error) {
	t := &model.TestDefinition{}
	err := row.Scan(&t.ID, &t.TestID, &t.CollegeID, &t.BatchName, &t.DurationMinutes, &t.QuestionsPerTest,
		&t.PassingScorePercent, &t.AllowRetake, &t.HasExpiry, &t.StartTime, &t.EndTime, &t.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// Find resolves the definition for a (test id, college, batch) triple.
func (r *TestDefinitionRepository) Find(ctx context.Context, testID string, collegeID uuid.UUID, batchName string) (*model.TestDefinition, error) {
	return scanTestDefinition(r.pool.QueryRow(ctx,
		`SELECT `+testDefinitionColumns+`
		 FROM test_definitions
		 WHERE test_id = $1 AND college_id = $2 AND batch_name = $3`,
		testID, collegeID, batchName))
}

// Create inserts the definition and registers its test id on the owning
// college in one transaction.
func (r *TestDefinitionRepository) Create(ctx context.Context, t *model.TestDefinition) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO test_definitions (test_id, college_id, batch_name, duration_minutes, questions_per_test,
		   passing_score_percent, allow_retake, has_expiry, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		t.TestID, t.CollegeID, t.BatchName, t.DurationMinutes, t.QuestionsPerTest,
		t.PassingScorePercent, t.AllowRetake, t.HasExpiry, t.StartTime, t.EndTime,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return translate(err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE colleges
		 SET registered_test_ids = array_append(registered_test_ids, $2)
		 WHERE id = $1`,
		t.CollegeID, t.TestID)
	if err != nil {
		return fmt.Errorf("register test id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

// ListByCollege returns a college's definitions, newest first.
func (r *TestDefinitionRepository) ListByCollege(ctx context.Context, collegeID uuid.UUID) ([]model.TestDefinition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testDefinitionColumns+`
		 FROM test_definitions
		 WHERE college_id = $1
		 ORDER BY created_at DESC`, collegeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []model.TestDefinition
	for rows.Next() {
		t, err := scanTestDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *t)
	}
	return defs, rows.Err()
}
