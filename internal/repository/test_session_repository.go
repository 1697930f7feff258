package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestResult pairs a student with the outcome of one session, for college reports.
type TestResult struct {
	SessionID   uuid.UUID           `json:"session_id"`
	StudentID   uuid.UUID           `json:"student_id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	BatchName   string              `json:"batch_name"`
	Status      model.SessionStatus `json:"status"`
	Score       int                 `json:"score"`
	Percentage  int                 `json:"percentage"`
	IsPassed    bool                `json:"is_passed"`
	StartTime   *time.Time          `json:"start_time"`
	EndTime     *time.Time          `json:"end_time"`
	QuestionSet int                 `json:"total_questions"`
}

// TestSessionRepository handles test session data access. Every state change
// goes through Mutate, which holds the row lock for the read-modify-write.
type TestSessionRepository struct {
	pool *pgxpool.Pool
}

// NewTestSessionRepository creates a new TestSessionRepository.
func NewTestSessionRepository(pool *pgxpool.Pool) *TestSessionRepository {
	return &TestSessionRepository{pool: pool}
}

const sessionColumns = `id, student_id, college_id, test_id, test_definition_id, batch_name, status,
	start_time, end_time, duration, score, percentage, is_passed, passing_percentage,
	questions, ip_address, user_agent, created_at, updated_at`

func scanSession(row rowScanner) (*model.TestSession, error) {
	s := &model.TestSession{}
	err := row.Scan(&s.ID, &s.StudentID, &s.CollegeID, &s.TestID, &s.TestDefinitionID, &s.BatchName, &s.Status,
		&s.StartTime, &s.EndTime, &s.Duration, &s.Score, &s.Percentage, &s.IsPassed, &s.PassingPercentage,
		&s.Questions, &s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// GetByID retrieves a session by ID.
func (r *TestSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions WHERE id = $1`, id))
}

// LatestByTriple returns the most recent session of a student for a college's test.
func (r *TestSessionRepository) LatestByTriple(ctx context.Context, studentID, collegeID uuid.UUID, testID string) (*model.TestSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM test_sessions
		 WHERE student_id = $1 AND college_id = $2 AND test_id = $3
		 ORDER BY created_at DESC
		 LIMIT 1`, studentID, collegeID, testID))
}

// CreateOpen inserts a pending session. The partial unique index
// test_sessions_open_triple allows one non-completed session per
// (student, college, test); when another request already holds that slot the
// insert is skipped and ErrDuplicate is returned so the caller can fetch it.
func (r *TestSessionRepository) CreateOpen(ctx context.Context, s *model.TestSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO test_sessions (student_id, college_id, test_id, test_definition_id, batch_name, status,
		   duration, passing_percentage, questions, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (student_id, college_id, test_id) WHERE status <> 'completed' DO NOTHING
		 RETURNING id, created_at, updated_at`,
		s.StudentID, s.CollegeID, s.TestID, s.TestDefinitionID, s.BatchName, s.Status,
		s.Duration, s.PassingPercentage, s.Questions, s.IPAddress, s.UserAgent,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	return translate(err)
}

// Mutate locks the session row, applies fn and writes the result back in the
// same transaction. If fn returns an error nothing is written and that error
// is returned unchanged.
func (r *TestSessionRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(*model.TestSession) error) (*model.TestSession, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	s, err := scanSession(tx.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}

	if err := fn(s); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx,
		`UPDATE test_sessions
		 SET status = $1, start_time = $2, end_time = $3, score = $4, percentage = $5,
		     is_passed = $6, questions = $7, updated_at = NOW()
		 WHERE id = $8
		 RETURNING updated_at`,
		s.Status, s.StartTime, s.EndTime, s.Score, s.Percentage, s.IsPassed, s.Questions, s.ID,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s, nil
}

// ListResultsByTest returns every session of a college's test with the student's name.
func (r *TestSessionRepository) ListResultsByTest(ctx context.Context, collegeID uuid.UUID, testID string) ([]TestResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ts.id, s.id, s.name, s.email, ts.batch_name, ts.status, ts.score, ts.percentage,
		        ts.is_passed, ts.start_time, ts.end_time, jsonb_array_length(ts.questions)
		 FROM test_sessions ts
		 JOIN students s ON s.id = ts.student_id
		 WHERE ts.college_id = $1 AND ts.test_id = $2
		 ORDER BY ts.created_at DESC`, collegeID, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []TestResult
	for rows.Next() {
		var tr TestResult
		if err := rows.Scan(&tr.SessionID, &tr.StudentID, &tr.Name, &tr.Email, &tr.BatchName, &tr.Status,
			&tr.Score, &tr.Percentage, &tr.IsPassed, &tr.StartTime, &tr.EndTime, &tr.QuestionSet); err != nil {
			return nil, err
		}
		results = append(results, tr)
	}
	return results, rows.Err()
}
