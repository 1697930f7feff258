package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/eduvista/entrance-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// QuestionFilter narrows a bank listing. Nil fields are not applied.
type QuestionFilter struct {
	Category *model.QuestionCategory
	IsActive *bool
}

const questionColumns = `id, text, options, correct_answer_text, category, explanation, is_active, created_at, updated_at`

func scanQuestion(row rowScanner) (*model.Question, error) {
	q := &model.Question{}
	err := row.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectAnswerText, &q.Category,
		&q.Explanation, &q.IsActive, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return q, nil
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// ListActive returns every question eligible for sampling.
func (r *QuestionRepository) ListActive(ctx context.Context) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE is_active ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// GetByIDs returns the questions with the given ids in no particular order.
// Ids with no row are omitted.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// GetByID retrieves a question by ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// List returns a filtered page of the bank and the total match count.
func (r *QuestionRepository) List(ctx context.Context, f QuestionFilter, limit, offset int) ([]model.Question, int, error) {
	where := ` WHERE TRUE`
	var args []any
	if f.Category != nil {
		args = append(args, *f.Category)
		where += ` AND category = $` + strconv.Itoa(len(args))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + questionColumns + ` FROM questions` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	questions, err := collectQuestions(rows)
	return questions, total, err
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO questions (text, options, correct_answer_text, category, explanation, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		q.Text, q.Options, q.CorrectAnswerText, q.Category, q.Explanation, q.IsActive,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	return translate(err)
}

// CreateBatch inserts all questions in one transaction; either all or none are stored.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []*model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(
			`INSERT INTO questions (text, options, correct_answer_text, category, explanation, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at, updated_at`,
			q.Text, q.Options, q.CorrectAnswerText, q.Category, q.Explanation, q.IsActive,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i, q := range questions {
		if err := br.QueryRow().Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt); err != nil {
			br.Close()
			return fmt.Errorf("insert question %d: %w", i, translate(err))
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update replaces a question's content and active flag.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE questions
		 SET text = $1, options = $2, correct_answer_text = $3, category = $4,
		     explanation = $5, is_active = $6, updated_at = NOW()
		 WHERE id = $7
		 RETURNING created_at, updated_at`,
		q.Text, q.Options, q.CorrectAnswerText, q.Category, q.Explanation, q.IsActive, q.ID,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	return translate(err)
}

// SetActive toggles whether a question may be sampled.
func (r *QuestionRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
