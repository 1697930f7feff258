package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/eduvista/entrance-backend/internal/config"
	"github.com/eduvista/entrance-backend/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker projects session outcomes onto the students table. The
// sessions table stays the source of truth; this only feeds profile reads.
type ResultWorker struct {
	pool  *pgxpool.Pool
	rdb   *redis.Client
	log   zerolog.Logger
	queue string
}

func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool:  pool,
		rdb:   rdb,
		log:   log.With().Str("component", "result_worker").Logger(),
		queue: config.WorkerKey.PersistStudentResultsQueue,
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start consumes the queue until ctx is cancelled, then flushes what it holds.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]service.StudentResultEvent, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, w.queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var ev service.StudentResultEvent
			if err := json.Unmarshal([]byte(item[1]), &ev); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			if ev.OccurredAt.IsZero() {
				ev.OccurredAt = time.Now()
			}
			batch = append(batch, ev)
		}
	}
}

// ----------------------------------------------------------------
// Batch update wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []service.StudentResultEvent) {
	if len(batch) == 0 {
		return
	}
	latest := latestPerStudent(batch)

	if err := w.bulkUpdate(ctx, latest); err != nil {
		w.log.Warn().Err(err).Msg("bulk result update failed, using fallback")

		for _, ev := range latest {
			if err := w.persistSingle(ctx, ev); err != nil {
				// Requeued events keep OccurredAt, so applying one after a
				// newer event for the same student is a no-op.
				w.log.Error().Err(err).Str("student_id", ev.StudentID.String()).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(ev)
				w.rdb.RPush(ctx, w.queue, raw)
			}
		}
		return
	}
	w.log.Debug().Int("students", len(latest)).Msg("Student results projected")
}

// latestPerStudent keeps the newest event per student by OccurredAt; on a
// tie the one later in the queue wins. One UPDATE cannot apply two rows to
// the same student.
func latestPerStudent(batch []service.StudentResultEvent) []service.StudentResultEvent {
	pos := make(map[uuid.UUID]int, len(batch))
	out := make([]service.StudentResultEvent, 0, len(batch))
	for _, ev := range batch {
		if i, ok := pos[ev.StudentID]; ok {
			if !ev.OccurredAt.Before(out[i].OccurredAt) {
				out[i] = ev
			}
			continue
		}
		pos[ev.StudentID] = len(out)
		out = append(out, ev)
	}
	return out
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPDATE using UNNEST
// ----------------------------------------------------------------

func (w *ResultWorker) bulkUpdate(ctx context.Context, batch []service.StudentResultEvent) error {
	n := len(batch)
	students := make([]uuid.UUID, n)
	statuses := make([]string, n)
	scores := make([]*int, n)
	percentages := make([]*int, n)
	passed := make([]*bool, n)
	occurred := make([]time.Time, n)

	for i, ev := range batch {
		students[i] = ev.StudentID
		statuses[i] = string(ev.Status)
		scores[i] = ev.Score
		percentages[i] = ev.Percentage
		passed[i] = ev.IsPassed
		occurred[i] = ev.OccurredAt
	}

	query := `
		UPDATE students AS s
		SET test_status          = t.status,
		    last_test_score      = COALESCE(t.score, s.last_test_score),
		    last_test_percentage = COALESCE(t.percentage, s.last_test_percentage),
		    last_test_passed     = COALESCE(t.passed, s.last_test_passed),
		    last_result_at       = t.occurred_at,
		    updated_at           = NOW()
		FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::int[],
			$4::int[],
			$5::bool[],
			$6::timestamptz[]
		) AS t (student_id, status, score, percentage, passed, occurred_at)
		WHERE s.id = t.student_id
		  AND (s.last_result_at IS NULL OR s.last_result_at <= t.occurred_at)
	`

	_, err := w.pool.Exec(ctx, query, students, statuses, scores, percentages, passed, occurred)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single update
// ----------------------------------------------------------------

func (w *ResultWorker) persistSingle(ctx context.Context, ev service.StudentResultEvent) error {
	_, err := w.pool.Exec(ctx,
		`UPDATE students
		 SET test_status          = $2,
		     last_test_score      = COALESCE($3, last_test_score),
		     last_test_percentage = COALESCE($4, last_test_percentage),
		     last_test_passed     = COALESCE($5, last_test_passed),
		     last_result_at       = $6,
		     updated_at           = NOW()
		 WHERE id = $1
		   AND (last_result_at IS NULL OR last_result_at <= $6)`,
		ev.StudentID, string(ev.Status), ev.Score, ev.Percentage, ev.IsPassed, ev.OccurredAt,
	)
	return err
}
