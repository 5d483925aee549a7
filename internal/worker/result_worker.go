package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/prepora/prepora-backend/internal/config"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/prepora/prepora-backend/internal/repository"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes the result queue and writes graded attempts to
// PostgreSQL in batches. Once a result is durable, the session's autosave
// snapshot in Redis is cleared.
type ResultWorker struct {
	results *repository.ResultRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(results *repository.ResultRepository, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		results: results,
		rdb:     rdb,
		log:     log.With().Str("component", "result_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.ExamResult, 0, ResultBatchSize)
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
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var res model.ExamResult
			if err := json.Unmarshal([]byte(item[1]), &res); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &res)
		}
	}
}

// flushSafe bulk-inserts a batch, falling back to per-row inserts and
// finally requeueing anything that still fails.
func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.ExamResult) {
	if len(batch) == 0 {
		return
	}

	if err := w.results.BulkCreate(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result insert failed, using fallback")

		for _, res := range batch {
			if err := w.results.Create(ctx, res); err != nil {
				w.log.Error().Err(err).
					Str("exam_id", res.ExamID.String()).
					Int("user_id", res.UserID).
					Msg("single insert failed, requeueing")
				raw, _ := json.Marshal(res)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
				continue
			}
			w.clearAutosave(ctx, res)
		}
		return
	}

	w.log.Debug().Int("count", len(batch)).Msg("Results persisted")

	// Results are durable; drop the live answer snapshots.
	pipe := w.rdb.Pipeline()
	for _, res := range batch {
		pipe.Del(ctx, config.CacheKey.SessionAnswersKey(res.ExamID.String(), res.UserID))
	}
	_, _ = pipe.Exec(ctx)
}

func (w *ResultWorker) clearAutosave(ctx context.Context, res *model.ExamResult) {
	key := config.CacheKey.SessionAnswersKey(res.ExamID.String(), res.UserID)
	_ = w.rdb.Del(ctx, key).Err()
}
