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

// ArtifactWorker consumes the artifact queue and writes saved questions,
// notes and flashcards to PostgreSQL one at a time. Items are independent:
// a failed insert requeues that item only.
type ArtifactWorker struct {
	artifacts *repository.ArtifactRepository
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewArtifactWorker creates a new ArtifactWorker.
func NewArtifactWorker(artifacts *repository.ArtifactRepository, rdb *redis.Client, log zerolog.Logger) *ArtifactWorker {
	return &ArtifactWorker{
		artifacts: artifacts,
		rdb:       rdb,
		log:       log.With().Str("component", "artifact_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ArtifactWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ArtifactWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ArtifactWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistArtifactsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var a model.Artifact
	if err := json.Unmarshal([]byte(result[1]), &a); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persist(ctx, &a); err != nil {
		w.log.Error().Err(err).
			Int("user_id", a.UserID).
			Str("kind", string(a.Kind)).
			Msg("Persist error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.PersistArtifactsQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *ArtifactWorker) persist(ctx context.Context, a *model.Artifact) error {
	// A malformed artifact would fail forever; drop it instead of
	// poisoning the queue.
	if err := a.Validate(); err != nil {
		w.log.Error().Err(err).Int("user_id", a.UserID).Msg("Invalid artifact discarded")
		return nil
	}
	return w.artifacts.Create(ctx, a)
}

// drain processes all remaining items in the queue before shutdown.
func (w *ArtifactWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistArtifactsQueue).Result()
		if err != nil {
			break
		}

		var a model.Artifact
		if err := json.Unmarshal([]byte(result), &a); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persist(ctx, &a); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistArtifactsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
