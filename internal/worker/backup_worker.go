package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/brightsteps/brightsteps-backend/internal/config"
	"github.com/brightsteps/brightsteps-backend/internal/model"
	"github.com/brightsteps/brightsteps-backend/internal/repository"
)

// RetryStore is the conditional-write surface the worker needs from the
// backup store. A retried snapshot must never overwrite a row written after
// the snapshot was captured.
type RetryStore interface {
	UpsertIfNewer(ctx context.Context, userKey string, s *model.ExamSession, capturedAt time.Time) (bool, error)
}

// BackupWorker consumes the backup retry queue and re-upserts session
// snapshots whose remote backup failed at debounce time. Writes are
// conditional on the snapshot's capture time, so a stale pre-completion
// snapshot cannot regress a row that a later direct upsert (completion,
// abandon) already replaced.
type BackupWorker struct {
	backups RetryStore
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewBackupWorker creates a new BackupWorker.
func NewBackupWorker(backups RetryStore, rdb *redis.Client, log zerolog.Logger) *BackupWorker {
	return &BackupWorker{
		backups: backups,
		rdb:     rdb,
		log:     log.With().Str("component", "backup_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *BackupWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *BackupWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.BackupRetryQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	if requeue := w.processPayload(ctx, []byte(result[1])); requeue {
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.BackupRetryQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

// processPayload applies one retry item. Returns true when the item should go
// back on the queue: only store errors requeue; malformed items and snapshots
// superseded by a newer row are dropped.
func (w *BackupWorker) processPayload(ctx context.Context, raw []byte) bool {
	var payload repository.BackupPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return false
	}
	if payload.Session == nil {
		return false
	}

	applied, err := w.backups.UpsertIfNewer(ctx, payload.UserKey, payload.Session, payload.CapturedAt)
	if err != nil {
		w.log.Error().Err(err).
			Str("exam_id", payload.Session.ExamID).
			Str("user_key", payload.UserKey).
			Msg("Backup retry failed, requeueing in 5s")
		return true
	}
	if !applied {
		w.log.Debug().
			Str("exam_id", payload.Session.ExamID).
			Str("user_key", payload.UserKey).
			Msg("Stale snapshot superseded by a newer row, dropped")
	}
	return false
}

// drain processes all remaining items in the queue before shutdown.
func (w *BackupWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.BackupRetryQueue).Result()
		if err != nil {
			break
		}

		if requeue := w.processPayload(ctx, []byte(result)); requeue {
			w.rdb.RPush(ctx, config.WorkerKey.BackupRetryQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
