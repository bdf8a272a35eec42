package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightsteps/brightsteps-backend/internal/config"
	"github.com/brightsteps/brightsteps-backend/internal/model"
)

// BackupPayload is one queued remote-backup retry item. CapturedAt records
// when the snapshot was taken so the worker can refuse to overwrite rows
// written after it.
type BackupPayload struct {
	UserKey    string             `json:"user_key"`
	Session    *model.ExamSession `json:"session"`
	CapturedAt time.Time          `json:"captured_at"`
}

// BackupQueue holds session snapshots whose remote backup failed, for
// background retry by the backup worker. The in-memory session state is never
// rolled back when a remote write fails; the snapshot just lands here.
type BackupQueue struct {
	rdb *redis.Client
}

// NewBackupQueue creates a new BackupQueue.
func NewBackupQueue(rdb *redis.Client) *BackupQueue {
	return &BackupQueue{rdb: rdb}
}

// Enqueue pushes a failed backup snapshot onto the retry queue, stamped with
// the current time as its capture time.
func (q *BackupQueue) Enqueue(ctx context.Context, userKey string, s *model.ExamSession) error {
	raw, err := json.Marshal(BackupPayload{UserKey: userKey, Session: s, CapturedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("encode backup payload: %w", err)
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.BackupRetryQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue backup: %w", err)
	}
	return nil
}
