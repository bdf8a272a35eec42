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

// ProgressEvent is one live progress update published while a student works
// through an exam. Consumed by the WebSocket monitor for teacher dashboards.
type ProgressEvent struct {
	ExamID      string              `json:"exam_id"`
	UserKey     string              `json:"user_key"`
	Status      model.SessionStatus `json:"status"`
	Progress    int                 `json:"progress"`
	EarnedMarks float64             `json:"earned_marks"`
	TotalMarks  float64             `json:"total_marks"`
	At          time.Time           `json:"at"`
}

// ProgressPublisher broadcasts progress events over Redis pub/sub.
type ProgressPublisher struct {
	rdb *redis.Client
}

// NewProgressPublisher creates a new ProgressPublisher.
func NewProgressPublisher(rdb *redis.Client) *ProgressPublisher {
	return &ProgressPublisher{rdb: rdb}
}

// Publish sends one event on the exam's progress channel. Best-effort: the
// caller treats failures as non-fatal.
func (p *ProgressPublisher) Publish(ctx context.Context, ev ProgressEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode progress event: %w", err)
	}
	if err := p.rdb.Publish(ctx, config.CacheKey.ExamProgressChannel(ev.ExamID), raw).Err(); err != nil {
		return fmt.Errorf("publish progress: %w", err)
	}
	return nil
}
