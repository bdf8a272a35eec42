package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/brightsteps/brightsteps-backend/internal/config"
	"github.com/brightsteps/brightsteps-backend/internal/model"
)

// ExamProvider reads parsed exam documents published by the authoring system.
// Parsing raw exam text is not this service's concern: documents arrive
// already structured under a well-known cache key.
type ExamProvider struct {
	rdb *redis.Client
}

// NewExamProvider creates a new ExamProvider.
func NewExamProvider(rdb *redis.Client) *ExamProvider {
	return &ExamProvider{rdb: rdb}
}

// GetExam loads the exam document for examID. Returns ErrNotFound when the
// authoring system has not published it.
func (p *ExamProvider) GetExam(ctx context.Context, examID string) (*model.Exam, error) {
	raw, err := p.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam payload: %w", err)
	}

	var exam model.Exam
	if err := json.Unmarshal([]byte(raw), &exam); err != nil {
		return nil, fmt.Errorf("decode exam payload: %w", err)
	}
	if exam.ID == "" {
		exam.ID = examID
	}
	return &exam, nil
}
