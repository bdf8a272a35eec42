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

// LocalSessionRepository is the fast-path session store: one serialized
// session per (exam, user) key with exact-key get/set/delete semantics.
// Reads during an active attempt always hit this store first.
type LocalSessionRepository struct {
	rdb *redis.Client
}

// NewLocalSessionRepository creates a new LocalSessionRepository.
func NewLocalSessionRepository(rdb *redis.Client) *LocalSessionRepository {
	return &LocalSessionRepository{rdb: rdb}
}

// Get loads the session for (examID, userKey). Returns ErrNotFound when absent.
func (r *LocalSessionRepository) Get(ctx context.Context, examID, userKey string) (*model.ExamSession, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.SessionKey(examID, userKey)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s model.ExamSession
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Answers == nil {
		s.Answers = make(map[string]*model.StudentAnswer)
	}
	return &s, nil
}

// Put stores the full serialized session under its key. No TTL: sessions are
// never deleted automatically.
func (r *LocalSessionRepository) Put(ctx context.Context, userKey string, s *model.ExamSession) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, config.CacheKey.SessionKey(s.ExamID, userKey), raw, 0).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Delete removes the session for (examID, userKey). Deleting a missing key is
// not an error.
func (r *LocalSessionRepository) Delete(ctx context.Context, examID, userKey string) error {
	if err := r.rdb.Del(ctx, config.CacheKey.SessionKey(examID, userKey)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
