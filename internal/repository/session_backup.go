package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightsteps/brightsteps-backend/internal/model"
)

// BackupSessionRepository is the authoritative off-device session store. The
// full session travels as a JSON blob; status, timestamps and mark totals are
// denormalized into columns so dashboards can query without deserializing.
type BackupSessionRepository struct {
	pool *pgxpool.Pool
}

// NewBackupSessionRepository creates a new BackupSessionRepository.
func NewBackupSessionRepository(pool *pgxpool.Pool) *BackupSessionRepository {
	return &BackupSessionRepository{pool: pool}
}

// GetInProgress retrieves the in-progress session for (examID, userKey),
// used for cross-device recovery. Returns ErrNotFound when none exists.
func (r *BackupSessionRepository) GetInProgress(ctx context.Context, examID, userKey string) (*model.ExamSession, error) {
	var (
		id      uuid.UUID
		payload []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, payload
		 FROM exam_session_backups
		 WHERE exam_id = $1 AND user_key = $2 AND status = $3`,
		examID, userKey, model.SessionStatusInProgress,
	).Scan(&id, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}

	var s model.ExamSession
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("decode backup payload: %w", err)
	}
	if s.Answers == nil {
		s.Answers = make(map[string]*model.StudentAnswer)
	}
	s.RemoteID = &id
	return &s, nil
}

// Upsert creates or replaces the backup row for (examID, userKey) and fills
// in the session's RemoteID from the stored row.
func (r *BackupSessionRepository) Upsert(ctx context.Context, userKey string, s *model.ExamSession) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode backup payload: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO exam_session_backups
			(exam_id, user_key, status, started_at, completed_at, total_marks, earned_marks, payload, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (exam_id, user_key) DO UPDATE
		 SET status = EXCLUDED.status,
		     completed_at = EXCLUDED.completed_at,
		     total_marks = EXCLUDED.total_marks,
		     earned_marks = EXCLUDED.earned_marks,
		     payload = EXCLUDED.payload,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id`,
		s.ExamID, userKey, s.Status, s.StartedAt, s.CompletedAt,
		s.TotalMarks, s.EarnedMarks, payload, time.Now(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert backup: %w", err)
	}

	s.RemoteID = &id
	return nil
}

// UpsertIfNewer writes a retried snapshot only when the stored row has not
// been written after the snapshot was captured. A later write (a completed
// attempt upserted directly, or a fresher retry) wins and the stale snapshot
// is dropped. Returns false when the row was left untouched.
func (r *BackupSessionRepository) UpsertIfNewer(ctx context.Context, userKey string, s *model.ExamSession, capturedAt time.Time) (bool, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("encode backup payload: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO exam_session_backups
			(exam_id, user_key, status, started_at, completed_at, total_marks, earned_marks, payload, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (exam_id, user_key) DO UPDATE
		 SET status = EXCLUDED.status,
		     completed_at = EXCLUDED.completed_at,
		     total_marks = EXCLUDED.total_marks,
		     earned_marks = EXCLUDED.earned_marks,
		     payload = EXCLUDED.payload,
		     updated_at = EXCLUDED.updated_at
		 WHERE exam_session_backups.updated_at <= EXCLUDED.updated_at
		 RETURNING id`,
		s.ExamID, userKey, s.Status, s.StartedAt, s.CompletedAt,
		s.TotalMarks, s.EarnedMarks, payload, capturedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("upsert backup: %w", err)
	}

	s.RemoteID = &id
	return true, nil
}

// Delete removes the backup row for (examID, userKey).
func (r *BackupSessionRepository) Delete(ctx context.Context, examID, userKey string) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM exam_session_backups WHERE exam_id = $1 AND user_key = $2`,
		examID, userKey,
	); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}

// ExamSessionSummary is one denormalized row for dashboard listings.
type ExamSessionSummary struct {
	ID          uuid.UUID           `json:"id"`
	UserKey     string              `json:"user_key"`
	Status      model.SessionStatus `json:"status"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	TotalMarks  float64             `json:"total_marks"`
	EarnedMarks float64             `json:"earned_marks"`
}

// ListByExam returns paginated session summaries for an exam without touching
// the payload blob. Used by teacher dashboards.
func (r *BackupSessionRepository) ListByExam(ctx context.Context, examID string, page, perPage int) ([]ExamSessionSummary, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_session_backups WHERE exam_id = $1`, examID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count backups: %w", err)
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_key, status, started_at, completed_at, total_marks, earned_marks
		 FROM exam_session_backups
		 WHERE exam_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2 OFFSET $3`,
		examID, perPage, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var summaries []ExamSessionSummary
	for rows.Next() {
		var s ExamSessionSummary
		if err := rows.Scan(&s.ID, &s.UserKey, &s.Status, &s.StartedAt, &s.CompletedAt, &s.TotalMarks, &s.EarnedMarks); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}
