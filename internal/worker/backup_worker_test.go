package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/brightsteps/brightsteps-backend/internal/model"
	"github.com/brightsteps/brightsteps-backend/internal/repository"
)

// fakeRetryStore mimics the conditional upsert: an item applies only when the
// stored row was not written after the snapshot's capture time.
type fakeRetryStore struct {
	rowUpdatedAt time.Time
	row          *model.ExamSession
	err          error
	calls        int
}

func (f *fakeRetryStore) UpsertIfNewer(_ context.Context, _ string, s *model.ExamSession, capturedAt time.Time) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if f.rowUpdatedAt.After(capturedAt) {
		return false, nil
	}
	f.row = s.Clone()
	f.rowUpdatedAt = capturedAt
	return true, nil
}

func newTestWorker(store RetryStore) *BackupWorker {
	return NewBackupWorker(store, nil, zerolog.Nop())
}

func encodePayload(t *testing.T, s *model.ExamSession, capturedAt time.Time) []byte {
	t.Helper()
	raw, err := json.Marshal(repository.BackupPayload{
		UserKey:    "student-1",
		Session:    s,
		CapturedAt: capturedAt,
	})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return raw
}

func inProgressSession(now time.Time) *model.ExamSession {
	return &model.ExamSession{
		ExamID:    "exam-1",
		Answers:   map[string]*model.StudentAnswer{},
		StartedAt: now,
		Status:    model.SessionStatusInProgress,
	}
}

// A pre-completion snapshot queued before the row was completed must be
// dropped, not written: the completed row would otherwise regress to
// IN_PROGRESS with its heuristic marks gone.
func TestProcessPayload_StaleSnapshotDropped(t *testing.T) {
	t0 := time.Now()
	completedAt := t0.Add(2 * time.Minute)

	completed := inProgressSession(t0)
	completed.Status = model.SessionStatusCompleted
	completed.CompletedAt = &completedAt
	completed.EarnedMarks = 8

	store := &fakeRetryStore{row: completed, rowUpdatedAt: completedAt}
	w := newTestWorker(store)

	stale := inProgressSession(t0)
	stale.EarnedMarks = 5
	raw := encodePayload(t, stale, t0.Add(time.Minute))

	if requeue := w.processPayload(context.Background(), raw); requeue {
		t.Fatal("superseded snapshot must not be requeued")
	}
	if store.calls != 1 {
		t.Fatalf("store calls = %d, want 1", store.calls)
	}
	if store.row.Status != model.SessionStatusCompleted || store.row.EarnedMarks != 8 {
		t.Fatalf("completed row regressed: %+v", store.row)
	}
}

func TestProcessPayload_AppliesWhenNewest(t *testing.T) {
	t0 := time.Now()
	store := &fakeRetryStore{rowUpdatedAt: t0}
	w := newTestWorker(store)

	snap := inProgressSession(t0)
	snap.EarnedMarks = 5
	raw := encodePayload(t, snap, t0.Add(time.Minute))

	if requeue := w.processPayload(context.Background(), raw); requeue {
		t.Fatal("applied snapshot must not be requeued")
	}
	if store.row == nil || store.row.EarnedMarks != 5 {
		t.Fatalf("snapshot not applied: %+v", store.row)
	}
}

func TestProcessPayload_StoreErrorRequeues(t *testing.T) {
	store := &fakeRetryStore{err: errors.New("backup store down")}
	w := newTestWorker(store)

	raw := encodePayload(t, inProgressSession(time.Now()), time.Now())

	if requeue := w.processPayload(context.Background(), raw); !requeue {
		t.Fatal("store error must requeue the item")
	}
}

func TestProcessPayload_MalformedDropped(t *testing.T) {
	store := &fakeRetryStore{}
	w := newTestWorker(store)

	if requeue := w.processPayload(context.Background(), []byte("{not json")); requeue {
		t.Fatal("malformed item must be dropped")
	}
	if requeue := w.processPayload(context.Background(), []byte(`{"user_key":"x"}`)); requeue {
		t.Fatal("item without a session must be dropped")
	}
	if store.calls != 0 {
		t.Fatalf("store calls = %d, want 0", store.calls)
	}
}
