package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/examina/examina-backend/internal/config"
	"github.com/examina/examina-backend/internal/model"
	"github.com/examina/examina-backend/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestBeginReattachRecordsReloadEvent(t *testing.T) {
	rdb := newTestRedis(t)
	registry := session.NewRegistry()
	t.Cleanup(registry.CloseAll)
	svc := NewSessionService(registry, nil, nil, nil, rdb, zerolog.Nop())
	ctx := context.Background()

	def := &model.ExamDefinition{
		ID:              uuid.New(),
		Title:           "Algebra",
		DurationMinutes: 30,
		Questions: []model.Question{
			{ID: uuid.New(), Text: "q1", Options: []string{"A", "B", "C", "D"}, CorrectOption: 0},
		},
	}
	studentID := 7

	sess, err := session.New(def, studentID, session.Deps{
		Submit: func(_ context.Context, p *model.SubmitPayload) (*model.SubmitResult, error) {
			return &model.SubmitResult{SubmissionID: uuid.New(), Score: p.Score}, nil
		},
		Markers: newReloadMarkerStore(rdb, studentID),
		Log:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := registry.Put(sess); err != nil {
		t.Fatalf("register session: %v", err)
	}
	if err := sess.Begin(); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := sess.ReportUnload(ctx); err != nil {
		t.Fatalf("report unload: %v", err)
	}

	// The session survived in this process, so Begin re-attaches instead
	// of rebuilding. Consuming the marker on this path must leave the same
	// audit trail as a rebuild would.
	snap, err := svc.Begin(ctx, studentID, def.ID)
	if err != nil {
		t.Fatalf("re-attach begin: %v", err)
	}
	if snap.Phase != model.PhaseAwaitingConfirm || !snap.ReloadNotice {
		t.Fatalf("snapshot = phase %s, notice %t; want confirmation flow with reload notice", snap.Phase, snap.ReloadNotice)
	}

	items, err := rdb.LRange(ctx, config.WorkerKey.PersistIntegrityQueue, 0, -1).Result()
	if err != nil {
		t.Fatalf("read integrity queue: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("integrity queue length = %d, want 1", len(items))
	}
	var event struct {
		Kind      string `json:"kind"`
		StudentID int    `json:"student_id"`
	}
	if err := json.Unmarshal([]byte(items[0]), &event); err != nil {
		t.Fatalf("decode integrity event: %v", err)
	}
	if event.Kind != string(model.IntegrityReload) || event.StudentID != studentID {
		t.Fatalf("event = kind %q, student %d; want reload for student %d", event.Kind, event.StudentID, studentID)
	}
}
