package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

type mockAuditRepo struct {
	insertFn          func(ctx context.Context, log *model.AuditLog) error
	deleteOlderThanFn func(ctx context.Context, retentionDays int) (int64, error)
}

func (m *mockAuditRepo) Insert(ctx context.Context, log *model.AuditLog) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, log)
	}
	return nil
}

func (m *mockAuditRepo) DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if m.deleteOlderThanFn != nil {
		return m.deleteOlderThanFn(ctx, retentionDays)
	}
	return 0, nil
}

var _ repository.AuditRepository = (*mockAuditRepo)(nil)

func TestRecord(t *testing.T) {
	ctx := context.Background()

	var saved *model.AuditLog
	repo := &mockAuditRepo{
		insertFn: func(ctx context.Context, log *model.AuditLog) error {
			saved = log
			return nil
		},
	}
	recorder := NewRecorder(repo)

	recorder.Record(ctx, "op-1", "guard@x.com", "gate_out", "pass-1", "outpass",
		map[string]any{"student_id": "20CS1234"})

	if saved == nil {
		t.Fatal("audit log was not persisted")
	}
	if saved.Action != "GATE_OUT" {
		t.Errorf("action = %q, want GATE_OUT", saved.Action)
	}
	if saved.ActorID != "op-1" || saved.ActorEmail != "guard@x.com" {
		t.Errorf("actor = %s/%s, want op-1/guard@x.com", saved.ActorID, saved.ActorEmail)
	}
	if saved.TargetID != "pass-1" || saved.TargetType != "outpass" {
		t.Errorf("target = %s/%s, want pass-1/outpass", saved.TargetID, saved.TargetType)
	}
	if saved.ID == "" {
		t.Error("ID should be generated")
	}

	var details map[string]any
	if err := json.Unmarshal([]byte(saved.Details), &details); err != nil {
		t.Fatalf("details is not valid JSON: %v", err)
	}
	if details["student_id"] != "20CS1234" {
		t.Errorf("details = %v, want student_id 20CS1234", details)
	}
}

func TestRecord_NilDetails(t *testing.T) {
	ctx := context.Background()

	var saved *model.AuditLog
	repo := &mockAuditRepo{
		insertFn: func(ctx context.Context, log *model.AuditLog) error {
			saved = log
			return nil
		},
	}
	recorder := NewRecorder(repo)

	recorder.Record(ctx, "op-1", "guard@x.com", "gate_in", "pass-1", "outpass", nil)

	if saved == nil {
		t.Fatal("audit log was not persisted")
	}
	if saved.Details != "{}" {
		t.Errorf("details = %q, want empty JSON object", saved.Details)
	}
}

func TestRecord_InsertFailureDoesNotPanic(t *testing.T) {
	ctx := context.Background()

	repo := &mockAuditRepo{
		insertFn: func(ctx context.Context, log *model.AuditLog) error {
			return errors.New("store down")
		},
	}
	recorder := NewRecorder(repo)

	// 監査の失敗は呼び出し元を妨げない。エラーを返すシグネチャ自体を持たない。
	recorder.Record(ctx, "op-1", "guard@x.com", "gate_out", "pass-1", "outpass", nil)
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()

	var gotDays int
	repo := &mockAuditRepo{
		deleteOlderThanFn: func(ctx context.Context, retentionDays int) (int64, error) {
			gotDays = retentionDays
			return 42, nil
		},
	}
	recorder := NewRecorder(repo)

	count, err := recorder.Cleanup(ctx, 90)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if gotDays != 90 {
		t.Errorf("retention days = %d, want 90", gotDays)
	}
	if count != 42 {
		t.Errorf("count = %d, want 42", count)
	}
}
