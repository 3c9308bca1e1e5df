package outpass

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

type mockOutpassRepo struct {
	findByIDFn             func(ctx context.Context, id string) (*model.Outpass, error)
	findActiveByUserIDFn   func(ctx context.Context, userID string) (*model.Outpass, error)
	countApprovedByUserFn  func(ctx context.Context, userID string) (int, error)
	createFn               func(ctx context.Context, outpass *model.Outpass) error
	updateStatusFn         func(ctx context.Context, id string, status model.OutpassStatus) error
	listByUserIDFn         func(ctx context.Context, userID string, limit int) ([]*model.Outpass, error)
	listPendingFn          func(ctx context.Context) ([]*model.Outpass, error)
	markGateOutFn          func(ctx context.Context, id string) (bool, error)
	markGateInFn           func(ctx context.Context, id string) (bool, error)
	markOverdueCompletedFn func(ctx context.Context, grace time.Duration) (int64, error)
}

func (m *mockOutpassRepo) FindByID(ctx context.Context, id string) (*model.Outpass, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockOutpassRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Outpass, error) {
	if m.findActiveByUserIDFn != nil {
		return m.findActiveByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockOutpassRepo) CountApprovedByUserID(ctx context.Context, userID string) (int, error) {
	if m.countApprovedByUserFn != nil {
		return m.countApprovedByUserFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockOutpassRepo) Create(ctx context.Context, outpass *model.Outpass) error {
	if m.createFn != nil {
		return m.createFn(ctx, outpass)
	}
	return nil
}

func (m *mockOutpassRepo) UpdateStatus(ctx context.Context, id string, status model.OutpassStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockOutpassRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Outpass, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockOutpassRepo) ListPending(ctx context.Context) ([]*model.Outpass, error) {
	if m.listPendingFn != nil {
		return m.listPendingFn(ctx)
	}
	return nil, nil
}

func (m *mockOutpassRepo) MarkGateOut(ctx context.Context, id string) (bool, error) {
	if m.markGateOutFn != nil {
		return m.markGateOutFn(ctx, id)
	}
	return false, nil
}

func (m *mockOutpassRepo) MarkGateIn(ctx context.Context, id string) (bool, error) {
	if m.markGateInFn != nil {
		return m.markGateInFn(ctx, id)
	}
	return false, nil
}

func (m *mockOutpassRepo) MarkOverdueCompleted(ctx context.Context, grace time.Duration) (int64, error) {
	if m.markOverdueCompletedFn != nil {
		return m.markOverdueCompletedFn(ctx, grace)
	}
	return 0, nil
}

var _ repository.OutpassRepository = (*mockOutpassRepo)(nil)

type mockAudit struct {
	actions []string
}

func (m *mockAudit) Record(ctx context.Context, actorID, actorEmail, action, targetID, targetType string, details map[string]any) {
	m.actions = append(m.actions, action)
}

type mockNotifier struct {
	messages map[string][]string
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{messages: make(map[string][]string)}
}

func (m *mockNotifier) Notify(ctx context.Context, userID, message string) {
	m.messages[userID] = append(m.messages[userID], message)
}

func apiErrCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	return apiErr.Code
}

func testStudent() *model.Student {
	return &model.Student{ID: "u-1", StudentID: "20CS1234", Email: "a@x.com", Role: model.RoleStudent}
}

func testWarden() *model.Student {
	return &model.Student{ID: "w-1", StudentID: "WARDEN01", Email: "w@x.com", Role: model.RoleWarden}
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()

	var created *model.Outpass
	repo := &mockOutpassRepo{
		createFn: func(ctx context.Context, outpass *model.Outpass) error {
			created = outpass
			return nil
		},
	}
	svc := NewService(repo, nil, nil)

	from := time.Now().Add(1 * time.Hour)
	to := from.Add(4 * time.Hour)
	outpass, err := svc.CreateRequest(ctx, testStudent(), "帰省", from, to)
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}

	if created == nil {
		t.Fatal("outpass was not persisted")
	}
	if outpass.Status != model.OutpassStatusPending {
		t.Errorf("status = %v, want pending", outpass.Status)
	}
	if outpass.UserID != "u-1" {
		t.Errorf("user ID = %q, want u-1", outpass.UserID)
	}
	if outpass.ID == "" {
		t.Error("ID should be generated")
	}
	if outpass.GateOutTime != nil || outpass.GateInTime != nil {
		t.Error("gate times must start unset")
	}
}

func TestCreateRequest_InvalidTimeRange(t *testing.T) {
	ctx := context.Background()

	persisted := false
	repo := &mockOutpassRepo{
		createFn: func(ctx context.Context, outpass *model.Outpass) error {
			persisted = true
			return nil
		},
	}
	svc := NewService(repo, nil, nil)

	from := time.Now().Add(4 * time.Hour)
	tests := []struct {
		name string
		to   time.Time
	}{
		{"帰寮が外出より前", from.Add(-1 * time.Hour)},
		{"帰寮と外出が同時刻", from},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRequest(ctx, testStudent(), "買い物", from, tt.to)
			if code := apiErrCode(t, err); code != model.ErrCodeInvalidTimeRange {
				t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidTimeRange)
			}
		})
	}
	if persisted {
		t.Error("invalid request must not be persisted")
	}
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	var updatedStatus model.OutpassStatus
	repo := &mockOutpassRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Outpass, error) {
			return &model.Outpass{ID: id, UserID: "u-1", Status: model.OutpassStatusPending}, nil
		},
		countApprovedByUserFn: func(ctx context.Context, userID string) (int, error) {
			return 0, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.OutpassStatus) error {
			updatedStatus = status
			return nil
		},
	}
	audit := &mockAudit{}
	notifier := newMockNotifier()
	svc := NewService(repo, audit, notifier)

	outpass, err := svc.Approve(ctx, testWarden(), "op-1")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	if updatedStatus != model.OutpassStatusApproved {
		t.Errorf("persisted status = %v, want approved", updatedStatus)
	}
	if outpass.Status != model.OutpassStatusApproved {
		t.Errorf("returned status = %v, want approved", outpass.Status)
	}
	if len(audit.actions) != 1 || audit.actions[0] != "approve_outpass" {
		t.Errorf("audit actions = %v, want [approve_outpass]", audit.actions)
	}
	if len(notifier.messages["u-1"]) != 1 {
		t.Errorf("notifications = %v, want 1 message to u-1", notifier.messages)
	}
}

func TestApprove_ExistingApprovedConflicts(t *testing.T) {
	ctx := context.Background()

	updated := false
	repo := &mockOutpassRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Outpass, error) {
			return &model.Outpass{ID: id, UserID: "u-1", Status: model.OutpassStatusPending}, nil
		},
		countApprovedByUserFn: func(ctx context.Context, userID string) (int, error) {
			return 1, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.OutpassStatus) error {
			updated = true
			return nil
		},
	}
	svc := NewService(repo, nil, nil)

	_, err := svc.Approve(ctx, testWarden(), "op-1")
	if code := apiErrCode(t, err); code != model.ErrCodeOutpassConflict {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeOutpassConflict)
	}
	if updated {
		t.Error("conflicting approval must not update status")
	}
}

func TestApprove_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&mockOutpassRepo{}, nil, nil)

	_, err := svc.Approve(ctx, testWarden(), "missing")
	if code := apiErrCode(t, err); code != model.ErrCodeOutpassNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeOutpassNotFound)
	}
}

func TestApprove_NonPendingNotFound(t *testing.T) {
	ctx := context.Background()

	repo := &mockOutpassRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Outpass, error) {
			return &model.Outpass{ID: id, UserID: "u-1", Status: model.OutpassStatusCompleted}, nil
		},
	}
	svc := NewService(repo, nil, nil)

	_, err := svc.Approve(ctx, testWarden(), "op-done")
	if code := apiErrCode(t, err); code != model.ErrCodeOutpassNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeOutpassNotFound)
	}
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	var updatedStatus model.OutpassStatus
	repo := &mockOutpassRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Outpass, error) {
			return &model.Outpass{ID: id, UserID: "u-1", Status: model.OutpassStatusPending}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.OutpassStatus) error {
			updatedStatus = status
			return nil
		},
	}
	notifier := newMockNotifier()
	svc := NewService(repo, nil, notifier)

	outpass, err := svc.Reject(ctx, testWarden(), "op-1")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	if updatedStatus != model.OutpassStatusRejected {
		t.Errorf("persisted status = %v, want rejected", updatedStatus)
	}
	if outpass.Status != model.OutpassStatusRejected {
		t.Errorf("returned status = %v, want rejected", outpass.Status)
	}
	if len(notifier.messages["u-1"]) != 1 {
		t.Error("rejection should notify the requester")
	}
}

func TestListOwn_DefaultLimit(t *testing.T) {
	ctx := context.Background()

	var gotLimit int
	repo := &mockOutpassRepo{
		listByUserIDFn: func(ctx context.Context, userID string, limit int) ([]*model.Outpass, error) {
			gotLimit = limit
			return []*model.Outpass{{ID: "op-1"}}, nil
		},
	}
	svc := NewService(repo, nil, nil)

	outpasses, err := svc.ListOwn(ctx, "u-1", 0)
	if err != nil {
		t.Fatalf("ListOwn() error = %v", err)
	}
	if gotLimit != 50 {
		t.Errorf("limit = %d, want default 50", gotLimit)
	}
	if len(outpasses) != 1 {
		t.Errorf("len = %d, want 1", len(outpasses))
	}
}

func TestListPending(t *testing.T) {
	ctx := context.Background()

	repo := &mockOutpassRepo{
		listPendingFn: func(ctx context.Context) ([]*model.Outpass, error) {
			return []*model.Outpass{{ID: "op-1"}, {ID: "op-2"}}, nil
		},
	}
	svc := NewService(repo, nil, nil)

	outpasses, err := svc.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(outpasses) != 2 {
		t.Errorf("len = %d, want 2", len(outpasses))
	}
}
