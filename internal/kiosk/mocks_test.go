package kiosk

import (
	"context"
	"time"

	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

// --- モック定義 ---

type mockStudentRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.Student, error)
	findByStudentIDFn    func(ctx context.Context, studentID string) (*model.Student, error)
	findByEmailFn        func(ctx context.Context, email string) (*model.Student, error)
	listAllFn            func(ctx context.Context) ([]*model.Student, error)
	createWithIdentityFn func(ctx context.Context, student *model.Student, identity *model.Identity) error
	updateProfileFn      func(ctx context.Context, student *model.Student) error
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*model.Student, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockStudentRepo) FindByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	if m.findByStudentIDFn != nil {
		return m.findByStudentIDFn(ctx, studentID)
	}
	return nil, nil
}

func (m *mockStudentRepo) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockStudentRepo) ListAll(ctx context.Context) ([]*model.Student, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockStudentRepo) CreateWithIdentity(ctx context.Context, student *model.Student, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, student, identity)
	}
	return nil
}

func (m *mockStudentRepo) UpdateProfile(ctx context.Context, student *model.Student) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, student)
	}
	return nil
}

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

// --- compile-time interface checks ---
var _ repository.StudentRepository = (*mockStudentRepo)(nil)
var _ repository.OutpassRepository = (*mockOutpassRepo)(nil)
