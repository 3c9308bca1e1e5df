// Package outpass は外出許可証の申請・承認フローを提供する。
package outpass

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

// AuditRecorder は承認フローの監査記録インターフェース。
type AuditRecorder interface {
	Record(ctx context.Context, actorID, actorEmail, action, targetID, targetType string, details map[string]any)
}

// Notifier は申請者への通知送信インターフェース。
type Notifier interface {
	Notify(ctx context.Context, userID, message string)
}

// Service は外出許可証に関するビジネスロジックを提供する。
type Service struct {
	repo     repository.OutpassRepository
	audit    AuditRecorder // nil可
	notifier Notifier      // nil可
}

// NewService はServiceを生成する。audit/notifierはnilを許容する。
func NewService(repo repository.OutpassRepository, audit AuditRecorder, notifier Notifier) *Service {
	return &Service{repo: repo, audit: audit, notifier: notifier}
}

// CreateRequest は寮生からの外出許可申請を作成する。ステータスはpendingで始まる。
// 帰寮予定時刻が外出予定時刻より前の場合はINVALID_TIME_RANGEを返す。
func (s *Service) CreateRequest(ctx context.Context, student *model.Student, reason string, fromTime, toTime time.Time) (*model.Outpass, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("reason is required")
	}
	if !toTime.After(fromTime) {
		return nil, model.NewInvalidTimeRangeError()
	}

	now := time.Now()
	outpass := &model.Outpass{
		ID:          uuid.New().String(),
		UserID:      student.ID,
		Reason:      reason,
		FromTime:    fromTime,
		ToTime:      toTime,
		Status:      model.OutpassStatusPending,
		RequestedAt: now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, outpass); err != nil {
		return nil, fmt.Errorf("failed to create outpass: %w", err)
	}

	slog.Info("outpass requested",
		slog.String("outpass_id", outpass.ID),
		slog.String("user_id", student.ID),
	)
	return outpass, nil
}

// Approve は承認待ちの許可証を承認する。
// 同一寮生にapprovedの許可証が既に存在する場合はOUTPASS_CONFLICTを返す。
// この検査が単一アクティブ不変条件を保証する。
func (s *Service) Approve(ctx context.Context, approver *model.Student, outpassID string) (*model.Outpass, error) {
	outpass, err := s.repo.FindByID(ctx, outpassID)
	if err != nil {
		return nil, fmt.Errorf("failed to find outpass: %w", err)
	}
	if outpass == nil {
		return nil, model.NewOutpassNotFoundError(outpassID)
	}
	if outpass.Status != model.OutpassStatusPending {
		return nil, model.NewOutpassNotFoundError(outpassID)
	}

	count, err := s.repo.CountApprovedByUserID(ctx, outpass.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count approved outpasses: %w", err)
	}
	if count > 0 {
		return nil, model.NewOutpassConflictError()
	}

	if err := s.repo.UpdateStatus(ctx, outpassID, model.OutpassStatusApproved); err != nil {
		return nil, fmt.Errorf("failed to approve outpass: %w", err)
	}
	outpass.Status = model.OutpassStatusApproved

	slog.Info("outpass approved",
		slog.String("outpass_id", outpassID),
		slog.String("approver_id", approver.ID),
	)
	if s.audit != nil {
		s.audit.Record(ctx, approver.ID, approver.Email, "approve_outpass", outpassID, "outpass",
			map[string]any{"user_id": outpass.UserID})
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, outpass.UserID, "外出許可申請が承認されました。")
	}
	return outpass, nil
}

// Reject は承認待ちの許可証を却下する。
func (s *Service) Reject(ctx context.Context, approver *model.Student, outpassID string) (*model.Outpass, error) {
	outpass, err := s.repo.FindByID(ctx, outpassID)
	if err != nil {
		return nil, fmt.Errorf("failed to find outpass: %w", err)
	}
	if outpass == nil {
		return nil, model.NewOutpassNotFoundError(outpassID)
	}
	if outpass.Status != model.OutpassStatusPending {
		return nil, model.NewOutpassNotFoundError(outpassID)
	}

	if err := s.repo.UpdateStatus(ctx, outpassID, model.OutpassStatusRejected); err != nil {
		return nil, fmt.Errorf("failed to reject outpass: %w", err)
	}
	outpass.Status = model.OutpassStatusRejected

	slog.Info("outpass rejected",
		slog.String("outpass_id", outpassID),
		slog.String("approver_id", approver.ID),
	)
	if s.audit != nil {
		s.audit.Record(ctx, approver.ID, approver.Email, "reject_outpass", outpassID, "outpass",
			map[string]any{"user_id": outpass.UserID})
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, outpass.UserID, "外出許可申請が却下されました。")
	}
	return outpass, nil
}

// ListOwn は指定寮生の許可証を申請日時降順で返す。
func (s *Service) ListOwn(ctx context.Context, userID string, limit int) ([]*model.Outpass, error) {
	if limit <= 0 {
		limit = 50
	}
	outpasses, err := s.repo.ListByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outpasses: %w", err)
	}
	return outpasses, nil
}

// ListPending は承認待ちの許可証を申請日時昇順で返す（寮監用）。
func (s *Service) ListPending(ctx context.Context) ([]*model.Outpass, error) {
	outpasses, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending outpasses: %w", err)
	}
	return outpasses, nil
}
