// Package notice は掲示板のお知らせとユーザー通知を提供する。
package notice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
	"github.com/hitoshi/hostelman/internal/security"
)

// AuditRecorder はお知らせ操作の監査記録インターフェース。
type AuditRecorder interface {
	Record(ctx context.Context, actorID, actorEmail, action, targetID, targetType string, details map[string]any)
}

// Service はお知らせ・通知に関するビジネスロジックを提供する。
type Service struct {
	noticeRepo       repository.NoticeRepository
	notificationRepo repository.NotificationRepository
	sanitizer        security.ContentSanitizerService
	audit            AuditRecorder // nil可
}

// NewService はServiceを生成する。auditはnilを許容する。
func NewService(
	noticeRepo repository.NoticeRepository,
	notificationRepo repository.NotificationRepository,
	sanitizer security.ContentSanitizerService,
	audit AuditRecorder,
) *Service {
	return &Service{
		noticeRepo:       noticeRepo,
		notificationRepo: notificationRepo,
		sanitizer:        sanitizer,
		audit:            audit,
	}
}

// PostNotice はお知らせを掲示する（管理者用）。
// 本文HTMLはサニタイズしてから保存する。
func (s *Service) PostNotice(ctx context.Context, author *model.Student, title, bodyHTML string) (*model.Notice, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	now := time.Now()
	notice := &model.Notice{
		ID:        uuid.New().String(),
		AuthorID:  author.ID,
		Title:     title,
		BodyHTML:  s.sanitizer.Sanitize(bodyHTML),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.noticeRepo.Create(ctx, notice); err != nil {
		return nil, fmt.Errorf("failed to create notice: %w", err)
	}

	slog.Info("notice posted",
		slog.String("notice_id", notice.ID),
		slog.String("author_id", author.ID),
	)
	if s.audit != nil {
		s.audit.Record(ctx, author.ID, author.Email, "post_notice", notice.ID, "notice",
			map[string]any{"title": title})
	}
	return notice, nil
}

// ListNotices はお知らせを作成日時降順で返す。
func (s *Service) ListNotices(ctx context.Context, limit int) ([]*model.Notice, error) {
	if limit <= 0 {
		limit = 20
	}
	notices, err := s.noticeRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notices: %w", err)
	}
	return notices, nil
}

// GetNotice は指定IDのお知らせを返す。
func (s *Service) GetNotice(ctx context.Context, id string) (*model.Notice, error) {
	notice, err := s.noticeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find notice: %w", err)
	}
	if notice == nil {
		return nil, model.NewNoticeNotFoundError(id)
	}
	return notice, nil
}

// DeleteNotice はお知らせを削除する（管理者用）。
func (s *Service) DeleteNotice(ctx context.Context, actor *model.Student, id string) error {
	notice, err := s.noticeRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find notice: %w", err)
	}
	if notice == nil {
		return model.NewNoticeNotFoundError(id)
	}

	if err := s.noticeRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete notice: %w", err)
	}

	slog.Info("notice deleted",
		slog.String("notice_id", id),
		slog.String("actor_id", actor.ID),
	)
	if s.audit != nil {
		s.audit.Record(ctx, actor.ID, actor.Email, "delete_notice", id, "notice", nil)
	}
	return nil
}

// Notify は指定ユーザーへの通知を作成する。
// 通知の作成失敗は呼び出し元の処理を妨げず、ログに残すのみとする。
func (s *Service) Notify(ctx context.Context, userID, message string) {
	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		slog.Warn("failed to create notification",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// ListNotifications は指定ユーザーの通知を作成日時降順で返す。
func (s *Service) ListNotifications(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	notifications, err := s.notificationRepo.ListByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkAllRead は指定ユーザーの未読通知を既読化し、件数を返す。
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return count, nil
}
