// Package booking は部屋一覧と入寮申請のビジネスロジックを提供する。
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

// AuditRecorder は入寮操作の監査記録インターフェース。
type AuditRecorder interface {
	Record(ctx context.Context, actorID, actorEmail, action, targetID, targetType string, details map[string]any)
}

// Service は入寮申請に関するビジネスロジックを提供する。
type Service struct {
	roomRepo    repository.RoomRepository
	bookingRepo repository.BookingRepository
	audit       AuditRecorder // nil可
}

// NewService はServiceを生成する。auditはnilを許容する。
func NewService(roomRepo repository.RoomRepository, bookingRepo repository.BookingRepository, audit AuditRecorder) *Service {
	return &Service{roomRepo: roomRepo, bookingRepo: bookingRepo, audit: audit}
}

// ListRooms は部屋をベッド付きで返す。genderが空でない場合は性別区分で絞り込む。
func (s *Service) ListRooms(ctx context.Context, gender model.GenderCategory) ([]*model.Room, error) {
	rooms, err := s.roomRepo.ListAll(ctx, gender)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// GetRoom は指定IDの部屋をベッド付きで返す。
func (s *Service) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	if room == nil {
		return nil, model.NewRoomNotFoundError(roomID)
	}
	return room, nil
}

// Book は指定ベッドへの入寮申請を作成する。
// ベッドの占有と申請の作成は同一トランザクションで行われ、
// 同時申請の敗者にはBED_TAKENが返る。
// active（pending/confirmed）な申請が既にある寮生はBOOKING_EXISTSで拒否する。
func (s *Service) Book(ctx context.Context, student *model.Student, roomID, bedLabel string) (*model.Booking, error) {
	existing, err := s.bookingRepo.FindActiveByUserID(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing booking: %w", err)
	}
	if existing != nil {
		return nil, model.NewBookingExistsError()
	}

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	if room == nil {
		return nil, model.NewRoomNotFoundError(roomID)
	}

	now := time.Now()
	booking := &model.Booking{
		ID:        uuid.New().String(),
		UserID:    student.ID,
		RoomID:    roomID,
		BedLabel:  bedLabel,
		Status:    model.BookingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.bookingRepo.CreateWithBedClaim(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrBedTaken) {
			return nil, model.NewBedTakenError(room.RoomNumber, bedLabel)
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	slog.Info("bed booked",
		slog.String("booking_id", booking.ID),
		slog.String("user_id", student.ID),
		slog.String("room_id", roomID),
		slog.String("bed_label", bedLabel),
	)
	if s.audit != nil {
		s.audit.Record(ctx, student.ID, student.Email, "book_bed", booking.ID, "booking",
			map[string]any{"room_id": roomID, "bed_label": bedLabel})
	}
	return booking, nil
}

// GetOwn は指定寮生のactiveな入寮申請を返す。存在しない場合はnilを返す。
func (s *Service) GetOwn(ctx context.Context, userID string) (*model.Booking, error) {
	booking, err := s.bookingRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return booking, nil
}

// Reject は入寮申請を却下し、ベッドを解放する（管理者用）。
func (s *Service) Reject(ctx context.Context, admin *model.Student, bookingID string) error {
	return s.release(ctx, admin, bookingID, model.BookingStatusRejected, "reject_booking")
}

// Vacate は入寮申請を退去済みに遷移させ、ベッドを解放する。
func (s *Service) Vacate(ctx context.Context, actor *model.Student, bookingID string) error {
	return s.release(ctx, actor, bookingID, model.BookingStatusVacated, "vacate_booking")
}

func (s *Service) release(ctx context.Context, actor *model.Student, bookingID string, status model.BookingStatus, auditAction string) error {
	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to find booking: %w", err)
	}
	if booking == nil {
		return model.NewBookingNotFoundError(bookingID)
	}
	if booking.Status != model.BookingStatusPending && booking.Status != model.BookingStatusConfirmed {
		return model.NewBookingNotFoundError(bookingID)
	}

	if err := s.bookingRepo.Release(ctx, bookingID, status); err != nil {
		return fmt.Errorf("failed to release booking: %w", err)
	}

	slog.Info("booking released",
		slog.String("booking_id", bookingID),
		slog.String("status", string(status)),
		slog.String("actor_id", actor.ID),
	)
	if s.audit != nil {
		s.audit.Record(ctx, actor.ID, actor.Email, auditAction, bookingID, "booking",
			map[string]any{"user_id": booking.UserID})
	}
	return nil
}
