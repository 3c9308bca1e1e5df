// Package audit は重要操作の監査記録を提供する。
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

// Recorder は監査記録の書き込みを行う。
// 書き込みはfire-and-forgetで、失敗してもログに残すのみで
// 呼び出し元の処理を妨げない。
type Recorder struct {
	repo repository.AuditRepository
}

// NewRecorder はRecorderを生成する。
func NewRecorder(repo repository.AuditRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Record は監査記録を1件書き込む。
// actionは大文字スネークケースに正規化して保存する。
// detailsはJSON化して保存し、nilの場合は空オブジェクトとする。
func (r *Recorder) Record(ctx context.Context, actorID, actorEmail, action, targetID, targetType string, details map[string]any) {
	detailsJSON := "{}"
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			slog.Warn("failed to marshal audit details",
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
		} else {
			detailsJSON = string(b)
		}
	}

	log := &model.AuditLog{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		ActorEmail: actorEmail,
		Action:     strings.ToUpper(action),
		TargetID:   targetID,
		TargetType: targetType,
		Details:    detailsJSON,
		CreatedAt:  time.Now(),
	}

	if err := r.repo.Insert(ctx, log); err != nil {
		slog.Warn("failed to insert audit log",
			slog.String("action", log.Action),
			slog.String("actor_id", actorID),
			slog.String("error", err.Error()),
		)
	}
}

// Cleanup は保持日数を超過した監査記録を削除し、件数を返す。
func (r *Recorder) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	return r.repo.DeleteOlderThan(ctx, retentionDays)
}
