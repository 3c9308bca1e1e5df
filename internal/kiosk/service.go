package kiosk

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/hostelman/internal/model"
	"github.com/hitoshi/hostelman/internal/repository"
)

// AuditRecorder は監査記録のファイアアンドフォーゲット書き込み。
// 記録の失敗は打刻処理に影響させない。
type AuditRecorder interface {
	Record(ctx context.Context, actorID, actorEmail, action, targetID, targetType string, details map[string]any)
}

// MetricsRecorder はキオスクが記録するメトリクスの部分インターフェース。
type MetricsRecorder interface {
	RecordScan(outcome string)
	RecordTransition(action string)
	RecordTransitionConflict()
	RecordResolveLatency(duration time.Duration)
	RecordRosterSize(count int)
}

// Service はチェックポイントのオーケストレーションを提供する。
// 検索→許可証解決→状態導出→打刻→再取得のサイクルを1か所に集約する。
type Service struct {
	roster      *RosterCache
	resolver    *Resolver
	outpassRepo repository.OutpassRepository
	audit       AuditRecorder    // nil可
	activity    ActivityRecorder // nil可
	metrics     MetricsRecorder  // nil可
}

// NewService はServiceを生成する。audit/activity/metricsはnilを許容する。
func NewService(
	roster *RosterCache,
	resolver *Resolver,
	outpassRepo repository.OutpassRepository,
	audit AuditRecorder,
	activity ActivityRecorder,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		roster:      roster,
		resolver:    resolver,
		outpassRepo: outpassRepo,
		audit:       audit,
		activity:    activity,
		metrics:     metrics,
	}
}

// StartSession はチェックポイントセッションを開始し、名簿キャッシュをロードする。
// キャッシュのロード失敗は致命ではなく、リモートのみの解決に縮退する。
func (s *Service) StartSession(ctx context.Context, operator *model.Student) *Session {
	count, err := s.roster.Load(ctx)
	if err != nil {
		slog.Warn("roster cache load failed, degrading to remote-only resolution",
			slog.String("error", err.Error()),
		)
	} else {
		slog.Info("roster cache loaded", slog.Int("count", count))
		if s.metrics != nil {
			s.metrics.RecordRosterSize(count)
		}
	}
	return NewSession(operator)
}

// ReloadRoster は名簿キャッシュを再ロードする。件数を返す。
func (s *Service) ReloadRoster(ctx context.Context) (int, error) {
	count, err := s.roster.Load(ctx)
	if err != nil {
		return 0, model.NewRemoteUnavailableError()
	}
	if s.metrics != nil {
		s.metrics.RecordRosterSize(count)
	}
	return count, nil
}

// Search はスキャン/手入力のペイロードを寮生1名に解決し、
// その寮生のアクティブな許可証と観測状態をセッションに反映する。
// 解決失敗時はセッションをクリアし、*model.APIErrorを返す。
func (s *Service) Search(ctx context.Context, sess *Session, rawPayload string) error {
	query := NormalizeScanPayload(rawPayload)

	start := time.Now()
	student, err := s.resolver.Resolve(ctx, query)
	if s.metrics != nil {
		s.metrics.RecordResolveLatency(time.Since(start))
	}
	if err != nil {
		sess.Reset()
		s.recordScanOutcome(err)
		return err
	}

	outpass, err := s.outpassRepo.FindActiveByUserID(ctx, student.ID)
	if err != nil {
		sess.Reset()
		s.recordScanOutcome(nil)
		return model.NewRemoteUnavailableError()
	}

	sess.Student = student
	sess.Outpass = outpass
	sess.State = DeriveState(outpass)
	if s.metrics != nil {
		s.metrics.RecordScan("resolved")
	}
	return nil
}

// ApplyAction はゲート打刻を実行する。
// 解決済みの許可証がない場合、または現在の状態で許可されない操作の場合は
// ストアへの書き込みを行わずPreconditionFailedを返す。
// 打刻はCAS条件付きUPDATEで行い、競合に敗れた場合もPreconditionFailedとなる。
// 成功・競合いずれの場合もサーバー真実を再取得してセッションへ反映する。
func (s *Service) ApplyAction(ctx context.Context, sess *Session, action Action) error {
	if sess.Outpass == nil {
		return model.NewPreconditionFailedError()
	}

	legal, ok := LegalAction(sess.State)
	if !ok || legal != action {
		return model.NewPreconditionFailedError()
	}

	outpassID := sess.Outpass.ID
	studentID := ""
	if sess.Student != nil {
		studentID = sess.Student.StudentID
	}

	var (
		applied bool
		err     error
	)
	switch action {
	case ActionOut:
		applied, err = s.outpassRepo.MarkGateOut(ctx, outpassID)
	case ActionIn:
		applied, err = s.outpassRepo.MarkGateIn(ctx, outpassID)
	default:
		return model.NewPreconditionFailedError()
	}
	if err != nil {
		// 書き込み失敗は操作前の状態を維持したまま返す。部分適用はない。
		return model.NewRemoteUnavailableError()
	}

	if !applied {
		// 別の局が先に処理した（二重スキャン競合）。サーバー真実で上書きする。
		if s.metrics != nil {
			s.metrics.RecordTransitionConflict()
		}
		slog.Warn("gate transition lost race",
			slog.String("outpass_id", outpassID),
			slog.String("action", string(action)),
		)
		if refreshErr := s.refresh(ctx, sess); refreshErr != nil {
			sess.Reset()
		}
		return model.NewPreconditionFailedError()
	}

	slog.Info("gate transition applied",
		slog.String("outpass_id", outpassID),
		slog.String("student_id", studentID),
		slog.String("action", string(action)),
	)

	if s.metrics != nil {
		s.metrics.RecordTransition(string(action))
	}
	if s.activity != nil {
		s.activity.RecordScan(ctx, studentID, action)
	}
	if s.audit != nil && sess.Operator != nil {
		auditAction := "gate_out"
		if action == ActionIn {
			auditAction = "gate_in"
		}
		s.audit.Record(ctx, sess.Operator.ID, sess.Operator.Email, auditAction, outpassID, "outpass", map[string]any{
			"student_id": studentID,
		})
	}

	// ローカルコピーは信用せず、再取得してから再導出する
	if err := s.refresh(ctx, sess); err != nil {
		sess.Reset()
		return err
	}
	return nil
}

// refresh は現在の寮生のアクティブ許可証を再取得し、状態を再導出する。
func (s *Service) refresh(ctx context.Context, sess *Session) error {
	if sess.Student == nil {
		return model.NewPreconditionFailedError()
	}
	outpass, err := s.outpassRepo.FindActiveByUserID(ctx, sess.Student.ID)
	if err != nil {
		return model.NewRemoteUnavailableError()
	}
	sess.Outpass = outpass
	sess.State = DeriveState(outpass)
	return nil
}

// recordScanOutcome は解決失敗の内訳をメトリクスに記録する。
func (s *Service) recordScanOutcome(err error) {
	if s.metrics == nil {
		return
	}
	apiErr, ok := err.(*model.APIError)
	if !ok {
		s.metrics.RecordScan("error")
		return
	}
	switch apiErr.Code {
	case model.ErrCodeAmbiguousQuery:
		s.metrics.RecordScan("ambiguous")
	case model.ErrCodeStudentNotFound:
		s.metrics.RecordScan("not_found")
	default:
		s.metrics.RecordScan("error")
	}
}
