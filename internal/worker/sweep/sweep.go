// Package sweep は定期メンテナンスジョブを提供する。
// 帰寮予定を超過したままの許可証のクローズ、期限切れセッションの削除、
// 保持期間を超過した監査記録の削除を一定間隔のバッチで実行する。
package sweep

import (
	"context"
	"log/slog"
	"time"
)

// OutpassSweeper は超過許可証のクローズに必要なインターフェース。
// repository.OutpassRepositoryの部分集合として定義する。
type OutpassSweeper interface {
	// MarkOverdueCompleted は帰寮予定時刻からgraceを超過したapprovedの
	// 許可証をcompletedに遷移させ、件数を返す。
	MarkOverdueCompleted(ctx context.Context, grace time.Duration) (int64, error)
}

// SessionCleaner は期限切れセッションの削除に必要なインターフェース。
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// AuditCleaner は監査記録の保持期間管理に必要なインターフェース。
type AuditCleaner interface {
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// MetricsRecorder はスイープ結果のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordSweptOutpasses(count int)
}

// Config はSweeperの設定。
type Config struct {
	OutpassReturnGrace time.Duration
	AuditRetentionDays int
}

// Sweeper は定期メンテナンスジョブの実行器。
// 各処理は冪等で、1つの処理が失敗しても残りは継続する。
type Sweeper struct {
	outpasses OutpassSweeper
	sessions  SessionCleaner
	audits    AuditCleaner
	metrics   MetricsRecorder // nil可
	logger    *slog.Logger
	config    Config
}

// NewSweeper はSweeperを生成する。
func NewSweeper(
	outpasses OutpassSweeper,
	sessions SessionCleaner,
	audits AuditCleaner,
	metrics MetricsRecorder,
	logger *slog.Logger,
	config Config,
) *Sweeper {
	if config.OutpassReturnGrace <= 0 {
		config.OutpassReturnGrace = 24 * time.Hour
	}
	if config.AuditRetentionDays <= 0 {
		config.AuditRetentionDays = 90
	}
	return &Sweeper{
		outpasses: outpasses,
		sessions:  sessions,
		audits:    audits,
		metrics:   metrics,
		logger:    logger,
		config:    config,
	}
}

// Run はスイープを1回実行する。
func (s *Sweeper) Run(ctx context.Context) {
	start := time.Now()

	swept, err := s.outpasses.MarkOverdueCompleted(ctx, s.config.OutpassReturnGrace)
	if err != nil {
		s.logger.Error("超過許可証のクローズに失敗しました",
			slog.String("error", err.Error()),
		)
	} else {
		if s.metrics != nil {
			s.metrics.RecordSweptOutpasses(int(swept))
		}
		if swept > 0 {
			s.logger.Info("超過許可証をクローズしました",
				slog.Int64("swept_count", swept),
				slog.Duration("grace", s.config.OutpassReturnGrace),
			)
		}
	}

	expired, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	} else if expired > 0 {
		s.logger.Info("期限切れセッションを削除しました",
			slog.Int64("deleted_count", expired),
		)
	}

	purged, err := s.audits.Cleanup(ctx, s.config.AuditRetentionDays)
	if err != nil {
		s.logger.Error("監査記録のクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
	} else if purged > 0 {
		s.logger.Info("保持期間を超過した監査記録を削除しました",
			slog.Int64("deleted_count", purged),
			slog.Int("retention_days", s.config.AuditRetentionDays),
		)
	}

	s.logger.Info("スイープが完了しました",
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}

// Start は指定間隔のティッカーでスイープを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("スイープワーカーを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行する
	s.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("スイープワーカーを停止します")
			return
		case <-ticker.C:
			s.Run(ctx)
		}
	}
}
