package kiosk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActivityRecorder はゲート通過アクティビティの記録先。
// 記録は補助的なもので、失敗しても打刻処理は継続する。
type ActivityRecorder interface {
	RecordScan(ctx context.Context, studentID string, action Action)
}

// GateActivity はゲート通過の日次カウンタと直近履歴をRedisに保持する。
// Redisが利用できない場合は警告ログのみで縮退する。
type GateActivity struct {
	client *redis.Client
}

// NewGateActivity はGateActivityを生成する。clientがnilの場合は全操作がno-opになる。
func NewGateActivity(client *redis.Client) *GateActivity {
	return &GateActivity{client: client}
}

const (
	activityCountKeyFmt = "gate:count:%s:%s" // gate:count:<YYYY-MM-DD>:<action>
	activityRecentKey   = "gate:recent"
	activityCountTTL    = 48 * time.Hour
	activityRecentMax   = 100
)

// RecordScan は打刻1件を記録する。日次カウンタのインクリメントと
// 直近履歴リストへの追記をパイプラインで行う。
func (g *GateActivity) RecordScan(ctx context.Context, studentID string, action Action) {
	if g == nil || g.client == nil {
		return
	}

	now := time.Now()
	countKey := fmt.Sprintf(activityCountKeyFmt, now.Format("2006-01-02"), action)
	entry := fmt.Sprintf("%s|%s|%s", now.Format(time.RFC3339), action, studentID)

	pipe := g.client.Pipeline()
	pipe.Incr(ctx, countKey)
	pipe.Expire(ctx, countKey, activityCountTTL)
	pipe.LPush(ctx, activityRecentKey, entry)
	pipe.LTrim(ctx, activityRecentKey, 0, activityRecentMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("failed to record gate activity", slog.String("error", err.Error()))
	}
}

// RecentScans は直近の打刻履歴を新しい順に返す。
func (g *GateActivity) RecentScans(ctx context.Context, limit int) ([]string, error) {
	if g == nil || g.client == nil {
		return nil, nil
	}
	if limit <= 0 || limit > activityRecentMax {
		limit = activityRecentMax
	}
	return g.client.LRange(ctx, activityRecentKey, 0, int64(limit-1)).Result()
}

// CountForDay は指定日・指定アクションの打刻数を返す。
func (g *GateActivity) CountForDay(ctx context.Context, day time.Time, action Action) (int64, error) {
	if g == nil || g.client == nil {
		return 0, nil
	}
	countKey := fmt.Sprintf(activityCountKeyFmt, day.Format("2006-01-02"), action)
	n, err := g.client.Get(ctx, countKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// compile-time interface check
var _ ActivityRecorder = (*GateActivity)(nil)
