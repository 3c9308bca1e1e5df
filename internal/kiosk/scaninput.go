package kiosk

import (
	"net/url"
	"strings"
)

// NormalizeScanPayload はスキャン入力を検索クエリへ正規化する。
// QRコードが学籍番号入りのURL（例: https://x/y?id=AB123）であれば
// idパラメータの値を抽出し、それ以外（印字コードや手入力）はそのまま返す。
// カメラ経路と手入力経路を同じ解決器で扱うためのアダプタ。
func NormalizeScanPayload(raw string) string {
	trimmed := strings.TrimSpace(raw)

	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return trimmed
	}

	if id := u.Query().Get("id"); id != "" {
		return id
	}
	return trimmed
}
