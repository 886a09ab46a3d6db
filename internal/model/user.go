// Package model はドメインモデルを定義する。
package model

import "time"

// AlertSpeed はジョブアラートの配信速度を表す。
type AlertSpeed string

const (
	// AlertSpeedInstant は新着ジョブを即時通知する。
	AlertSpeedInstant AlertSpeed = "instant"
	// AlertSpeedDaily は1日1回まとめて通知する。
	AlertSpeedDaily AlertSpeed = "daily"
)

// User はサービス利用ユーザーを表す。
// X（Twitter）ログインで作成されたユーザーはTwitterIDを持ち、
// メール/パスワード登録のユーザーはTwitterIDが空になる。
type User struct {
	ID             string
	TwitterID      string // 外部IdPのユーザーID。パスワード登録の場合は空
	Username       string
	Email          string
	HashedPassword string // OAuthユーザーの場合は空
	DisplayName    string
	ProfileImage   string
	Preferences    []string // 希望するジョブカテゴリ（順序保持）
	Keywords       []string
	AlertSpeed     AlertSpeed
	TelegramChatID string
	InAppNotify    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
