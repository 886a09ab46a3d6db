// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/jobalert/internal/model"
)

// OnboardingUpdate はオンボーディングで設定する項目。
// TelegramChatIDはnilの場合に変更しない（未提出の扱い）。
// それ以外の項目は常に適用する。
type OnboardingUpdate struct {
	TelegramChatID *string
	Preferences    []string
	AlertSpeed     model.AlertSpeed
	InAppNotify    bool
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByTwitterID はXのユーザーIDでユーザーを検索する。見つからない場合はnilを返す。
	FindByTwitterID(ctx context.Context, twitterID string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// twitter_idの一意制約違反はIsUniqueViolationで判定可能なエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateOnboarding はオンボーディング項目を更新する。
	UpdateOnboarding(ctx context.Context, userID string, update OnboardingUpdate) error

	// Count は登録ユーザー数を返す。
	Count(ctx context.Context) (int, error)
}

// JobRepository は求人データの永続化インターフェース。
type JobRepository interface {
	// ListRecent は新着順の求人一覧を返す。categoryが空の場合は全カテゴリを対象とする。
	ListRecent(ctx context.Context, category string, limit int) ([]*model.Job, error)

	// Count は求人の総数を返す。
	Count(ctx context.Context) (int, error)

	// CountCreatedSince は指定時刻以降に作成された求人数を返す。
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}
