package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/jobalert/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, twitter_id, username, email, hashed_password, display_name,
	profile_image, preferences, keywords, alert_speed, telegram_chat_id,
	in_app_notifications, created_at, updated_at`

// scanUser は1行分のユーザーをスキャンする。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var twitterID, hashedPassword, profileImage, telegramChatID sql.NullString

	err := row.Scan(
		&user.ID, &twitterID, &user.Username, &user.Email, &hashedPassword,
		&user.DisplayName, &profileImage,
		pq.Array(&user.Preferences), pq.Array(&user.Keywords),
		&user.AlertSpeed, &telegramChatID, &user.InAppNotify,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.TwitterID = twitterID.String
	user.HashedPassword = hashedPassword.String
	user.ProfileImage = profileImage.String
	user.TelegramChatID = telegramChatID.String

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByTwitterID はXのユーザーIDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByTwitterID(ctx context.Context, twitterID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE twitter_id = $1`,
		twitterID,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by twitter ID: %w", err)
	}

	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
// twitter_id、emailの一意制約違反はそのまま呼び出し元に返す
// （IsUniqueViolationで判定し、再取得にフォールバックできる）。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, twitter_id, username, email, hashed_password, display_name,
			profile_image, preferences, keywords, alert_speed, telegram_chat_id,
			in_app_notifications, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		user.ID,
		nullIfEmpty(user.TwitterID),
		user.Username,
		user.Email,
		nullIfEmpty(user.HashedPassword),
		user.DisplayName,
		nullIfEmpty(user.ProfileImage),
		pq.Array(user.Preferences),
		pq.Array(user.Keywords),
		user.AlertSpeed,
		nullIfEmpty(user.TelegramChatID),
		user.InAppNotify,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// UpdateOnboarding はオンボーディング項目を更新する。
// TelegramChatIDがnilの場合はtelegram_chat_idを変更しない。
func (r *PostgresUserRepo) UpdateOnboarding(ctx context.Context, userID string, update OnboardingUpdate) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET preferences = $2,
		     alert_speed = $3,
		     in_app_notifications = $4,
		     telegram_chat_id = COALESCE($5, telegram_chat_id),
		     updated_at = now()
		 WHERE id = $1`,
		userID,
		pq.Array(update.Preferences),
		update.AlertSpeed,
		update.InAppNotify,
		update.TelegramChatID,
	)
	if err != nil {
		return fmt.Errorf("failed to update onboarding: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}

	return nil
}

// Count は登録ユーザー数を返す。
func (r *PostgresUserRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// nullIfEmpty は空文字列をNULLとして扱う。
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
