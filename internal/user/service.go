// Package user はユーザー登録・ログイン・オンボーディングのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/jobalert/internal/auth"
	"github.com/hitoshi/jobalert/internal/model"
	"github.com/hitoshi/jobalert/internal/repository"
)

// 妥当なパスワードの最小文字数。
const minPasswordLength = 8

// OnboardingInput はオンボーディングリクエストの入力。
// TelegramIDは任意項目で、未提出の場合は既存値を維持する。
type OnboardingInput struct {
	TelegramID  string
	Preferences []string
	AlertSpeed  string
	InAppNotify bool
}

// Service はユーザー管理のサービス層。
// メール/パスワード認証とオンボーディングのビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   auth.TokenIssuer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, tokens auth.TokenIssuer) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Register はメール/パスワードでユーザーを登録する。
// メールアドレスが登録済みの場合はEmailTakenエラーを返す。
func (s *Service) Register(ctx context.Context, email, password string, preferences []string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, model.NewValidationError("メールアドレスの形式が不正です")
	}
	if len(password) < minPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("パスワードは%d文字以上にしてください", minPasswordLength))
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if preferences == nil {
		preferences = []string{}
	}

	now := time.Now()
	newUser := &model.User{
		ID:             uuid.New().String(),
		Username:       email[:strings.Index(email, "@")],
		Email:          email,
		HashedPassword: string(hash),
		DisplayName:    email[:strings.Index(email, "@")],
		Preferences:    preferences,
		Keywords:       []string{},
		AlertSpeed:     model.AlertSpeedInstant,
		InAppNotify:    true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", newUser.ID),
		slog.String("email", email),
	)

	return newUser, nil
}

// Login はメール/パスワードでログインし、セッショントークンを発行する。
// 認証失敗の詳細（ユーザー不在かパスワード不一致か）は区別せずに返す。
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || user.HashedPassword == "" {
		return "", nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return token, user, nil
}

// CompleteOnboarding はオンボーディング項目を設定する。
// preferences、alert_speed、in_app_notificationsは常に適用し、
// telegram_idは提出された場合のみ設定する。
func (s *Service) CompleteOnboarding(ctx context.Context, userID string, input OnboardingInput) (*model.User, error) {
	speed := model.AlertSpeed(input.AlertSpeed)
	if speed == "" {
		speed = model.AlertSpeedInstant
	}
	if speed != model.AlertSpeedInstant && speed != model.AlertSpeedDaily {
		return nil, model.NewInvalidAlertSpeedError(input.AlertSpeed)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	update := repository.OnboardingUpdate{
		Preferences: input.Preferences,
		AlertSpeed:  speed,
		InAppNotify: input.InAppNotify,
	}
	if update.Preferences == nil {
		update.Preferences = []string{}
	}
	if input.TelegramID != "" {
		telegramID := input.TelegramID
		update.TelegramChatID = &telegramID
	}

	if err := s.userRepo.UpdateOnboarding(ctx, userID, update); err != nil {
		return nil, fmt.Errorf("failed to update onboarding: %w", err)
	}

	updated, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if updated == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("onboarding completed",
		slog.String("user_id", userID),
		slog.Int("preferences", len(update.Preferences)),
		slog.String("alert_speed", string(speed)),
	)

	return updated, nil
}
