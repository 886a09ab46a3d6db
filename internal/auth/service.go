// Package auth はX（Twitter）OAuth 2.0 + PKCEによる認証フローと
// セッショントークンの発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/jobalert/internal/model"
	"github.com/hitoshi/jobalert/internal/repository"
)

// ProviderIdentity はOAuthプロバイダーから取得したユーザー情報を表す。
// 永続化はされず、ローカルのUserレコードに折り込まれる。
type ProviderIdentity struct {
	ProviderUserID string
	Username       string
	DisplayName    string
	ProfileImage   string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（X, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// AuthorizationURL は認可URLを生成する。設定不備の場合はErrConfigurationを返す。
	AuthorizationURL(state, codeChallenge string) (string, error)
	// ExchangeCode は認可コードとcode verifierをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code, codeVerifier string) (string, error)
	// FetchIdentity はアクセストークンでユーザー情報を取得する。
	FetchIdentity(ctx context.Context, accessToken string) (*ProviderIdentity, error)
}

// MetricsRecorder は認証フローのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordLoginInitiated()
	RecordCallbackOutcome(outcome string)
	RecordExchangeLatency(duration time.Duration)
	RecordAccountCreated()
}

// CallbackResult はコールバック処理の結果。
type CallbackResult struct {
	Token   string
	NewUser bool
}

// Service はOAuth認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	flows    PendingFlowStore
	userRepo repository.UserRepository
	tokens   TokenIssuer
	metrics  MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilを許容する。
func NewService(
	oauth OAuthProvider,
	flows PendingFlowStore,
	userRepo repository.UserRepository,
	tokens TokenIssuer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		oauth:    oauth,
		flows:    flows,
		userRepo: userRepo,
		tokens:   tokens,
		metrics:  metrics,
	}
}

// BeginLogin はOAuthフローを開始し、プロバイダーの認可URLを返す。
// code verifierとstateを生成し、進行中フローとしてストアに登録する。
// URL構築に失敗した場合（設定不備）はフロー登録前にエラーを返す。
func (s *Service) BeginLogin(ctx context.Context) (string, error) {
	codeVerifier, err := GenerateCodeVerifier()
	if err != nil {
		return "", err
	}
	challenge, _ := DeriveCodeChallenge(codeVerifier)

	// stateはverifierから導出せず独立に生成する
	state, err := GenerateState()
	if err != nil {
		return "", err
	}

	authURL, err := s.oauth.AuthorizationURL(state, challenge)
	if err != nil {
		return "", err
	}

	if err := s.flows.Put(ctx, state, PendingFlow{
		CodeVerifier: codeVerifier,
		CreatedAt:    time.Now(),
	}); err != nil {
		return "", fmt.Errorf("failed to register pending flow: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLoginInitiated()
	}

	return authURL, nil
}

// HandleCallback はOAuthコールバックを処理する。
// state検証 → トークン交換 → ユーザー情報取得 → アカウント照合 → トークン発行
// の順で進み、最初の失敗で短絡する。各段階のエラーはErrInvalidState等の
// 分類エラーでラップされ、ハンドラー側でエラーリダイレクトに変換される。
func (s *Service) HandleCallback(ctx context.Context, code, state string) (*CallbackResult, error) {
	// 1. state検証（CSRF対策）。取得と削除は不可分で、同じstateは二度成功しない。
	flow, err := s.flows.TakeOnce(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to take pending flow: %w", err)
	}
	if flow == nil {
		s.recordOutcome("invalid_state")
		return nil, ErrInvalidState
	}

	if code == "" {
		s.recordOutcome("exchange_error")
		return nil, fmt.Errorf("%w: missing authorization code", ErrExchange)
	}

	// 2. 認可コードをアクセストークンに交換（PKCE検証はプロバイダー側）
	exchangeStart := time.Now()
	accessToken, err := s.oauth.ExchangeCode(ctx, code, flow.CodeVerifier)
	if s.metrics != nil {
		s.metrics.RecordExchangeLatency(time.Since(exchangeStart))
	}
	if err != nil {
		s.recordOutcome("exchange_error")
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	// 3. アクセストークンでユーザー情報を取得（トークンはこの1回で使い捨て）
	identity, err := s.oauth.FetchIdentity(ctx, accessToken)
	if err != nil {
		s.recordOutcome("identity_error")
		return nil, fmt.Errorf("%w: %v", ErrIdentityFetch, err)
	}

	// 4. アカウント照合（create-or-link）
	user, newUser, err := s.reconcileUser(ctx, identity)
	if err != nil {
		s.recordOutcome("reconcile_error")
		return nil, err
	}

	// 5. セッショントークン発行
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.recordOutcome("session_error")
		return nil, fmt.Errorf("%w: %v", ErrSessionIssuance, err)
	}

	if newUser {
		s.recordOutcome("new_user")
	} else {
		s.recordOutcome("existing_user")
	}

	return &CallbackResult{Token: token, NewUser: newUser}, nil
}

// reconcileUser はプロバイダーIDでユーザーを検索し、存在しなければ作成する。
// 既存ユーザーのプロフィールはプロバイダーの値で上書きしない
// （ユーザー自身の編集を保持する）。
// 同時コールバックによるINSERT競合は一意制約違反として検出し、
// 再取得して既存ユーザーとして扱う。
func (s *Service) reconcileUser(ctx context.Context, identity *ProviderIdentity) (*model.User, bool, error) {
	user, err := s.userRepo.FindByTwitterID(ctx, identity.ProviderUserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find user by twitter ID: %w", err)
	}
	if user != nil {
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("twitter_id", identity.ProviderUserID),
		)
		return user, false, nil
	}

	displayName := identity.DisplayName
	if displayName == "" {
		displayName = identity.Username
	}

	now := time.Now()
	newUser := &model.User{
		ID:        uuid.New().String(),
		TwitterID: identity.ProviderUserID,
		Username:  identity.Username,
		// Xはメールアドレスを提供しないためプレースホルダーを使用する
		Email:        fmt.Sprintf("%s@twitter.placeholder", identity.Username),
		DisplayName:  displayName,
		ProfileImage: identity.ProfileImage,
		Preferences:  []string{}, // オンボーディングで設定する
		Keywords:     []string{},
		AlertSpeed:   model.AlertSpeedInstant,
		InAppNotify:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if repository.IsUniqueViolation(err) {
			// 2つの有効なstateが同じプロバイダーIDに解決した競合。
			// 勝者の行を再取得し、既存ユーザーとして扱う。
			existing, findErr := s.userRepo.FindByTwitterID(ctx, identity.ProviderUserID)
			if findErr != nil {
				return nil, false, fmt.Errorf("failed to refetch user after conflict: %w", findErr)
			}
			if existing == nil {
				return nil, false, fmt.Errorf("unique violation but user not found: %s", identity.ProviderUserID)
			}
			slog.Info("account creation race resolved as existing user",
				slog.String("user_id", existing.ID),
				slog.String("twitter_id", identity.ProviderUserID),
			)
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordAccountCreated()
	}
	slog.Info("new user created",
		slog.String("user_id", newUser.ID),
		slog.String("twitter_id", identity.ProviderUserID),
	)

	return newUser, true, nil
}

// GetCurrentUser はセッショントークンから現在のユーザーを取得する。
// トークンが無効、期限切れ、またはユーザーが削除済みの場合はエラーを返す。
func (s *Service) GetCurrentUser(ctx context.Context, tokenString string) (*model.User, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token is required")
	}

	userID, err := s.tokens.Validate(tokenString)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// recordOutcome はコールバック結果のメトリクスを記録する。
func (s *Service) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCallbackOutcome(outcome)
	}
}
