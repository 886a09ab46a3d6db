package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTwitterAuthURL     = "https://x.com/i/oauth2/authorize"
	defaultTwitterTokenURL    = "https://api.x.com/2/oauth2/token"
	defaultTwitterUserInfoURL = "https://api.x.com/2/users/me"

	defaultProviderTimeout = 10 * time.Second
)

// TwitterOAuthConfig はX（Twitter）OAuthプロバイダーの設定。
type TwitterOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// プロバイダーへの外部呼び出し（トークン交換、ユーザー情報取得）のタイムアウト
	Timeout time.Duration

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// TwitterOAuthProvider はX（Twitter）のOAuth 2.0 Authorization Code + PKCEによる認証を提供する。
type TwitterOAuthProvider struct {
	config TwitterOAuthConfig
	client *http.Client
}

// NewTwitterOAuthProvider はTwitterOAuthProviderを生成する。
func NewTwitterOAuthProvider(config TwitterOAuthConfig) *TwitterOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultTwitterAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultTwitterTokenURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultTwitterUserInfoURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultProviderTimeout
	}
	return &TwitterOAuthProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// AuthorizationURL はXのOAuth認可URLを生成する。
// スコープは読み取り専用の最小セット（tweet.read, users.read）。
// クライアント認証情報が未設定の場合はErrConfigurationを返す。
func (p *TwitterOAuthProvider) AuthorizationURL(state, codeChallenge string) (string, error) {
	if p.config.ClientID == "" || p.config.RedirectURL == "" {
		return "", fmt.Errorf("%w: client ID and redirect URL are required", ErrConfiguration)
	}

	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {p.config.ClientID},
		"redirect_uri":          {p.config.RedirectURL},
		"scope":                 {"tweet.read users.read"},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {CodeChallengeMethodS256},
	}
	return p.config.AuthURL + "?" + params.Encode(), nil
}

// twitterTokenResponse はXのトークンエンドポイントのレスポンス。
type twitterTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// twitterUserResponse はXのユーザー情報エンドポイントのレスポンス。
type twitterUserResponse struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
// codeVerifierはログイン開始時に生成したものと同一でなければ
// プロバイダー側でPKCE検証に失敗する。
// アクセストークンは直後のユーザー情報取得に1回使用して破棄する。
func (p *TwitterOAuthProvider) ExchangeCode(ctx context.Context, code, codeVerifier string) (string, error) {
	data := url.Values{
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"code_verifier": {codeVerifier},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// Confidentialクライアントのためclient_secretはBasic認証で送る
	req.SetBasicAuth(p.config.ClientID, p.config.ClientSecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// レスポンスボディには認証情報が含まれうるためエラーには状態コードのみ載せる
		return "", fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var tokenResp twitterTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in response")
	}

	return tokenResp.AccessToken, nil
}

// FetchIdentity はアクセストークンでXのユーザー情報を取得する。
// 取得するのは最小限のプロフィールフィールド（id, username, name, アバターURL）のみ。
func (p *TwitterOAuthProvider) FetchIdentity(ctx context.Context, accessToken string) (*ProviderIdentity, error) {
	reqURL := p.config.UserInfoURL + "?user.fields=profile_image_url"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d", resp.StatusCode)
	}

	var userResp twitterUserResponse
	if err := json.Unmarshal(body, &userResp); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if userResp.Data.ID == "" {
		return nil, fmt.Errorf("empty user id in user info response")
	}

	return &ProviderIdentity{
		ProviderUserID: userResp.Data.ID,
		Username:       userResp.Data.Username,
		DisplayName:    userResp.Data.Name,
		ProfileImage:   userResp.Data.ProfileImageURL,
	}, nil
}

// compile-time interface check
var _ OAuthProvider = (*TwitterOAuthProvider)(nil)
