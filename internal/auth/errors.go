package auth

import "errors"

// 認証フローのエラー分類。
// コールバックパスの回復可能なエラーはハンドラーで一律に
// フロントエンドへのエラーリダイレクトに変換される。
var (
	// ErrConfiguration はクライアント認証情報の欠落など設定不備を示す。
	// ユーザー操作では回復できない。
	ErrConfiguration = errors.New("oauth configuration error")

	// ErrInvalidState はstateが未登録、期限切れ、または消費済みであることを示す。
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrStateCollision は生成済みstateとの衝突を示す。
	// stateは毎回生成されるため、実運用ではほぼ発生しない。
	ErrStateCollision = errors.New("oauth state collision")

	// ErrExchange は認可コードのトークン交換失敗を示す。
	ErrExchange = errors.New("token exchange failed")

	// ErrIdentityFetch はプロバイダーからのユーザー情報取得失敗を示す。
	ErrIdentityFetch = errors.New("identity fetch failed")

	// ErrSessionIssuance はセッショントークンの署名失敗を示す。
	ErrSessionIssuance = errors.New("session issuance failed")
)
