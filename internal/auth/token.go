package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer はローカルセッショントークンの発行・検証インターフェース。
type TokenIssuer interface {
	// Issue はユーザーIDに紐付くセッショントークンを発行する。
	Issue(userID string) (string, error)
	// Validate はトークンを検証し、ユーザーIDを返す。
	Validate(tokenString string) (string, error)
}

// JWTIssuer はHMAC-SHA256署名のJWTによるTokenIssuer実装。
// subクレームにユーザーIDを格納する。
type JWTIssuer struct {
	secret    []byte
	expiresIn time.Duration
}

// NewJWTIssuer はJWTIssuerを生成する。
func NewJWTIssuer(secret string, expiresIn time.Duration) *JWTIssuer {
	return &JWTIssuer{
		secret:    []byte(secret),
		expiresIn: expiresIn,
	}
}

// Issue はユーザーIDをsubに持つ署名付きJWTを発行する。
func (i *JWTIssuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user ID is required")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.expiresIn)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Validate はトークンの署名と有効期限を検証し、subのユーザーIDを返す。
// 署名不一致、期限切れ、sub欠落はすべてエラーを返す。
func (i *JWTIssuer) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return claims.Subject, nil
}

// compile-time interface check
var _ TokenIssuer = (*JWTIssuer)(nil)
