package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// CodeChallengeMethodS256 はPKCEのチャレンジ導出方式（SHA-256）。
const CodeChallengeMethodS256 = "S256"

// GenerateCodeVerifier はPKCE用のcode verifierを生成する。
// 32バイトの乱数をbase64url（パディングなし）でエンコードし、
// RFC 7636の最小要件（43文字以上のunreserved文字）を満たす43文字を返す。
// 乱数源の枯渇は回復不能として扱う。
func GenerateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DeriveCodeChallenge はcode verifierからS256方式のcode challengeを導出する。
// 同じverifierに対して常に同じchallengeを返す（プロバイダー側の検証に必要）。
// 戻り値の2番目は使用した方式の識別子。
func DeriveCodeChallenge(codeVerifier string) (challenge, method string) {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(hash[:]), CodeChallengeMethodS256
}

// GenerateState はCSRF対策用のランダムなstate値を生成する。
// code verifierとは独立した乱数から導出する。
func GenerateState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
