package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer 为本服务签发令牌的 iss/aud。
const Issuer = "blog-assistant"

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrSecretMissing  = errors.New("jwt secret missing")
	ErrTokenEmpty     = errors.New("token empty")
	ErrTokenType      = errors.New("unexpected token type")
	ErrTokenMalformed = errors.New("token invalid")
)

// Claims 定义令牌载荷，Subject 为用户 ID。
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// NewClaims 构造带统一 iss/aud/sub 的载荷。
func NewClaims(userID, email, role, tokenType string) Claims {
	return Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			Issuer:   Issuer,
			Audience: []string{Issuer},
		},
	}
}

// GenerateToken 以 HS256 签发令牌，now 决定 iat/exp。
func GenerateToken(secret string, now time.Time, ttl time.Duration, claims Claims) (string, error) {
	if secret == "" {
		return "", ErrSecretMissing
	}
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 验证签名、签发方与过期时间，并要求 token_type 与 expectedType 一致。
func ParseToken(tokenStr, secret, expectedType string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenEmpty
	}
	if secret == "" {
		return nil, ErrSecretMissing
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Issuer),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}
	if expectedType != "" && claims.TokenType != expectedType {
		return nil, ErrTokenType
	}
	return claims, nil
}
