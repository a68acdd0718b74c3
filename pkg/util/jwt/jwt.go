package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTConfig JWT 配置
// Token 由外部认证系统签发，本服务只负责校验；GenerateAccessToken 供测试和联调使用
type JWTConfig struct {
	Secret string
	Issuer string // 为空时不校验签发者
}

// 全局配置，由 Init 函数初始化
var jwtConfig = &JWTConfig{}

// Init 初始化 JWT 配置
func Init(secret, issuer string) {
	jwtConfig = &JWTConfig{
		Secret: secret,
		Issuer: issuer,
	}
}

// Claims 自定义 JWT 声明
// Role 为 DOCTOR 或 NURSE（大小写不敏感），ParticipantID 为对应目录表中的 ID
type Claims struct {
	Role          string `json:"role"`
	ParticipantID int64  `json:"participant_id"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

// GenerateAccessToken 生成 Access Token
func GenerateAccessToken(role string, participantID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:          role,
		ParticipantID: participantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    jwtConfig.Issuer,
			Subject:   "access_token",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.Secret))
}

// ParseToken 解析并验证 Token，只接受 HMAC 签名
func ParseToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if jwtConfig.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(jwtConfig.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtConfig.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
