package middleware

import (
	"net/http"
	"strings"

	"medichat_server/internal/model"
	"medichat_server/pkg/constants"
	"medichat_server/pkg/errorx"
	"medichat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// JWTAuth JWT 认证中间件
// 验证 Bearer Token，解析出 Identity（Doctor/Nurse + ID）存入上下文
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := ResolveIdentity(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  err.Error(),
			})
			return
		}
		c.Set(constants.IDENTITY_CONTEXT_KEY, identity)
		c.Next()
	}
}

// ResolveIdentity 从 Authorization 头解析身份，失败返回 CodeUnauthorized
func ResolveIdentity(authHeader string) (model.Participant, error) {
	if authHeader == "" {
		return model.Participant{}, errorx.New(errorx.CodeUnauthorized, "missing bearer token")
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return model.Participant{}, errorx.New(errorx.CodeUnauthorized, "malformed authorization header, use Bearer token")
	}

	claims, err := jwt.ParseToken(strings.TrimSpace(token))
	if err != nil {
		return model.Participant{}, errorx.Wrap(err, errorx.CodeUnauthorized, "token expired or invalid")
	}
	role, err := model.ParseParticipantType(claims.Role)
	if err != nil {
		return model.Participant{}, errorx.Newf(errorx.CodeUnauthorized, "unsupported role %q", claims.Role)
	}
	identity, err := model.NewParticipant(role, claims.ParticipantID)
	if err != nil {
		return model.Participant{}, errorx.New(errorx.CodeUnauthorized, "token carries no participant id")
	}
	return identity, nil
}

// IdentityFrom 读取 JWTAuth 存入的身份
func IdentityFrom(c *gin.Context) (model.Participant, bool) {
	v, ok := c.Get(constants.IDENTITY_CONTEXT_KEY)
	if !ok {
		return model.Participant{}, false
	}
	identity, ok := v.(model.Participant)
	return identity, ok
}
