package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// 认证错误码
const (
	CodeTokenMissing  = 40100
	CodeTokenInvalid  = 40102
	CodeClaimsInvalid = 40103
	CodeNoRoles       = 40310
	CodeRolesFormat   = 40311
	CodeRoleRequired  = 40312
)

// JWTClaims 收银员令牌
type JWTClaims struct {
	UserID string   `json:"uid"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return strings.TrimSpace(token)
}

// JWTAuth 校验 HS256 令牌，并写入 user_id、user_name 和 roles
func JWTAuth(secret string) gin.HandlerFunc {
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			abort(c, http.StatusUnauthorized, CodeTokenMissing, "Authorization is required")
			return
		}

		claims := &JWTClaims{}
		token, err := parser.ParseWithClaims(raw, claims, keyFunc)
		if err != nil {
			abort(c, http.StatusUnauthorized, CodeTokenInvalid, "Invalid or expired token")
			return
		}
		if !token.Valid || claims.UserID == "" {
			abort(c, http.StatusUnauthorized, CodeClaimsInvalid, "Invalid token claims")
			return
		}

		roles := claims.Roles
		if roles == nil {
			roles = []string{}
		}
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyUserName, claims.Name)
		c.Set(KeyRoles, roles)
		c.Next()
	}
}

// RequireRole 需在 JWTAuth 之后使用
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(KeyRoles)
		if !exists {
			abort(c, http.StatusForbidden, CodeNoRoles, "No roles found")
			return
		}
		roles, ok := v.([]string)
		if !ok {
			abort(c, http.StatusForbidden, CodeRolesFormat, "Invalid roles format")
			return
		}
		if !HasRole(roles, role) {
			abort(c, http.StatusForbidden, CodeRoleRequired, "Role required: "+role)
			return
		}
		c.Next()
	}
}
