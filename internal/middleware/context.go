package middleware

import (
	"github.com/gin-gonic/gin"
)

// gin.Context 中的键
const (
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"
	KeyUserName  = "user_name"
	KeyRoles     = "roles"
)

// RoleAdmin 拥有全部 POS 角色
const RoleAdmin = "pos_admin"

// abort 以统一响应体中断请求
func abort(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": message})
}

// CurrentRoles 返回认证后写入的角色列表
func CurrentRoles(c *gin.Context) []string {
	v, ok := c.Get(KeyRoles)
	if !ok {
		return nil
	}
	roles, _ := v.([]string)
	return roles
}

// HasRole pos_admin 视为拥有任意角色
func HasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role || r == RoleAdmin {
			return true
		}
	}
	return false
}
