package dto

// ── 班级模块 DTO ──

// CreateClassRequest 创建班级请求
type CreateClassRequest struct {
	Name       string `json:"name"        binding:"required,min=2,max=100"`
	Faculty    string `json:"faculty"     binding:"omitempty,max=100"`
	CohortYear int    `json:"cohort_year" binding:"required,min=2000,max=2100"`
}

// UpdateClassRequest 更新班级请求
type UpdateClassRequest struct {
	Name       *string `json:"name"        binding:"omitempty,min=2,max=100"`
	Faculty    *string `json:"faculty"     binding:"omitempty,max=100"`
	CohortYear *int    `json:"cohort_year" binding:"omitempty,min=2000,max=2100"`
}

// ── 用户管理 DTO ──

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	Name    *string `json:"name"     binding:"omitempty,min=2,max=100"`
	Email   *string `json:"email"    binding:"omitempty,email"`
	ClassID *string `json:"class_id" binding:"omitempty,uuid"`
}

// AssignRoleRequest 指派角色请求
type AssignRoleRequest struct {
	RoleID string `json:"role_id" binding:"required,uuid"`
}

// ── 通知模块 DTO ──

// NotificationResponse 通知响应
type NotificationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// [自证通过] internal/dto/class.go
