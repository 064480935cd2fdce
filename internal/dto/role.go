package dto

// ── 角色与权限模块 DTO ──

// CreateRoleRequest 创建角色请求
type CreateRoleRequest struct {
	Name        string   `json:"name"        binding:"required,min=2,max=100"`
	Permissions []string `json:"permissions" binding:"omitempty,dive,min=1,max=100"`
}

// PatchPermissionsRequest 调整角色权限集请求
// Grant 追加、Revoke 移除，两者都按集合语义去重
type PatchPermissionsRequest struct {
	Grant  []string `json:"grant"  binding:"omitempty,dive,min=1,max=100"`
	Revoke []string `json:"revoke" binding:"omitempty,dive,min=1,max=100"`
}

// RoleResponse 角色信息响应
type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	UpdatedAt   string   `json:"updated_at"`
}

// MergeGroupReport 单个归一化分组的合并结果
type MergeGroupReport struct {
	CanonicalToken    string   `json:"canonical_token"`
	WinnerID          string   `json:"winner_id"`
	WinnerName        string   `json:"winner_name"`
	LoserIDs          []string `json:"loser_ids"`
	MergedPermissions int      `json:"merged_permissions"` // 合并后权限总数
	ReassignedUsers   int      `json:"reassigned_users"`
}

// MergeReportResponse 角色去重合并报告
type MergeReportResponse struct {
	Groups []MergeGroupReport `json:"groups"`
}

// [自证通过] internal/dto/role.go
