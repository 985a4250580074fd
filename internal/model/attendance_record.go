package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttendanceRecord 签到记录表 — 对应 attendance_records
// 仅由签到协调器写入；写入后不再修改或删除。
// (session_id, student_id) 唯一索引是防重复签到的唯一依据。
type AttendanceRecord struct {
	AttendanceID   string         `gorm:"type:uuid;primaryKey"                                                   json:"attendance_id"`
	SessionID      string         `gorm:"type:uuid;not null;uniqueIndex:uk_attendance_session_student,priority:1" json:"session_id"`
	StudentID      string         `gorm:"type:uuid;not null;uniqueIndex:uk_attendance_session_student,priority:2;index" json:"student_id"`
	Latitude       float64        `gorm:"not null"                                                               json:"latitude"`
	Longitude      float64        `gorm:"not null"                                                               json:"longitude"`
	DistanceMeters int            `gorm:"not null"                                                               json:"distance_meters"`
	CheckedInAt    time.Time      `gorm:"not null"                                                               json:"checked_in_at"`
	IsLate         bool           `gorm:"not null"                                                               json:"is_late"`
	DeviceInfo     datatypes.JSON `                                                                              json:"device_info,omitempty"`
	ClientIP       string         `gorm:"type:varchar(45)"                                                       json:"client_ip,omitempty"`
	CreatedAt      time.Time      `gorm:"not null"                                                               json:"created_at"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// BeforeCreate 生成主键
func (r *AttendanceRecord) BeforeCreate(_ *gorm.DB) error {
	ensureID(&r.AttendanceID)
	return nil
}
