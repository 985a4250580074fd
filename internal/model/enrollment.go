package model

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment 选课名单表 — 对应 course_enrollments
type Enrollment struct {
	EnrollmentID string    `gorm:"type:uuid;primaryKey"                                                json:"enrollment_id"`
	CourseCode   string    `gorm:"type:varchar(20);not null;uniqueIndex:uk_enrollment_course_student,priority:1" json:"course_code"`
	StudentID    string    `gorm:"type:uuid;not null;uniqueIndex:uk_enrollment_course_student,priority:2"        json:"student_id"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                                  json:"created_at"`
	CreatedBy    *string   `gorm:"type:uuid"                                                           json:"created_by,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "course_enrollments" }

// BeforeCreate 生成主键
func (e *Enrollment) BeforeCreate(_ *gorm.DB) error {
	ensureID(&e.EnrollmentID)
	return nil
}
