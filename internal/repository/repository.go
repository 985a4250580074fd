package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User           UserRepository
	Location       LocationRepository
	Session        SessionRepository
	Attendance     AttendanceRepository
	AttendanceRule AttendanceRuleRepository
	Enrollment     EnrollmentRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:           NewUserRepo(db),
		Location:       NewLocationRepo(db),
		Session:        NewSessionRepo(db),
		Attendance:     NewAttendanceRepo(db),
		AttendanceRule: NewAttendanceRuleRepo(db),
		Enrollment:     NewEnrollmentRepo(db),
	}
}

// validID 主键均为 UUID 列；格式非法的 ID 不下发查询，按记录不存在处理
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
