package model

import "gorm.io/gorm"

// 用户角色
const (
	RoleStudent  = "student"
	RoleLecturer = "lecturer"
	RoleAdmin    = "admin"
)

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey"                           json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	MatricNo     string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"matric_no"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	SoftDeleteModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 生成主键
func (u *User) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.UserID)
	return nil
}

// IsStaff 讲师或管理员
func (u *User) IsStaff() bool {
	return u.Role == RoleLecturer || u.Role == RoleAdmin
}
