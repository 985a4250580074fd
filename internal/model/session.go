package model

import (
	"time"

	"gorm.io/gorm"
)

// 会话状态
const (
	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// LectureSession 课堂签到会话表 — 对应 lecture_sessions
//
// 签到窗口为 [StartsAt, ExpiresAt]，恒有 ExpiresAt > StartsAt（库表 CHECK 约束兜底）。
// 手动结束不改写 ExpiresAt，而是置 Status=ended 并记录 EndedAt。
type LectureSession struct {
	SessionID  string     `gorm:"type:uuid;primaryKey"                                  json:"session_id"`
	OwnerID    string     `gorm:"type:uuid;not null;index"                              json:"owner_id"`
	CourseCode string     `gorm:"type:varchar(20);not null;index"                       json:"course_code"`
	CourseName string     `gorm:"type:varchar(200)"                                     json:"course_name,omitempty"`
	LocationID *string    `gorm:"type:uuid;index"                                       json:"location_id,omitempty"`
	WindowMode string     `gorm:"type:varchar(20);not null"                             json:"window_mode"`
	StartsAt   time.Time  `gorm:"not null"                                              json:"starts_at"`
	ExpiresAt  time.Time  `gorm:"not null;check:chk_session_window,expires_at > starts_at" json:"expires_at"`
	Status     string     `gorm:"type:varchar(20);not null;index"                       json:"status"`
	EndedAt    *time.Time `                                                             json:"ended_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (LectureSession) TableName() string { return "lecture_sessions" }

// BeforeCreate 生成主键并补齐状态
func (s *LectureSession) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.SessionID)
	if s.Status == "" {
		s.Status = SessionStatusActive
	}
	return nil
}

// EffectiveExpiry 计算实际截止时间
// autoCloseMinutes 非空时取 min(ExpiresAt, StartsAt + autoClose)
func (s *LectureSession) EffectiveExpiry(autoCloseMinutes *int) time.Time {
	if autoCloseMinutes == nil || *autoCloseMinutes <= 0 {
		return s.ExpiresAt
	}
	closeAt := s.StartsAt.Add(time.Duration(*autoCloseMinutes) * time.Minute)
	if closeAt.Before(s.ExpiresAt) {
		return closeAt
	}
	return s.ExpiresAt
}

// IsExpired 已手动结束，或 now 严格晚于实际截止时间
func (s *LectureSession) IsExpired(now time.Time, autoCloseMinutes *int) bool {
	if s.Status == SessionStatusEnded {
		return true
	}
	return now.After(s.EffectiveExpiry(autoCloseMinutes))
}
