package dto

import "time"

// ── 签到会话模块 DTO ──

// CreateSessionRequest 创建签到会话请求
// window_mode=fixed（默认）：立即开始，固定时长；window_mode=scheduled：必须给出 starts_at/ends_at
type CreateSessionRequest struct {
	CourseCode string     `json:"course_code" binding:"required,min=2,max=20"`
	CourseName string     `json:"course_name" binding:"omitempty,max=200"`
	LocationID string     `json:"location_id" binding:"required"`
	WindowMode string     `json:"window_mode" binding:"omitempty,oneof=fixed scheduled"`
	StartsAt   *time.Time `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
}

// SessionListRequest 会话列表查询参数
type SessionListRequest struct {
	PaginationRequest
	CourseCode string `form:"course_code" binding:"omitempty,max=20"`
	All        bool   `form:"all"` // 仅管理员有效
}

// SessionResponse 会话信息响应
type SessionResponse struct {
	ID         string  `json:"id"`
	OwnerID    string  `json:"owner_id"`
	CourseCode string  `json:"course_code"`
	CourseName string  `json:"course_name,omitempty"`
	LocationID *string `json:"location_id,omitempty"`
	WindowMode string  `json:"window_mode"`
	StartsAt   string  `json:"starts_at"`
	ExpiresAt  string  `json:"expires_at"`
	Status     string  `json:"status"`
	EndedAt    *string `json:"ended_at,omitempty"`
	IsOpen     bool    `json:"is_open"`
	CreatedAt  string  `json:"created_at"`
}
