package dto

import "encoding/json"

// ── 签到模块 DTO ──
// 字段命名沿用移动端既有的 camelCase 约定

// CheckInRequest 签到请求
type CheckInRequest struct {
	SessionID  string          `json:"sessionId"  binding:"required"`
	Latitude   *float64        `json:"latitude"   binding:"required"`
	Longitude  *float64        `json:"longitude"  binding:"required"`
	DeviceInfo json.RawMessage `json:"deviceInfo"`
}

// CheckInResponse 签到响应
type CheckInResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *CheckInData `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// CheckInData 签到成功数据
type CheckInData struct {
	AttendanceID string `json:"attendanceId"`
	Distance     int    `json:"distance"`
	CheckedInAt  string `json:"checkedInAt"`
	IsLate       bool   `json:"isLate"`
}

// VerifyLocationRequest 定位预检请求（只读，不写签到记录）
type VerifyLocationRequest struct {
	SessionID string   `json:"sessionId" binding:"required"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// VerifyLocationResponse 定位预检响应
type VerifyLocationResponse struct {
	Verified bool   `json:"verified"`
	Method   string `json:"method"` // gps | ip | none
	Distance *int   `json:"distance,omitempty"`
	Error    string `json:"error,omitempty"`
}
