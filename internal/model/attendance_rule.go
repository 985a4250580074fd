package model

// 规则默认值（会话未配置规则时使用）
const (
	DefaultLatenessThresholdMinutes = 15
	DefaultRequireLocation          = true
	DefaultRequireBiometric         = true
)

// AttendanceRule 会话签到规则表 — 对应 attendance_rules（每个会话至多一条）
//
// 📝 布尔字段不设 gorm default 标签：gorm 插入时会跳过带默认值的零值字段，
// 导致显式的 false 被数据库默认值覆盖。默认值只放在迁移 SQL 中。
type AttendanceRule struct {
	SessionID                string `gorm:"type:uuid;primaryKey" json:"session_id"`
	LocationRadiusMeters     *int   `                            json:"location_radius_meters,omitempty"`
	LatenessThresholdMinutes int    `gorm:"not null"             json:"lateness_threshold_minutes"`
	AutoCloseMinutes         *int   `                            json:"auto_close_minutes,omitempty"`
	RequireLocation          bool   `gorm:"not null"             json:"require_location"`
	RequireBiometric         bool   `gorm:"not null"             json:"require_biometric"`
	BaseModel
}

// TableName 指定表名
func (AttendanceRule) TableName() string { return "attendance_rules" }

// DefaultAttendanceRule 会话未配置规则时的默认规则
func DefaultAttendanceRule(sessionID string) *AttendanceRule {
	return &AttendanceRule{
		SessionID:                sessionID,
		LatenessThresholdMinutes: DefaultLatenessThresholdMinutes,
		RequireLocation:          DefaultRequireLocation,
		RequireBiometric:         DefaultRequireBiometric,
	}
}
