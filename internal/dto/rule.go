package dto

// ── 签到规则模块 DTO ──

// UpsertRuleRequest 设置会话签到规则
// 未提供的字段取默认值；location_radius_meters / auto_close_minutes 为 null 表示不覆盖
type UpsertRuleRequest struct {
	LocationRadiusMeters     *int  `json:"location_radius_meters"`
	LatenessThresholdMinutes *int  `json:"lateness_threshold_minutes"`
	AutoCloseMinutes         *int  `json:"auto_close_minutes"`
	RequireLocation          *bool `json:"require_location"`
	RequireBiometric         *bool `json:"require_biometric"`
}

// RuleResponse 会话签到规则响应
type RuleResponse struct {
	SessionID                string `json:"session_id"`
	LocationRadiusMeters     *int   `json:"location_radius_meters"`
	LatenessThresholdMinutes int    `json:"lateness_threshold_minutes"`
	AutoCloseMinutes         *int   `json:"auto_close_minutes"`
	RequireLocation          bool   `json:"require_location"`
	RequireBiometric         bool   `json:"require_biometric"`
	IsDefault                bool   `json:"is_default"` // 会话尚未配置规则
}
