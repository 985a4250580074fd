package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
	"github.com/galadima-cyber/eRecord/pkg/geo"
)

// IneligibleReason 不可签到的原因（机器可读）
type IneligibleReason string

const (
	ReasonCoordinatesOutOfRange   IneligibleReason = "coordinates_out_of_range"
	ReasonSessionNotFound         IneligibleReason = "session_not_found"
	ReasonSessionNotStarted       IneligibleReason = "session_not_started"
	ReasonSessionExpired          IneligibleReason = "session_expired"
	ReasonNotEnrolled             IneligibleReason = "not_enrolled"
	ReasonAlreadyCheckedIn        IneligibleReason = "already_checked_in"
	ReasonNoLocationBound         IneligibleReason = "no_location_bound"
	ReasonLocationDataUnavailable IneligibleReason = "location_data_unavailable"
	ReasonLocationTooFar          IneligibleReason = "location_too_far"
)

// Eligibility 资格判定结果
// Eligible=false 时 Reason 非空；LocationTooFar 同时给出 Distance 与 RadiusMeters
type Eligibility struct {
	Eligible     bool
	Reason       IneligibleReason
	Distance     float64
	RadiusMeters int

	Session *model.LectureSession // 会话存在时填充
	Rule    *model.AttendanceRule // 生效规则（未配置时为默认规则）
}

func ineligible(reason IneligibleReason) *Eligibility {
	return &Eligibility{Reason: reason}
}

// EligibilityResolver 签到资格判定
//
// 判定顺序（廉价且权威的检查在前）：
//  1. 坐标范围（不访问存储）
//  2. 会话存在
//  3. 会话已结束 / 已过截止时间 / 尚未开始
//  4. 选课校验（attendance.require_enrollment 开启时）
//  5. 是否已签到（仅作提前返回，防重依赖唯一约束）
//  6. 绑定地点
//  7. 半径：规则 → 地点 → 全局默认
//  8. 距离
//
// 返回的 error 只表示基础设施故障（可重试），语义上的不可签到通过 Eligibility 表达。
type EligibilityResolver interface {
	Resolve(ctx context.Context, sessionID, studentID string, lat, lon float64) (*Eligibility, error)
}

type eligibilityResolver struct {
	cfg    *config.AttendanceConfig
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewEligibilityResolver 创建 EligibilityResolver 实例
func NewEligibilityResolver(cfg *config.AttendanceConfig, repo *repository.Repository, logger *zap.Logger) EligibilityResolver {
	return &eligibilityResolver{cfg: cfg, repo: repo, now: time.Now, logger: logger}
}

func (r *eligibilityResolver) Resolve(ctx context.Context, sessionID, studentID string, lat, lon float64) (*Eligibility, error) {
	// 1. 坐标范围
	if !geo.ValidCoordinate(lat, lon) {
		return ineligible(ReasonCoordinatesOutOfRange), nil
	}

	// 2. 会话
	session, err := r.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ineligible(ReasonSessionNotFound), nil
		}
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}

	rule, err := loadRule(ctx, r.repo, r.cfg, sessionID)
	if err != nil {
		return nil, err
	}

	result := &Eligibility{Session: session, Rule: rule}

	// 3. 时间窗口
	now := r.now()
	if session.IsExpired(now, rule.AutoCloseMinutes) {
		result.Reason = ReasonSessionExpired
		return result, nil
	}
	if now.Before(session.StartsAt) {
		result.Reason = ReasonSessionNotStarted
		return result, nil
	}

	// 4. 选课
	if r.cfg.RequireEnrollment {
		enrolled, err := r.repo.Enrollment.Exists(ctx, session.CourseCode, studentID)
		if err != nil {
			return nil, fmt.Errorf("查询选课失败: %w", err)
		}
		if !enrolled {
			result.Reason = ReasonNotEnrolled
			return result, nil
		}
	}

	// 5. 已签到
	exists, err := r.repo.Attendance.Exists(ctx, sessionID, studentID)
	if err != nil {
		return nil, fmt.Errorf("查询签到记录失败: %w", err)
	}
	if exists {
		result.Reason = ReasonAlreadyCheckedIn
		return result, nil
	}

	// 6. 地点
	loc, reason, err := resolveLocation(ctx, r.repo, session)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		result.Reason = reason
		return result, nil
	}

	// 7-8. 半径与距离
	result.RadiusMeters = effectiveRadius(rule, loc, r.cfg.DefaultRadiusMeters)
	result.Distance = geo.Distance(loc.Latitude, loc.Longitude, lat, lon)
	if !geo.Within(result.Distance, result.RadiusMeters) {
		result.Reason = ReasonLocationTooFar
		return result, nil
	}

	result.Eligible = true
	return result, nil
}

// ── 资格判定与定位预检共用的辅助函数 ──

// loadRule 读取会话规则，未配置时返回默认规则（迟到阈值取全局配置）
func loadRule(ctx context.Context, repo *repository.Repository, cfg *config.AttendanceConfig, sessionID string) (*model.AttendanceRule, error) {
	rule, err := repo.AttendanceRule.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			def := model.DefaultAttendanceRule(sessionID)
			def.LatenessThresholdMinutes = cfg.DefaultLatenessMinutes
			return def, nil
		}
		return nil, fmt.Errorf("查询签到规则失败: %w", err)
	}
	return rule, nil
}

// resolveLocation 解析会话绑定的地点
// 未绑定 / 已删除 → NoLocationBound；坐标不可用 → LocationDataUnavailable
func resolveLocation(ctx context.Context, repo *repository.Repository, session *model.LectureSession) (*model.Location, IneligibleReason, error) {
	if session.LocationID == nil || *session.LocationID == "" {
		return nil, ReasonNoLocationBound, nil
	}
	loc, err := repo.Location.GetByID(ctx, *session.LocationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ReasonNoLocationBound, nil
		}
		return nil, "", fmt.Errorf("查询地点失败: %w", err)
	}
	if !geo.ValidCoordinate(loc.Latitude, loc.Longitude) {
		return nil, ReasonLocationDataUnavailable, nil
	}
	return loc, "", nil
}

// effectiveRadius 规则半径 → 地点半径 → 全局默认半径
func effectiveRadius(rule *model.AttendanceRule, loc *model.Location, defaultRadius int) int {
	if rule != nil && rule.LocationRadiusMeters != nil && *rule.LocationRadiusMeters > 0 {
		return *rule.LocationRadiusMeters
	}
	if loc != nil && loc.RadiusMeters > 0 {
		return loc.RadiusMeters
	}
	return defaultRadius
}
