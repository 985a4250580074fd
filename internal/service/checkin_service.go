package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
	pkgerrors "github.com/galadima-cyber/eRecord/pkg/errors"
	"github.com/galadima-cyber/eRecord/pkg/geo"
	"github.com/galadima-cyber/eRecord/pkg/metrics"
)

// ErrCheckInUnavailable 存储暂时不可用，客户端可重试
var ErrCheckInUnavailable = errors.New("签到服务暂时不可用")

// IneligibleError 签到被拒绝（业务原因，不可重试）
type IneligibleError struct {
	Reason       IneligibleReason
	Distance     float64
	RadiusMeters int
	CourseCode   string
	OpensAt      time.Time
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("不可签到: %s", e.Reason)
}

// Message 面向学生的提示语
func (e *IneligibleError) Message() string {
	switch e.Reason {
	case ReasonCoordinatesOutOfRange:
		return "Invalid coordinates"
	case ReasonSessionNotFound:
		return "Session not found"
	case ReasonSessionNotStarted:
		return "Session has not started"
	case ReasonSessionExpired:
		return "Session has expired"
	case ReasonNotEnrolled:
		return "Not enrolled in this course"
	case ReasonAlreadyCheckedIn:
		return "Already checked in"
	case ReasonNoLocationBound:
		return "Class location not configured"
	case ReasonLocationDataUnavailable:
		return "Class location unavailable"
	case ReasonLocationTooFar:
		return fmt.Sprintf("You are %dm away from the class location. Please move closer (within %dm)",
			geo.RoundMeters(e.Distance), e.RadiusMeters)
	default:
		return "Check-in not allowed"
	}
}

// Detail 机器可读程度更高的错误描述
func (e *IneligibleError) Detail() string {
	switch e.Reason {
	case ReasonCoordinatesOutOfRange:
		return "Latitude must be between -90 and 90, longitude between -180 and 180"
	case ReasonSessionNotFound:
		return "Invalid session ID"
	case ReasonSessionNotStarted:
		if !e.OpensAt.IsZero() {
			return "Check-in opens at " + e.OpensAt.UTC().Format(timeLayout)
		}
		return "This session has not opened for check-in yet"
	case ReasonSessionExpired:
		return "This session is no longer active"
	case ReasonNotEnrolled:
		if e.CourseCode != "" {
			return "You are not enrolled in " + e.CourseCode
		}
		return "You are not enrolled in this course"
	case ReasonAlreadyCheckedIn:
		return "You have already checked in to this session"
	case ReasonNoLocationBound:
		return "This session has no class location"
	case ReasonLocationDataUnavailable:
		return "Class location coordinates are invalid"
	case ReasonLocationTooFar:
		return "Location not within allowed radius"
	default:
		return string(e.Reason)
	}
}

// CheckInInput 签到输入；学生身份由调用方从 JWT 中取得
type CheckInInput struct {
	SessionID  string
	Latitude   float64
	Longitude  float64
	DeviceInfo json.RawMessage
	ClientIP   string
}

// CheckInResult 签到成功结果
type CheckInResult struct {
	AttendanceID string
	SessionID    string
	CourseCode   string
	Distance     int
	CheckedInAt  time.Time
	IsLate       bool
}

// CheckInService 签到协调器
type CheckInService interface {
	CheckIn(ctx context.Context, studentID string, in *CheckInInput) (*CheckInResult, error)
}

type checkInService struct {
	repo     *repository.Repository
	resolver EligibilityResolver
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *zap.Logger
}

// NewCheckInService 创建 CheckInService 实例
func NewCheckInService(
	repo *repository.Repository,
	resolver EligibilityResolver,
	m *metrics.Metrics,
	logger *zap.Logger,
) CheckInService {
	return &checkInService{
		repo:     repo,
		resolver: resolver,
		metrics:  m,
		now:      time.Now,
		logger:   logger,
	}
}

// CheckIn 判定资格后写入唯一一条签到记录
// 成功恰好写入一行；任何失败都不写入，也不修改其他实体
func (s *checkInService) CheckIn(ctx context.Context, studentID string, in *CheckInInput) (*CheckInResult, error) {
	// 1. 每次都重新判定，不复用预检结果
	el, err := s.resolver.Resolve(ctx, in.SessionID, studentID, in.Latitude, in.Longitude)
	if err != nil {
		s.logger.Error("签到资格判定失败",
			zap.String("session_id", in.SessionID), zap.String("student_id", studentID), zap.Error(err))
		s.metrics.CheckIn("unavailable")
		return nil, ErrCheckInUnavailable
	}
	if !el.Eligible {
		s.metrics.CheckIn(string(el.Reason))
		return nil, newIneligibleError(el)
	}

	// 2. 写入；并发下的重复由唯一约束兜底
	checkedInAt := s.now().UTC()
	rec := &model.AttendanceRecord{
		SessionID:      in.SessionID,
		StudentID:      studentID,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		DistanceMeters: geo.RoundMeters(el.Distance),
		CheckedInAt:    checkedInAt,
		IsLate:         isLate(el.Session, el.Rule, checkedInAt),
		ClientIP:       in.ClientIP,
		CreatedAt:      checkedInAt,
	}
	if len(in.DeviceInfo) > 0 && string(in.DeviceInfo) != "null" {
		rec.DeviceInfo = datatypes.JSON(in.DeviceInfo)
	}

	if err := s.repo.Attendance.Create(ctx, rec); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			s.metrics.CheckIn(string(ReasonAlreadyCheckedIn))
			return nil, &IneligibleError{Reason: ReasonAlreadyCheckedIn, CourseCode: el.Session.CourseCode}
		}
		s.logger.Error("写入签到记录失败",
			zap.String("session_id", in.SessionID), zap.String("student_id", studentID), zap.Error(err))
		s.metrics.CheckIn("unavailable")
		return nil, ErrCheckInUnavailable
	}

	s.metrics.CheckIn("success")
	s.logger.Info("签到成功",
		zap.String("attendance_id", rec.AttendanceID),
		zap.String("session_id", in.SessionID),
		zap.String("student_id", studentID),
		zap.Int("distance", rec.DistanceMeters),
	)

	return &CheckInResult{
		AttendanceID: rec.AttendanceID,
		SessionID:    in.SessionID,
		CourseCode:   el.Session.CourseCode,
		Distance:     rec.DistanceMeters,
		CheckedInAt:  checkedInAt,
		IsLate:       rec.IsLate,
	}, nil
}

// ── 内部辅助方法 ──

func newIneligibleError(el *Eligibility) *IneligibleError {
	e := &IneligibleError{
		Reason:       el.Reason,
		Distance:     el.Distance,
		RadiusMeters: el.RadiusMeters,
	}
	if el.Session != nil {
		e.CourseCode = el.Session.CourseCode
		if el.Reason == ReasonSessionNotStarted {
			e.OpensAt = el.Session.StartsAt
		}
	}
	return e
}

// isLate 签到时间晚于 开始时间 + 迟到阈值
func isLate(session *model.LectureSession, rule *model.AttendanceRule, at time.Time) bool {
	threshold := model.DefaultLatenessThresholdMinutes
	if rule != nil {
		threshold = rule.LatenessThresholdMinutes
	}
	return at.After(session.StartsAt.Add(time.Duration(threshold) * time.Minute))
}
