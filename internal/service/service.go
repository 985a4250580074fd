package service

import (
	"go.uber.org/zap"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/repository"
	"github.com/galadima-cyber/eRecord/pkg/ipgeo"
	"github.com/galadima-cyber/eRecord/pkg/jwt"
	"github.com/galadima-cyber/eRecord/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth           AuthService
	User           UserService
	Location       LocationService
	Session        SessionService
	AttendanceRule AttendanceRuleService
	CheckIn        CheckInService
	VerifyLocation LocationVerifyService
	Attendance     AttendanceService
	Enrollment     EnrollmentService
	Export         ExportService
}

// Deps 外部依赖；Blacklist / Locator 可为 nil
type Deps struct {
	JWT       *jwt.Manager
	Blacklist TokenBlacklist
	Locator   ipgeo.Locator
	Metrics   *metrics.Metrics
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	attendanceCfg := &cfg.Attendance
	resolver := NewEligibilityResolver(attendanceCfg, repo, logger)

	return &Service{
		Auth:           NewAuthService(repo, deps.JWT, deps.Blacklist, logger),
		User:           NewUserService(repo, logger),
		Location:       NewLocationService(attendanceCfg, repo, logger),
		Session:        NewSessionService(attendanceCfg, repo, logger),
		AttendanceRule: NewAttendanceRuleService(attendanceCfg, repo, logger),
		CheckIn:        NewCheckInService(repo, resolver, deps.Metrics, logger),
		VerifyLocation: NewLocationVerifyService(attendanceCfg, repo, deps.Locator, logger),
		Attendance:     NewAttendanceService(repo, logger),
		Enrollment:     NewEnrollmentService(repo, logger),
		Export:         NewExportService(repo, logger),
	}
}
