package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
)

// ── 签到规则业务错误 ──

var (
	ErrRuleInvalidRadius    = errors.New("签到半径必须为正整数")
	ErrRuleInvalidLateness  = errors.New("迟到阈值不能为负数")
	ErrRuleInvalidAutoClose = errors.New("自动关闭时间必须为正整数")
)

// AttendanceRuleService 会话签到规则业务接口
type AttendanceRuleService interface {
	Get(ctx context.Context, sessionID string, caller Caller) (*dto.RuleResponse, error)
	Upsert(ctx context.Context, sessionID string, req *dto.UpsertRuleRequest, caller Caller) (*dto.RuleResponse, error)
}

type attendanceRuleService struct {
	cfg    *config.AttendanceConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAttendanceRuleService 创建 AttendanceRuleService 实例
func NewAttendanceRuleService(cfg *config.AttendanceConfig, repo *repository.Repository, logger *zap.Logger) AttendanceRuleService {
	return &attendanceRuleService{cfg: cfg, repo: repo, logger: logger}
}

func (s *attendanceRuleService) Get(ctx context.Context, sessionID string, caller Caller) (*dto.RuleResponse, error) {
	if _, err := ownedSession(ctx, s.repo, s.logger, sessionID, caller); err != nil {
		return nil, err
	}

	rule, err := s.repo.AttendanceRule.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			def := model.DefaultAttendanceRule(sessionID)
			def.LatenessThresholdMinutes = s.cfg.DefaultLatenessMinutes
			resp := toRuleResponse(def)
			resp.IsDefault = true
			return resp, nil
		}
		s.logger.Error("查询签到规则失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return toRuleResponse(rule), nil
}

// Upsert 整体覆盖规则；未提供的字段取默认值
func (s *attendanceRuleService) Upsert(ctx context.Context, sessionID string, req *dto.UpsertRuleRequest, caller Caller) (*dto.RuleResponse, error) {
	if _, err := ownedSession(ctx, s.repo, s.logger, sessionID, caller); err != nil {
		return nil, err
	}

	rule := model.DefaultAttendanceRule(sessionID)
	rule.LatenessThresholdMinutes = s.cfg.DefaultLatenessMinutes

	if req.LocationRadiusMeters != nil {
		if *req.LocationRadiusMeters <= 0 {
			return nil, ErrRuleInvalidRadius
		}
		rule.LocationRadiusMeters = req.LocationRadiusMeters
	}
	if req.LatenessThresholdMinutes != nil {
		if *req.LatenessThresholdMinutes < 0 {
			return nil, ErrRuleInvalidLateness
		}
		rule.LatenessThresholdMinutes = *req.LatenessThresholdMinutes
	}
	if req.AutoCloseMinutes != nil {
		if *req.AutoCloseMinutes <= 0 {
			return nil, ErrRuleInvalidAutoClose
		}
		rule.AutoCloseMinutes = req.AutoCloseMinutes
	}
	if req.RequireLocation != nil {
		rule.RequireLocation = *req.RequireLocation
	}
	if req.RequireBiometric != nil {
		rule.RequireBiometric = *req.RequireBiometric
	}
	rule.CreatedBy = &caller.UserID
	rule.UpdatedBy = &caller.UserID

	if err := s.repo.AttendanceRule.Upsert(ctx, rule); err != nil {
		s.logger.Error("保存签到规则失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	return toRuleResponse(rule), nil
}

// ── 内部辅助方法 ──

func toRuleResponse(rule *model.AttendanceRule) *dto.RuleResponse {
	return &dto.RuleResponse{
		SessionID:                rule.SessionID,
		LocationRadiusMeters:     rule.LocationRadiusMeters,
		LatenessThresholdMinutes: rule.LatenessThresholdMinutes,
		AutoCloseMinutes:         rule.AutoCloseMinutes,
		RequireLocation:          rule.RequireLocation,
		RequireBiometric:         rule.RequireBiometric,
	}
}
