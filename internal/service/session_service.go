package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
)

// ── 会话模块业务错误 ──

var (
	ErrSessionNotFound      = errors.New("签到会话不存在")
	ErrSessionInvalidWindow = errors.New("签到窗口无效：结束时间必须晚于开始时间且晚于当前时间")
	ErrSessionLocation      = errors.New("会话绑定的地点不存在或不可用")
)

// SessionService 签到会话业务接口
type SessionService interface {
	Create(ctx context.Context, req *dto.CreateSessionRequest, caller Caller) (*dto.SessionResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SessionResponse, error)
	List(ctx context.Context, req *dto.SessionListRequest, caller Caller) ([]dto.SessionResponse, int64, error)
	ListActive(ctx context.Context, req *dto.SessionListRequest) ([]dto.SessionResponse, int64, error)
	End(ctx context.Context, id string, caller Caller) (*dto.SessionResponse, error)
}

type sessionService struct {
	cfg    *config.AttendanceConfig
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(cfg *config.AttendanceConfig, repo *repository.Repository, logger *zap.Logger) SessionService {
	return &sessionService{cfg: cfg, repo: repo, now: time.Now, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *sessionService) Create(ctx context.Context, req *dto.CreateSessionRequest, caller Caller) (*dto.SessionResponse, error) {
	// 1. 地点必须存在且调用者有权使用
	loc, err := s.repo.Location.GetByID(ctx, req.LocationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionLocation
		}
		s.logger.Error("查询地点失败", zap.String("location_id", req.LocationID), zap.Error(err))
		return nil, err
	}
	if !caller.CanManage(loc.OwnerID) {
		return nil, ErrPermissionDenied
	}

	// 2. 计算签到窗口
	mode := req.WindowMode
	if mode == "" {
		mode = s.cfg.DefaultWindowMode
	}
	now := s.now().UTC()
	var startsAt, expiresAt time.Time
	switch mode {
	case config.WindowModeScheduled:
		if req.StartsAt == nil || req.EndsAt == nil {
			return nil, ErrSessionInvalidWindow
		}
		startsAt, expiresAt = req.StartsAt.UTC(), req.EndsAt.UTC()
		if !expiresAt.After(startsAt) || !expiresAt.After(now) {
			return nil, ErrSessionInvalidWindow
		}
	default:
		mode = config.WindowModeFixed
		startsAt, expiresAt = now, now.Add(s.cfg.FixedWindow)
	}

	locationID := loc.LocationID
	session := &model.LectureSession{
		OwnerID:    caller.UserID,
		CourseCode: strings.ToUpper(strings.TrimSpace(req.CourseCode)),
		CourseName: strings.TrimSpace(req.CourseName),
		LocationID: &locationID,
		WindowMode: mode,
		StartsAt:   startsAt,
		ExpiresAt:  expiresAt,
		Status:     model.SessionStatusActive,
	}
	session.CreatedBy = &caller.UserID
	session.UpdatedBy = &caller.UserID

	if err := s.repo.Session.Create(ctx, session); err != nil {
		s.logger.Error("创建签到会话失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("签到会话已创建",
		zap.String("session_id", session.SessionID),
		zap.String("course_code", session.CourseCode),
		zap.String("window_mode", mode),
		zap.Time("expires_at", expiresAt),
	)

	return s.toSessionResponse(session, nil, now), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *sessionService) GetByID(ctx context.Context, id string) (*dto.SessionResponse, error) {
	session, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	rule, err := loadRule(ctx, s.repo, s.cfg, id)
	if err != nil {
		s.logger.Error("查询签到规则失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	return s.toSessionResponse(session, rule, s.now()), nil
}

// ────────────────────── List ──────────────────────

// List 调用者本人创建的会话；管理员 all=true 时不限
func (s *sessionService) List(ctx context.Context, req *dto.SessionListRequest, caller Caller) ([]dto.SessionResponse, int64, error) {
	filter := repository.SessionFilter{
		OwnerID:    caller.UserID,
		CourseCode: strings.ToUpper(strings.TrimSpace(req.CourseCode)),
	}
	if req.All && caller.IsAdmin() {
		filter.OwnerID = ""
	}
	return s.list(ctx, filter, &req.PaginationRequest, false)
}

// ListActive 当前可签到的会话（已考虑规则中的自动关闭）
func (s *sessionService) ListActive(ctx context.Context, req *dto.SessionListRequest) ([]dto.SessionResponse, int64, error) {
	now := s.now().UTC()
	filter := repository.SessionFilter{
		CourseCode: strings.ToUpper(strings.TrimSpace(req.CourseCode)),
		OpenAt:     &now,
	}
	return s.list(ctx, filter, &req.PaginationRequest, true)
}

// ────────────────────── End ──────────────────────

// End 手动结束会话；重复结束直接返回当前状态
func (s *sessionService) End(ctx context.Context, id string, caller Caller) (*dto.SessionResponse, error) {
	session, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(session.OwnerID) {
		return nil, ErrPermissionDenied
	}

	now := s.now().UTC()
	changed, err := s.repo.Session.End(ctx, id, now, caller.UserID)
	if err != nil {
		s.logger.Error("结束签到会话失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	if changed {
		s.logger.Info("签到会话已结束", zap.String("session_id", id), zap.String("ended_by", caller.UserID))
	}

	session, err = s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toSessionResponse(session, nil, now), nil
}

// ── 内部辅助方法 ──

func (s *sessionService) get(ctx context.Context, id string) (*model.LectureSession, error) {
	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询签到会话失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	return session, nil
}

func (s *sessionService) list(ctx context.Context, filter repository.SessionFilter, page *dto.PaginationRequest, openOnly bool) ([]dto.SessionResponse, int64, error) {
	offset, limit := page.GetOffset(), page.GetPageSize()
	if openOnly {
		// 自动关闭只记录在规则里，先取全部候选会话，过滤后再计数分页
		offset, limit = 0, 0
	}

	sessions, total, err := s.repo.Session.List(ctx, filter, offset, limit)
	if err != nil {
		s.logger.Error("列出签到会话失败", zap.Error(err))
		return nil, 0, err
	}

	rules, err := s.loadRules(ctx, sessions)
	if err != nil {
		s.logger.Error("批量查询签到规则失败", zap.Int("count", len(sessions)), zap.Error(err))
		return nil, 0, err
	}

	now := s.now()
	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp := s.toSessionResponse(&sessions[i], rules[sessions[i].SessionID], now)
		if openOnly && !resp.IsOpen {
			continue
		}
		result = append(result, *resp)
	}
	if !openOnly {
		return result, total, nil
	}

	start := page.GetOffset()
	if start > len(result) {
		start = len(result)
	}
	end := start + page.GetPageSize()
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], int64(len(result)), nil
}

// loadRules 批量读取会话规则，session_id → 规则；未配置的会话不在映射中
func (s *sessionService) loadRules(ctx context.Context, sessions []model.LectureSession) (map[string]*model.AttendanceRule, error) {
	rulesByID := make(map[string]*model.AttendanceRule, len(sessions))
	if len(sessions) == 0 {
		return rulesByID, nil
	}
	ids := make([]string, 0, len(sessions))
	for i := range sessions {
		ids = append(ids, sessions[i].SessionID)
	}
	rules, err := s.repo.AttendanceRule.ListBySessionIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		rulesByID[rules[i].SessionID] = &rules[i]
	}
	return rulesByID, nil
}

func (s *sessionService) toSessionResponse(session *model.LectureSession, rule *model.AttendanceRule, now time.Time) *dto.SessionResponse {
	var autoClose *int
	if rule != nil {
		autoClose = rule.AutoCloseMinutes
	}
	resp := &dto.SessionResponse{
		ID:         session.SessionID,
		OwnerID:    session.OwnerID,
		CourseCode: session.CourseCode,
		CourseName: session.CourseName,
		LocationID: session.LocationID,
		WindowMode: session.WindowMode,
		StartsAt:   session.StartsAt.UTC().Format(timeLayout),
		ExpiresAt:  session.EffectiveExpiry(autoClose).UTC().Format(timeLayout),
		Status:     session.Status,
		IsOpen:     !session.IsExpired(now, autoClose) && !now.Before(session.StartsAt),
		CreatedAt:  session.CreatedAt.UTC().Format(timeLayout),
	}
	if session.EndedAt != nil {
		ended := session.EndedAt.UTC().Format(timeLayout)
		resp.EndedAt = &ended
	}
	return resp
}
