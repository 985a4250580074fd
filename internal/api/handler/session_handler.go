package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/service"
	"github.com/galadima-cyber/eRecord/pkg/response"
)

// SessionHandler 签到会话与会话规则 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
	ruleSvc    service.AttendanceRuleService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService, ruleSvc service.AttendanceRuleService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc, ruleSvc: ruleSvc}
}

// CreateSession 开启签到会话
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "course_code and location_id are required")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Create(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, session)
}

// ListSessions 本人创建的会话（管理员 all=true 查看全部）
// GET /api/v1/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid query parameters")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, total, err := h.sessionSvc.List(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListActiveSessions 当前可签到的会话
// GET /api/v1/sessions/active
func (h *SessionHandler) ListActiveSessions(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid query parameters")
		return
	}

	list, total, err := h.sessionSvc.ListActive(c.Request.Context(), &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetSession 会话详情
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// EndSession 提前结束会话（重复调用幂等）
// POST /api/v1/sessions/:id/end
func (h *SessionHandler) EndSession(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.End(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// GetRule 会话签到规则（未配置时返回默认值）
// GET /api/v1/sessions/:id/rules
func (h *SessionHandler) GetRule(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	rule, err := h.ruleSvc.Get(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, rule)
}

// UpsertRule 设置会话签到规则
// PUT /api/v1/sessions/:id/rules
func (h *SessionHandler) UpsertRule(c *gin.Context) {
	var req dto.UpsertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid request body")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	rule, err := h.ruleSvc.Upsert(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, rule)
}

// handleSessionError 统一处理会话与规则模块业务错误
func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, response.CodeNotFound, "session not found")
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, response.CodeForbidden, "permission denied")
	case errors.Is(err, service.ErrSessionLocation):
		response.BadRequest(c, response.CodeValidation, "location not found or not available")
	case errors.Is(err, service.ErrSessionInvalidWindow):
		response.BadRequest(c, response.CodeValidation, "ends_at must be after starts_at and in the future")
	case errors.Is(err, service.ErrRuleInvalidRadius):
		response.BadRequest(c, response.CodeValidation, "location_radius_meters must be a positive integer")
	case errors.Is(err, service.ErrRuleInvalidLateness):
		response.BadRequest(c, response.CodeValidation, "lateness_threshold_minutes must not be negative")
	case errors.Is(err, service.ErrRuleInvalidAutoClose):
		response.BadRequest(c, response.CodeValidation, "auto_close_minutes must be a positive integer")
	default:
		response.InternalError(c)
	}
}
