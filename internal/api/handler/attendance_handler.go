package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/service"
	"github.com/galadima-cyber/eRecord/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AttendanceHandler 签到名单与导出 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
	exportSvc     service.ExportService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService, exportSvc service.ExportService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, exportSvc: exportSvc}
}

// ListSessionAttendance 会话签到名单
// GET /api/v1/sessions/:id/attendance
func (h *AttendanceHandler) ListSessionAttendance(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.attendanceSvc.ListBySession(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list, "total": len(list)})
}

// ExportSessionAttendance 导出会话签到名单
// GET /api/v1/sessions/:id/attendance/export
func (h *AttendanceHandler) ExportSessionAttendance(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportSessionAttendance(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListMyAttendance 学生本人签到记录
// GET /api/v1/attendance/me
func (h *AttendanceHandler) ListMyAttendance(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid query parameters")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, total, err := h.attendanceSvc.ListMine(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, response.CodeNotFound, "session not found")
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, response.CodeForbidden, "permission denied")
	default:
		response.InternalError(c)
	}
}
