package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/galadima-cyber/eRecord/internal/api/middleware"
	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/service"
	"github.com/galadima-cyber/eRecord/pkg/response"
)

// CheckInHandler 签到模块 HTTP 处理器
// 📝 签到接口沿用移动端的 {success, message, data, error} 响应体，不走统一 Response 包装
type CheckInHandler struct {
	checkInSvc service.CheckInService
	verifySvc  service.LocationVerifyService
}

// NewCheckInHandler 创建 CheckInHandler
func NewCheckInHandler(checkInSvc service.CheckInService, verifySvc service.LocationVerifyService) *CheckInHandler {
	return &CheckInHandler{checkInSvc: checkInSvc, verifySvc: verifySvc}
}

// CheckInUnauthorized 签到接口的 401 响应，供 JWT 中间件使用
func CheckInUnauthorized(c *gin.Context, _ string) {
	c.JSON(http.StatusUnauthorized, dto.CheckInResponse{
		Success: false,
		Message: "Authentication required",
		Error:   "User not authenticated",
	})
}

// CheckInRateLimited 签到接口的 429 响应，供限流中间件使用
func CheckInRateLimited(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, dto.CheckInResponse{
		Success: false,
		Message: "Too many requests",
		Error:   "Too many check-in attempts, please try again later",
	})
}

// CheckIn 学生签到
// POST /api/v1/checkin
func (h *CheckInHandler) CheckIn(c *gin.Context) {
	studentID := c.GetString(middleware.ContextUserID)
	if studentID == "" {
		CheckInUnauthorized(c, "")
		return
	}

	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.CheckInResponse{
			Success: false,
			Message: "Missing required fields",
			Error:   "sessionId, latitude, and longitude are required",
		})
		return
	}

	result, err := h.checkInSvc.CheckIn(c.Request.Context(), studentID, &service.CheckInInput{
		SessionID:  req.SessionID,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		DeviceInfo: req.DeviceInfo,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		h.handleCheckInError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CheckInResponse{
		Success: true,
		Message: "Successfully checked in to " + result.CourseCode + "!",
		Data: &dto.CheckInData{
			AttendanceID: result.AttendanceID,
			Distance:     result.Distance,
			CheckedInAt:  result.CheckedInAt.Format(time.RFC3339),
			IsLate:       result.IsLate,
		},
	})
}

// VerifyLocation 定位预检（只读）
// POST /api/v1/verify-location
func (h *CheckInHandler) VerifyLocation(c *gin.Context) {
	var req dto.VerifyLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "sessionId is required")
		return
	}

	result, err := h.verifySvc.Verify(c.Request.Context(), req.SessionID, req.Latitude, req.Longitude, c.ClientIP())
	if err != nil {
		response.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleCheckInError 把签到结果映射为 HTTP 状态与提示语
func (h *CheckInHandler) handleCheckInError(c *gin.Context, err error) {
	var ineligible *service.IneligibleError
	switch {
	case errors.As(err, &ineligible):
		status := http.StatusBadRequest
		if ineligible.Reason == service.ReasonSessionNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, dto.CheckInResponse{
			Success: false,
			Message: ineligible.Message(),
			Error:   ineligible.Detail(),
		})
	default:
		// ErrCheckInUnavailable 及其他未预期错误，不向客户端暴露细节
		c.JSON(http.StatusInternalServerError, dto.CheckInResponse{
			Success: false,
			Message: "Failed to record attendance",
			Error:   "Database error during check-in",
		})
	}
}
