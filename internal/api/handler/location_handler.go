package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/service"
	"github.com/galadima-cyber/eRecord/pkg/response"
)

// LocationHandler 地点模块 HTTP 处理器
type LocationHandler struct {
	locationSvc service.LocationService
}

// NewLocationHandler 创建 LocationHandler
func NewLocationHandler(locationSvc service.LocationService) *LocationHandler {
	return &LocationHandler{locationSvc: locationSvc}
}

// ListLocations 获取地点列表
// GET /api/v1/locations?lat=&lon=&precision=&all=
func (h *LocationHandler) ListLocations(c *gin.Context) {
	var req dto.LocationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid query parameters")
		return
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		response.BadRequest(c, response.CodeValidation, "lat and lon must be provided together")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	locations, err := h.locationSvc.List(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": locations})
}

// GetLocation 获取地点详情
// GET /api/v1/locations/:id
func (h *LocationHandler) GetLocation(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.GetByID(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OK(c, location)
}

// CreateLocation 创建地点
// POST /api/v1/locations
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req dto.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "name, latitude and longitude are required")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.Create(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.Created(c, location)
}

// UpdateLocation 更新地点
// PUT /api/v1/locations/:id
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid request body")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	location, err := h.locationSvc.Update(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OK(c, location)
}

// DeleteLocation 删除地点（软删除；已绑定的会话将无法签到）
// DELETE /api/v1/locations/:id
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.locationSvc.Delete(c.Request.Context(), c.Param("id"), caller); err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleLocationError 统一处理地点模块业务错误
func (h *LocationHandler) handleLocationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLocationNotFound):
		response.NotFound(c, response.CodeNotFound, "location not found")
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, response.CodeForbidden, "permission denied")
	case errors.Is(err, service.ErrLocationInvalidCoord):
		response.BadRequest(c, response.CodeValidation, "latitude must be within [-90, 90] and longitude within [-180, 180]")
	case errors.Is(err, service.ErrLocationInvalidRange):
		response.BadRequest(c, response.CodeValidation, "radius_meters must be a positive integer")
	case errors.Is(err, service.ErrLocationInvalidName):
		response.BadRequest(c, response.CodeValidation, "name must not be empty")
	default:
		response.InternalError(c)
	}
}
