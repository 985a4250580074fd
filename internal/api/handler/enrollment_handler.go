package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/service"
	"github.com/galadima-cyber/eRecord/pkg/response"
)

// EnrollmentHandler 选课名单 HTTP 处理器
type EnrollmentHandler struct {
	enrollmentSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollmentSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentSvc: enrollmentSvc}
}

// ImportEnrollments 从 Excel 导入选课名单
// POST /api/v1/enrollments/import  (multipart/form-data, 字段 file)
func (h *EnrollmentHandler) ImportEnrollments(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, response.CodeValidation, "file is required")
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
		response.BadRequest(c, response.CodeValidation, "only .xlsx files are supported")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, response.CodeValidation, "unable to read uploaded file")
		return
	}
	defer file.Close()

	rows, err := h.enrollmentSvc.ParseImportFile(file)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	result, err := h.enrollmentSvc.Import(c.Request.Context(), rows, caller)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, result)
}

// ListEnrollments 课程选课名单
// GET /api/v1/enrollments?course_code=CSC401
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	var req dto.EnrollmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "course_code is required")
		return
	}

	list, err := h.enrollmentSvc.ListByCourse(c.Request.Context(), req.CourseCode)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list, "total": len(list)})
}

func (h *EnrollmentHandler) handleEnrollmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImportBadFile):
		response.BadRequest(c, response.CodeValidation, "file is not a valid .xlsx workbook")
	case errors.Is(err, service.ErrImportNoData):
		response.BadRequest(c, response.CodeValidation, "spreadsheet has no data rows")
	case errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, response.CodeValidation, "spreadsheet exceeds the row limit")
	case errors.Is(err, service.ErrImportBadHeader):
		response.BadRequest(c, response.CodeValidation, "header must contain matric_no and course_code columns")
	default:
		response.InternalError(c)
	}
}
