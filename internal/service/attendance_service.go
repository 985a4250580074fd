package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
)

// AttendanceService 签到记录查询业务接口（只读）
type AttendanceService interface {
	ListBySession(ctx context.Context, sessionID string, caller Caller) ([]dto.AttendanceEntryResponse, error)
	ListMine(ctx context.Context, req *dto.PaginationRequest, caller Caller) ([]dto.MyAttendanceResponse, int64, error)
}

type attendanceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, logger: logger}
}

// ListBySession 会话签到名单（按签到时间升序），仅会话所有者与管理员可见
func (s *attendanceService) ListBySession(ctx context.Context, sessionID string, caller Caller) ([]dto.AttendanceEntryResponse, error) {
	if _, err := ownedSession(ctx, s.repo, s.logger, sessionID, caller); err != nil {
		return nil, err
	}

	entries, err := s.repo.Attendance.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询签到名单失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceEntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, toAttendanceEntryResponse(&entries[i]))
	}
	return result, nil
}

// ListMine 学生本人的签到记录
func (s *attendanceService) ListMine(ctx context.Context, req *dto.PaginationRequest, caller Caller) ([]dto.MyAttendanceResponse, int64, error) {
	records, total, err := s.repo.Attendance.ListByStudent(ctx, caller.UserID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询本人签到记录失败", zap.String("student_id", caller.UserID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.MyAttendanceResponse, 0, len(records))
	for _, r := range records {
		result = append(result, dto.MyAttendanceResponse{
			ID:             r.AttendanceID,
			SessionID:      r.SessionID,
			CourseCode:     r.CourseCode,
			CourseName:     r.CourseName,
			DistanceMeters: r.DistanceMeters,
			CheckedInAt:    r.CheckedInAt.UTC().Format(timeLayout),
			IsLate:         r.IsLate,
		})
	}
	return result, total, nil
}

// ── 内部辅助方法 ──

func toAttendanceEntryResponse(e *model.AttendanceEntry) dto.AttendanceEntryResponse {
	return dto.AttendanceEntryResponse{
		ID:             e.AttendanceID,
		StudentID:      e.StudentID,
		StudentName:    e.StudentName,
		MatricNo:       e.MatricNo,
		Latitude:       e.Latitude,
		Longitude:      e.Longitude,
		DistanceMeters: e.DistanceMeters,
		CheckedInAt:    e.CheckedInAt.UTC().Format(timeLayout),
		IsLate:         e.IsLate,
	}
}
