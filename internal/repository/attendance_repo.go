package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/internal/model"
	pkgerrors "github.com/galadima-cyber/eRecord/pkg/errors"
)

// AttendanceRepository 签到记录数据访问接口
// 记录只增不改：没有 Update / Delete
type AttendanceRepository interface {
	// Create 单条 INSERT；(session_id, student_id) 冲突时返回 pkgerrors.ErrDuplicateKey
	Create(ctx context.Context, rec *model.AttendanceRecord) error
	Exists(ctx context.Context, sessionID, studentID string) (bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceEntry, error)
	ListByStudent(ctx context.Context, studentID string, offset, limit int) ([]model.StudentAttendance, int64, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, rec *model.AttendanceRecord) error {
	err := r.db.WithContext(ctx).Create(rec).Error
	if pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

func (r *attendanceRepo) Exists(ctx context.Context, sessionID, studentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *attendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceEntry, error) {
	var entries []model.AttendanceEntry
	err := r.db.WithContext(ctx).
		Table("attendance_records AS ar").
		Select("ar.*, u.name AS student_name, u.matric_no AS matric_no").
		Joins("LEFT JOIN users u ON u.user_id = ar.student_id").
		Where("ar.session_id = ?", sessionID).
		Order("ar.checked_in_at ASC").
		Scan(&entries).Error
	return entries, err
}

func (r *attendanceRepo) ListByStudent(ctx context.Context, studentID string, offset, limit int) ([]model.StudentAttendance, int64, error) {
	var rows []model.StudentAttendance
	var total int64

	if err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("student_id = ?", studentID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Table("attendance_records AS ar").
		Select("ar.*, s.course_code AS course_code, s.course_name AS course_name").
		Joins("LEFT JOIN lecture_sessions s ON s.session_id = ar.session_id").
		Where("ar.student_id = ?", studentID).
		Order("ar.checked_in_at DESC").
		Offset(offset).Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
