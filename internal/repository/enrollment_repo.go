package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/galadima-cyber/eRecord/internal/model"
)

// EnrollmentRepository 选课名单数据访问接口
type EnrollmentRepository interface {
	// BulkCreate 批量写入，已存在的 (course_code, student_id) 组合被跳过；返回实际新增条数
	BulkCreate(ctx context.Context, items []model.Enrollment) (int64, error)
	Exists(ctx context.Context, courseCode, studentID string) (bool, error)
	ListByCourse(ctx context.Context, courseCode string) ([]model.EnrollmentEntry, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) BulkCreate(ctx context.Context, items []model.Enrollment) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&items, 200)
	return result.RowsAffected, result.Error
}

func (r *enrollmentRepo) Exists(ctx context.Context, courseCode, studentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_code = ? AND student_id = ?", courseCode, studentID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *enrollmentRepo) ListByCourse(ctx context.Context, courseCode string) ([]model.EnrollmentEntry, error) {
	var entries []model.EnrollmentEntry
	err := r.db.WithContext(ctx).
		Table("course_enrollments AS e").
		Select("e.*, u.name AS student_name, u.matric_no AS matric_no").
		Joins("LEFT JOIN users u ON u.user_id = e.student_id").
		Where("e.course_code = ?", courseCode).
		Order("u.matric_no ASC").
		Scan(&entries).Error
	return entries, err
}
