package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/internal/model"
)

// SessionFilter 会话列表过滤条件
type SessionFilter struct {
	OwnerID    string
	CourseCode string
	OpenAt     *time.Time // 非空时只返回该时刻处于签到窗口内且未结束的会话
}

// SessionRepository 签到会话数据访问接口
type SessionRepository interface {
	Create(ctx context.Context, s *model.LectureSession) error
	GetByID(ctx context.Context, id string) (*model.LectureSession, error)
	// List limit <= 0 时不分页
	List(ctx context.Context, filter SessionFilter, offset, limit int) ([]model.LectureSession, int64, error)
	End(ctx context.Context, id string, endedAt time.Time, endedBy string) (bool, error)
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *model.LectureSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.LectureSession, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var s model.LectureSession
	err := r.db.WithContext(ctx).
		Where("session_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) List(ctx context.Context, filter SessionFilter, offset, limit int) ([]model.LectureSession, int64, error) {
	var sessions []model.LectureSession
	var total int64

	db := r.db.WithContext(ctx).Model(&model.LectureSession{})
	if filter.OwnerID != "" {
		db = db.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.CourseCode != "" {
		db = db.Where("course_code = ?", filter.CourseCode)
	}
	if filter.OpenAt != nil {
		db = db.Where("status = ? AND starts_at <= ? AND expires_at >= ?",
			model.SessionStatusActive, *filter.OpenAt, *filter.OpenAt)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := db.Order("starts_at DESC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

// End 将 active 会话置为 ended；返回是否发生了状态变更
func (r *sessionRepo) End(ctx context.Context, id string, endedAt time.Time, endedBy string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.LectureSession{}).
		Where("session_id = ? AND status = ?", id, model.SessionStatusActive).
		Updates(map[string]interface{}{
			"status":     model.SessionStatusEnded,
			"ended_at":   endedAt,
			"updated_by": endedBy,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
