package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/galadima-cyber/eRecord/internal/model"
)

// AttendanceRuleRepository 会话签到规则数据访问接口
type AttendanceRuleRepository interface {
	// GetBySessionID 未配置规则时返回 gorm.ErrRecordNotFound
	GetBySessionID(ctx context.Context, sessionID string) (*model.AttendanceRule, error)
	// ListBySessionIDs 批量读取，未配置规则的会话不出现在结果中
	ListBySessionIDs(ctx context.Context, sessionIDs []string) ([]model.AttendanceRule, error)
	Upsert(ctx context.Context, rule *model.AttendanceRule) error
}

type attendanceRuleRepo struct {
	db *gorm.DB
}

// NewAttendanceRuleRepo 创建 AttendanceRuleRepository 实例
func NewAttendanceRuleRepo(db *gorm.DB) AttendanceRuleRepository {
	return &attendanceRuleRepo{db: db}
}

func (r *attendanceRuleRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.AttendanceRule, error) {
	if !validID(sessionID) {
		return nil, gorm.ErrRecordNotFound
	}
	var rule model.AttendanceRule
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *attendanceRuleRepo) ListBySessionIDs(ctx context.Context, sessionIDs []string) ([]model.AttendanceRule, error) {
	var rules []model.AttendanceRule
	ids := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		if validID(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return rules, nil
	}
	err := r.db.WithContext(ctx).
		Where("session_id IN ?", ids).
		Find(&rules).Error
	return rules, err
}

func (r *attendanceRuleRepo) Upsert(ctx context.Context, rule *model.AttendanceRule) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"location_radius_meters",
				"lateness_threshold_minutes",
				"auto_close_minutes",
				"require_location",
				"require_biometric",
				"updated_at",
				"updated_by",
			}),
		}).
		Create(rule).Error
}
