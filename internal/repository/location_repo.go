package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/internal/model"
)

// LocationFilter 地点列表过滤条件
type LocationFilter struct {
	OwnerID       string // 为空表示不限（管理员）
	GeohashPrefix string // 附近筛选：geohash 前缀
}

// LocationRepository 地点数据访问接口
// 已软删除的地点对所有查询不可见
type LocationRepository interface {
	Create(ctx context.Context, loc *model.Location) error
	GetByID(ctx context.Context, id string) (*model.Location, error)
	List(ctx context.Context, filter LocationFilter) ([]model.Location, error)
	Update(ctx context.Context, loc *model.Location) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type locationRepo struct {
	db *gorm.DB
}

// NewLocationRepo 创建 LocationRepository 实例
func NewLocationRepo(db *gorm.DB) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) Create(ctx context.Context, loc *model.Location) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

func (r *locationRepo) GetByID(ctx context.Context, id string) (*model.Location, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var loc model.Location
	err := r.db.WithContext(ctx).
		Where("location_id = ?", id).
		First(&loc).Error
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *locationRepo) List(ctx context.Context, filter LocationFilter) ([]model.Location, error) {
	var locations []model.Location
	db := r.db.WithContext(ctx)

	if filter.OwnerID != "" {
		db = db.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.GeohashPrefix != "" {
		db = db.Where("geohash LIKE ?", filter.GeohashPrefix+"%")
	}

	err := db.Order("name ASC").Find(&locations).Error
	return locations, err
}

func (r *locationRepo) Update(ctx context.Context, loc *model.Location) error {
	return r.db.WithContext(ctx).Save(loc).Error
}

// Delete 软删除；不检查引用该地点的会话
func (r *locationRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Location{}).
		Where("location_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
