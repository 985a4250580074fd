package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/internal/model"
	pkgerrors "github.com/galadima-cyber/eRecord/pkg/errors"
)

// UserListFilter 用户列表过滤条件
type UserListFilter struct {
	Role    string
	Keyword string // 姓名 / 学号 / 邮箱模糊匹配
}

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	// CreateBatch 在同一事务中写入，任一失败整体回滚
	CreateBatch(ctx context.Context, users []model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByMatricNo(ctx context.Context, matricNo string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListByMatricNos(ctx context.Context, matricNos []string) ([]model.User, error)
	List(ctx context.Context, filter UserListFilter, offset, limit int) ([]model.User, int64, error)
	UpdatePassword(ctx context.Context, id, passwordHash, updatedBy string) error
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

func (r *userRepo) CreateBatch(ctx context.Context, users []model.User) error {
	if len(users) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&users, 200).Error
	})
	if pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByMatricNo(ctx context.Context, matricNo string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("matric_no = ?", matricNo).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ListByMatricNos(ctx context.Context, matricNos []string) ([]model.User, error) {
	var users []model.User
	if len(matricNos) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).
		Where("matric_no IN ?", matricNos).
		Find(&users).Error
	return users, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) List(ctx context.Context, filter UserListFilter, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})
	if filter.Role != "" {
		db = db.Where("role = ?", filter.Role)
	}
	if filter.Keyword != "" {
		like := "%" + strings.ToLower(filter.Keyword) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(matric_no) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("matric_no ASC").
		Offset(offset).Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, passwordHash, updatedBy string) error {
	if !validID(id) {
		return gorm.ErrRecordNotFound
	}
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_by":    updatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
