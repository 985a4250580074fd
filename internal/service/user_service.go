package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
	pkgerrors "github.com/galadima-cyber/eRecord/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrMatricNoExists = errors.New("学号已存在")
	ErrEmailExists    = errors.New("邮箱已被使用")
)

const tempPasswordLength = 10

// ImportUserRow 学生导入 Excel 的一行
type ImportUserRow struct {
	Row      int // Excel 行号（从 2 开始）
	Name     string
	MatricNo string
	Email    string
}

// UserService 用户管理业务接口（管理员）
type UserService interface {
	CreateUser(ctx context.Context, req *dto.CreateUserRequest, caller Caller) (*dto.CreateUserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	ResetPassword(ctx context.Context, id string, caller Caller) (*dto.ResetPasswordResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	ImportStudents(ctx context.Context, rows []ImportUserRow, caller Caller) (*dto.ImportUserResponse, error)
	// EnsureAdmin 启动时创建首个管理员；学号已存在时不做任何修改
	EnsureAdmin(ctx context.Context, cfg *config.BootstrapConfig) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── CreateUser ──────────────────────

func (s *userService) CreateUser(ctx context.Context, req *dto.CreateUserRequest, caller Caller) (*dto.CreateUserResponse, error) {
	matricNo := strings.TrimSpace(req.MatricNo)
	email := strings.TrimSpace(req.Email)

	// 检查学号唯一性
	if _, err := s.repo.User.GetByMatricNo(ctx, matricNo); err == nil {
		return nil, ErrMatricNoExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("按学号查询用户失败", zap.Error(err))
		return nil, err
	}

	// 检查邮箱唯一性
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("按邮箱查询用户失败", zap.Error(err))
		return nil, err
	}

	tempPassword, hash, err := newTempPassword()
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		MatricNo:     matricNo,
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	user.CreatedBy = &caller.UserID

	if err := s.repo.User.Create(ctx, user); err != nil {
		// 并发创建同一学号时由唯一索引兜底
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrMatricNoExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户已创建",
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role),
		zap.String("operator", caller.UserID),
	)

	return &dto.CreateUserResponse{
		User:         toUserResponse(user),
		TempPassword: tempPassword,
	}, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filter := repository.UserListFilter{
		Role:    req.Role,
		Keyword: strings.TrimSpace(req.Keyword),
	}
	users, total, err := s.repo.User.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ────────────────────── ResetPassword ──────────────────────

func (s *userService) ResetPassword(ctx context.Context, id string, caller Caller) (*dto.ResetPasswordResponse, error) {
	if _, err := s.repo.User.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	tempPassword, hash, err := newTempPassword()
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return nil, err
	}

	if err := s.repo.User.UpdatePassword(ctx, id, hash, caller.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("重置密码失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("密码已重置", zap.String("user_id", id), zap.String("operator", caller.UserID))
	return &dto.ResetPasswordResponse{TempPassword: tempPassword}, nil
}

// ────────────────────── ParseImportFile ──────────────────────

// ParseImportFile 解析学生名单 Excel，表头需包含姓名、学号、邮箱
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	excelRows, err := readSheetRows(reader)
	if err != nil {
		return nil, err
	}

	colIndex := headerIndex(excelRows[0], map[string][]string{
		"name":      {"姓名", "name", "full name"},
		"matric_no": {"学号", "matric_no", "matric number"},
		"email":     {"邮箱", "email"},
	})
	if colIndex["name"] < 0 || colIndex["matric_no"] < 0 || colIndex["email"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportUserRow{
			Row:      i + 1,
			Name:     cellAt(row, colIndex["name"]),
			MatricNo: cellAt(row, colIndex["matric_no"]),
			Email:    cellAt(row, colIndex["email"]),
		}

		// 跳过全空行
		if item.Name == "" && item.MatricNo == "" && item.Email == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// ────────────────────── ImportStudents ──────────────────────

// ImportStudents 批量创建学生账号
// 第一阶段逐行校验（必填、学号/邮箱未被占用、文件内不重复），第二阶段单事务写入；
// 每个新账号生成独立的临时密码，随结果返回
func (s *userService) ImportStudents(ctx context.Context, rows []ImportUserRow, caller Caller) (*dto.ImportUserResponse, error) {
	resp := &dto.ImportUserResponse{Total: len(rows)}

	matricNos := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.MatricNo != "" {
			matricNos = append(matricNos, r.MatricNo)
		}
	}
	existing, err := s.repo.User.ListByMatricNos(ctx, matricNos)
	if err != nil {
		s.logger.Error("按学号批量查询用户失败", zap.Error(err))
		return nil, err
	}
	taken := make(map[string]bool, len(existing))
	for i := range existing {
		taken[existing[i].MatricNo] = true
	}

	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: reason})
	}

	seenEmail := make(map[string]bool)
	var users []model.User
	var credentials []dto.ImportCredential
	for _, r := range rows {
		if r.Name == "" || r.MatricNo == "" || r.Email == "" {
			fail(r.Row, "name, matric_no and email are required")
			continue
		}
		if taken[r.MatricNo] {
			fail(r.Row, "matric_no already exists: "+r.MatricNo)
			continue
		}
		emailKey := strings.ToLower(r.Email)
		if seenEmail[emailKey] {
			fail(r.Row, "duplicate email in file: "+r.Email)
			continue
		}
		if _, err := s.repo.User.GetByEmail(ctx, r.Email); err == nil {
			fail(r.Row, "email already in use: "+r.Email)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("按邮箱查询用户失败", zap.Int("row", r.Row), zap.Error(err))
			return nil, err
		}

		tempPassword, hash, err := newTempPassword()
		if err != nil {
			s.logger.Error("生成临时密码失败", zap.Int("row", r.Row), zap.Error(err))
			return nil, err
		}

		taken[r.MatricNo] = true
		seenEmail[emailKey] = true
		user := model.User{
			Name:         r.Name,
			MatricNo:     r.MatricNo,
			Email:        r.Email,
			PasswordHash: hash,
			Role:         model.RoleStudent,
		}
		user.CreatedBy = &caller.UserID
		users = append(users, user)
		credentials = append(credentials, dto.ImportCredential{MatricNo: r.MatricNo, TempPassword: tempPassword})
	}

	if len(users) > 0 {
		if err := s.repo.User.CreateBatch(ctx, users); err != nil {
			s.logger.Error("批量创建学生失败，事务回滚", zap.Int("count", len(users)), zap.Error(err))
			return nil, fmt.Errorf("写入学生账号失败，已回滚全部导入: %w", err)
		}
		resp.Created = len(users)
		resp.Credentials = credentials
	}

	s.logger.Info("学生名单导入完成",
		zap.String("operator", caller.UserID),
		zap.Int("total", resp.Total),
		zap.Int("created", resp.Created),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// ────────────────────── EnsureAdmin ──────────────────────

func (s *userService) EnsureAdmin(ctx context.Context, cfg *config.BootstrapConfig) error {
	if cfg == nil || cfg.AdminPassword == "" {
		return nil
	}

	if _, err := s.repo.User.GetByMatricNo(ctx, cfg.AdminMatricNo); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("查询初始管理员失败: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("密码哈希失败: %w", err)
	}
	admin := &model.User{
		Name:         cfg.AdminName,
		MatricNo:     cfg.AdminMatricNo,
		Email:        cfg.AdminEmail,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		// 多实例同时启动
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("创建初始管理员失败: %w", err)
	}

	s.logger.Info("已创建初始管理员", zap.String("matric_no", admin.MatricNo))
	return nil
}

// ── 内部辅助方法 ──

// newTempPassword 生成临时密码及其 bcrypt 哈希
func newTempPassword() (string, string, error) {
	password, err := generateTempPassword(tempPasswordLength)
	if err != nil {
		return "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return password, string(hash), nil
}

// generateTempPassword 生成指定长度的临时密码（保证包含字母和数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 4 {
		length = 8
	}

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	result := make([]byte, length)
	var err error
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates 洗牌
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}

	return string(result), nil
}
