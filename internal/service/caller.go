package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
)

// ErrPermissionDenied 非资源所有者且非管理员
var ErrPermissionDenied = errors.New("无权操作该资源")

// Caller 当前请求的调用者，只来源于已验证的 JWT 声明
type Caller struct {
	UserID string
	Role   string
}

// IsAdmin 是否管理员
func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

// CanManage 调用者能否管理 ownerID 名下的资源（本人或管理员）
func (c Caller) CanManage(ownerID string) bool {
	return c.IsAdmin() || c.UserID == ownerID
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// ownedSession 读取会话并校验调用者是否可管理
func ownedSession(ctx context.Context, repo *repository.Repository, logger *zap.Logger, sessionID string, caller Caller) (*model.LectureSession, error) {
	session, err := repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		logger.Error("查询签到会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	if !caller.CanManage(session.OwnerID) {
		return nil, ErrPermissionDenied
	}
	return session, nil
}
