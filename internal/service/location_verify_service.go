package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/repository"
	"github.com/galadima-cyber/eRecord/pkg/geo"
	"github.com/galadima-cyber/eRecord/pkg/ipgeo"
)

// 定位方式
const (
	VerifyMethodGPS  = "gps"
	VerifyMethodIP   = "ip"
	VerifyMethodNone = "none"
)

// LocationVerifyService 定位预检（只读，从不写签到记录）
type LocationVerifyService interface {
	Verify(ctx context.Context, sessionID string, lat, lon *float64, clientIP string) (*dto.VerifyLocationResponse, error)
}

type locationVerifyService struct {
	cfg     *config.AttendanceConfig
	repo    *repository.Repository
	locator ipgeo.Locator
	logger  *zap.Logger
}

// NewLocationVerifyService 创建 LocationVerifyService 实例
// locator 可为 nil，此时 IP 兜底只记日志不查询
func NewLocationVerifyService(
	cfg *config.AttendanceConfig,
	repo *repository.Repository,
	locator ipgeo.Locator,
	logger *zap.Logger,
) LocationVerifyService {
	return &locationVerifyService{cfg: cfg, repo: repo, locator: locator, logger: logger}
}

func (s *locationVerifyService) Verify(ctx context.Context, sessionID string, lat, lon *float64, clientIP string) (*dto.VerifyLocationResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notVerified(VerifyMethodNone, "Session not found"), nil
		}
		s.logger.Error("定位预检查询会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	rule, err := loadRule(ctx, s.repo, s.cfg, sessionID)
	if err != nil {
		s.logger.Error("定位预检查询规则失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	// ── GPS ──
	if lat != nil && lon != nil {
		if !geo.ValidCoordinate(*lat, *lon) {
			return notVerified(VerifyMethodGPS, "Invalid coordinates"), nil
		}
		loc, reason, err := resolveLocation(ctx, s.repo, session)
		if err != nil {
			s.logger.Error("定位预检查询地点失败", zap.String("session_id", sessionID), zap.Error(err))
			return nil, err
		}
		switch reason {
		case ReasonNoLocationBound:
			return notVerified(VerifyMethodNone, "Session location not configured"), nil
		case ReasonLocationDataUnavailable:
			return notVerified(VerifyMethodNone, "Session location data unavailable"), nil
		}

		radius := effectiveRadius(rule, loc, s.cfg.DefaultRadiusMeters)
		d := geo.Distance(loc.Latitude, loc.Longitude, *lat, *lon)
		rounded := geo.RoundMeters(d)
		resp := &dto.VerifyLocationResponse{
			Verified: geo.Within(d, radius),
			Method:   VerifyMethodGPS,
			Distance: &rounded,
		}
		if !resp.Verified {
			resp.Error = fmt.Sprintf("You are %dm away. Allowed radius: %dm", rounded, radius)
		}
		return resp, nil
	}

	// ── IP 兜底：只记录，不作为拒绝依据 ──
	if clientIP != "" && !rule.RequireLocation {
		s.logIPPosition(ctx, sessionID, clientIP)
		return &dto.VerifyLocationResponse{
			Verified: true,
			Method:   VerifyMethodIP,
			Error:    "GPS unavailable, verified via IP",
		}, nil
	}

	if rule.RequireLocation {
		return notVerified(VerifyMethodNone, "Location verification required but GPS data not available"), nil
	}
	return &dto.VerifyLocationResponse{Verified: true, Method: VerifyMethodNone}, nil
}

// ── 内部辅助方法 ──

func notVerified(method, msg string) *dto.VerifyLocationResponse {
	return &dto.VerifyLocationResponse{Verified: false, Method: method, Error: msg}
}

func (s *locationVerifyService) logIPPosition(ctx context.Context, sessionID, clientIP string) {
	if s.locator == nil {
		return
	}
	pos, err := s.locator.Lookup(ctx, clientIP)
	if err != nil {
		s.logger.Debug("IP 定位不可用", zap.String("ip", clientIP), zap.Error(err))
		return
	}
	s.logger.Info("IP 兜底定位",
		zap.String("session_id", sessionID),
		zap.String("ip", clientIP),
		zap.Float64("lat", pos.Latitude),
		zap.Float64("lon", pos.Longitude),
		zap.String("geohash", geo.GeohashPrefix(pos.Latitude, pos.Longitude, 5)),
	)
}
