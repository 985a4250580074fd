package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/galadima-cyber/eRecord/config"
	"github.com/galadima-cyber/eRecord/internal/dto"
	"github.com/galadima-cyber/eRecord/internal/model"
	"github.com/galadima-cyber/eRecord/internal/repository"
	"github.com/galadima-cyber/eRecord/pkg/geo"
)

// ── 地点模块业务错误 ──

var (
	ErrLocationNotFound     = errors.New("地点不存在")
	ErrLocationInvalidCoord = errors.New("地点坐标超出范围")
	ErrLocationInvalidRange = errors.New("地点半径必须为正整数")
	ErrLocationInvalidName  = errors.New("地点名称不能为空")
)

// defaultNearPrecision 附近筛选默认 geohash 精度（约 1.2km × 0.6km）
const defaultNearPrecision = 6

// LocationService 地点业务接口
type LocationService interface {
	Create(ctx context.Context, req *dto.CreateLocationRequest, caller Caller) (*dto.LocationResponse, error)
	GetByID(ctx context.Context, id string, caller Caller) (*dto.LocationResponse, error)
	List(ctx context.Context, req *dto.LocationListRequest, caller Caller) ([]dto.LocationResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateLocationRequest, caller Caller) (*dto.LocationResponse, error)
	Delete(ctx context.Context, id string, caller Caller) error
}

type locationService struct {
	cfg    *config.AttendanceConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLocationService 创建 LocationService 实例
func NewLocationService(cfg *config.AttendanceConfig, repo *repository.Repository, logger *zap.Logger) LocationService {
	return &locationService{cfg: cfg, repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *locationService) Create(ctx context.Context, req *dto.CreateLocationRequest, caller Caller) (*dto.LocationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrLocationInvalidName
	}
	if req.Latitude == nil || req.Longitude == nil || !geo.ValidCoordinate(*req.Latitude, *req.Longitude) {
		return nil, ErrLocationInvalidCoord
	}
	radius := s.cfg.DefaultRadiusMeters
	if req.RadiusMeters != nil {
		if *req.RadiusMeters <= 0 {
			return nil, ErrLocationInvalidRange
		}
		radius = *req.RadiusMeters
	}

	loc := &model.Location{
		OwnerID:      caller.UserID,
		Name:         name,
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		RadiusMeters: radius,
		Geohash:      geo.Geohash(*req.Latitude, *req.Longitude),
	}
	loc.CreatedBy = &caller.UserID
	loc.UpdatedBy = &caller.UserID

	if err := s.repo.Location.Create(ctx, loc); err != nil {
		s.logger.Error("创建地点失败", zap.Error(err))
		return nil, err
	}

	return s.toLocationResponse(loc), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *locationService) GetByID(ctx context.Context, id string, caller Caller) (*dto.LocationResponse, error) {
	loc, err := s.getOwned(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return s.toLocationResponse(loc), nil
}

// ────────────────────── List ──────────────────────

func (s *locationService) List(ctx context.Context, req *dto.LocationListRequest, caller Caller) ([]dto.LocationResponse, error) {
	filter := repository.LocationFilter{OwnerID: caller.UserID}
	if req.All && caller.IsAdmin() {
		filter.OwnerID = ""
	}
	if req.Lat != nil && req.Lon != nil {
		if !geo.ValidCoordinate(*req.Lat, *req.Lon) {
			return nil, ErrLocationInvalidCoord
		}
		precision := req.Precision
		if precision <= 0 {
			precision = defaultNearPrecision
		}
		filter.GeohashPrefix = geo.GeohashPrefix(*req.Lat, *req.Lon, precision)
	}

	locations, err := s.repo.Location.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出地点失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.LocationResponse, 0, len(locations))
	for i := range locations {
		result = append(result, *s.toLocationResponse(&locations[i]))
	}

	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *locationService) Update(ctx context.Context, id string, req *dto.UpdateLocationRequest, caller Caller) (*dto.LocationResponse, error) {
	loc, err := s.getOwned(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrLocationInvalidName
		}
		loc.Name = name
	}
	if req.Latitude != nil {
		loc.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		loc.Longitude = *req.Longitude
	}
	if !geo.ValidCoordinate(loc.Latitude, loc.Longitude) {
		return nil, ErrLocationInvalidCoord
	}
	if req.RadiusMeters != nil {
		if *req.RadiusMeters <= 0 {
			return nil, ErrLocationInvalidRange
		}
		loc.RadiusMeters = *req.RadiusMeters
	}

	loc.Geohash = geo.Geohash(loc.Latitude, loc.Longitude)
	loc.UpdatedBy = &caller.UserID

	if err := s.repo.Location.Update(ctx, loc); err != nil {
		s.logger.Error("更新地点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toLocationResponse(loc), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 无条件软删除；仍绑定该地点的会话此后签到一律被拒（NoLocationBound）
func (s *locationService) Delete(ctx context.Context, id string, caller Caller) error {
	if _, err := s.getOwned(ctx, id, caller); err != nil {
		return err
	}

	if err := s.repo.Location.Delete(ctx, id, caller.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLocationNotFound
		}
		s.logger.Error("删除地点失败", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ── 内部辅助方法 ──

func (s *locationService) getOwned(ctx context.Context, id string, caller Caller) (*model.Location, error) {
	loc, err := s.repo.Location.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		s.logger.Error("查询地点失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if !caller.CanManage(loc.OwnerID) {
		return nil, ErrPermissionDenied
	}
	return loc, nil
}

func (s *locationService) toLocationResponse(loc *model.Location) *dto.LocationResponse {
	return &dto.LocationResponse{
		ID:           loc.LocationID,
		OwnerID:      loc.OwnerID,
		Name:         loc.Name,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		RadiusMeters: loc.RadiusMeters,
		Geohash:      loc.Geohash,
		CreatedAt:    loc.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:    loc.UpdatedAt.UTC().Format(timeLayout),
	}
}
