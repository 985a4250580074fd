// Package ipgeo 通过 ip-api 风格的 HTTP 接口把客户端 IP 粗定位到经纬度。
// 结果只用于审计与定位预检展示，精度不足以参与签到拒绝判定。
package ipgeo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/galadima-cyber/eRecord/config"
)

var (
	ErrPrivateIP      = errors.New("内网或保留地址无法定位")
	ErrLookupFailed   = errors.New("IP 定位失败")
	ErrLookupDisabled = errors.New("IP 定位未启用")
)

// Position 粗定位结果
type Position struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Locator IP 定位能力（服务层依赖此接口，便于测试替换）
type Locator interface {
	Lookup(ctx context.Context, ip string) (*Position, error)
}

// Client ip-api 客户端，带进程内缓存
type Client struct {
	BaseURL string
	HTTP    *http.Client
	cache   *gocache.Cache
	logger  *zap.Logger
}

// NewClient 根据配置创建客户端；未启用时返回 nil
func NewClient(cfg *config.IPGeoConfig, logger *zap.Logger) *Client {
	if !cfg.Enabled {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		cache:   gocache.New(ttl, 2*ttl),
		logger:  logger,
	}
}

// lookupResponse ip-api 返回体（只取需要的字段）
type lookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Lookup 查询 IP 的大致坐标
func (c *Client) Lookup(ctx context.Context, ip string) (*Position, error) {
	if c == nil {
		return nil, ErrLookupDisabled
	}

	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return nil, ErrPrivateIP
	}
	key := parsed.String()

	if v, ok := c.cache.Get(key); ok {
		pos := v.(Position)
		return &pos, nil
	}

	url := fmt.Sprintf("%s/%s?fields=status,message,lat,lon", c.BaseURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", ErrLookupFailed, resp.Status, string(body))
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: 解析响应失败: %v", ErrLookupFailed, err)
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrLookupFailed, out.Message)
	}

	pos := Position{Latitude: out.Lat, Longitude: out.Lon}
	c.cache.SetDefault(key, pos)

	c.logger.Debug("IP 定位成功",
		zap.String("ip", key),
		zap.Float64("lat", pos.Latitude),
		zap.Float64("lon", pos.Longitude),
	)
	return &pos, nil
}
