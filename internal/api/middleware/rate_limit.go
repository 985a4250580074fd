package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/galadima-cyber/eRecord/pkg/response"
)

// RateLimitStore 分布式限流存储（Redis 滑动窗口实现）
type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// localLimiter 进程内令牌桶，Redis 不可用时兜底
// 每个 key 一个 rate.Limiter，闲置一段时间后由 go-cache 回收
type localLimiter struct {
	limiters *gocache.Cache
	every    rate.Limit
	burst    int
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	return &localLimiter{
		limiters: gocache.New(2*window, 4*window),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (l *localLimiter) allow(key string) bool {
	if v, ok := l.limiters.Get(key); ok {
		return v.(*rate.Limiter).Allow()
	}
	lim := rate.NewLimiter(l.every, l.burst)
	if err := l.limiters.Add(key, lim, gocache.DefaultExpiration); err != nil {
		// 并发下已被其他请求创建
		if v, ok := l.limiters.Get(key); ok {
			lim = v.(*rate.Limiter)
		}
	}
	return lim.Allow()
}

// LimitedFunc 触发限流时的响应写法
type LimitedFunc func(c *gin.Context)

func defaultLimited(c *gin.Context) {
	response.TooManyRequests(c)
}

// RateLimit 速率限制中间件
// 已认证请求按用户计数，否则按客户端 IP；
// 优先使用 Redis 滑动窗口，store 为 nil 或出错时降级到进程内令牌桶。
// onLimit 可覆盖默认的 429 响应体
func RateLimit(store RateLimitStore, name string, limit int, window time.Duration, logger *zap.Logger, onLimit ...LimitedFunc) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalLimiter(limit, window)
	limited := defaultLimited
	if len(onLimit) > 0 && onLimit[0] != nil {
		limited = onLimit[0]
	}

	return func(c *gin.Context) {
		subject := c.GetString(ContextUserID)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		key := fmt.Sprintf("rate_limit:%s:%s", name, subject)

		var allowed bool
		if store != nil {
			ok, err := store.CheckRateLimit(c.Request.Context(), key, limit, window)
			if err != nil {
				logger.Warn("Redis 限流失败，降级到本地限流", zap.String("key", key), zap.Error(err))
				allowed = local.allow(key)
			} else {
				allowed = ok
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			limited(c)
			c.Abort()
			return
		}

		c.Next()
	}
}
