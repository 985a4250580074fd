package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/galadima-cyber/eRecord/pkg/metrics"
)

// Metrics 请求耗时指标中间件
// 使用路由模板（FullPath）作为标签，避免路径参数导致标签膨胀
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
