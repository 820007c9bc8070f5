package middleware

import (
	"strconv"
	"time"

	"watson-legal-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 按路由模板采集请求量、延迟与报文大小
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		// 未匹配路由统一归入 unknown，避免标签爆炸
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		if size := c.Request.ContentLength; size > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(size))
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
