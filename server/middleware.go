package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rushteam/fraudkit/pkg/metrics"
)

// HeaderUserID 调用方用户 ID，写入预测记录
const HeaderUserID = "X-User-ID"

// AccessLogger 记录访问日志，m 非空时同时上报请求数与耗时。
func AccessLogger(m metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		if m != nil {
			tags := metrics.BuildTag(
				metrics.TagPath, path,
				metrics.TagMethod, c.Request.Method,
				metrics.TagStatusCode, strconv.Itoa(status),
			)
			m.Incr(metrics.APIRequestCount, tags)
			m.Timing(metrics.APIRequestLatency, latency, tags)
		}
		log.Info().Msgf("[access] [%s] %s %s %d %v", c.ClientIP(), c.Request.Method, path, status, latency)
	}
}
