// Package metrics 通过 DogStatsD 上报打分指标。未配置地址时使用 no-op 客户端。
package metrics

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"
)

// 指标名
const (
	ScoreCount   = "score_count"
	ScoreLatency = "score_latency"

	APIRequestCount   = "api_request_count"
	APIRequestLatency = "api_request_latency"
)

// 标签名
const (
	TagOutcome = "outcome"
	TagModel   = "model"
	TagService = "service"

	TagPath       = "path"
	TagMethod     = "method"
	TagStatusCode = "http_status_code"
)

// 打分结果
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeInference = "inference_error"
)

// Recorder 是打分链路依赖的指标接口。
type Recorder interface {
	Incr(name string, tags []string)
	Timing(name string, value time.Duration, tags []string)
}

// Client 包装 statsd 客户端，附带全局标签与采样率。
// 一个 Client 可被多个 goroutine 同时使用。
type Client struct {
	statsd       statsd.ClientInterface
	samplingRate float64
}

// New 创建指标客户端。addr 为空时返回 no-op 客户端。
func New(addr, service string, samplingRate float64) (*Client, error) {
	if samplingRate <= 0 || samplingRate > 1 {
		samplingRate = 1
	}
	if addr == "" {
		return &Client{statsd: &statsd.NoOpClient{}, samplingRate: samplingRate}, nil
	}

	c, err := statsd.New(addr, statsd.WithTags([]string{TagAsString(TagService, service)}))
	if err != nil {
		return nil, fmt.Errorf("statsd client: %w", err)
	}
	log.Info().Str("addr", addr).Float64("sampling_rate", samplingRate).Msg("metrics client initialized")
	return &Client{statsd: c, samplingRate: samplingRate}, nil
}

// NewWithClient 使用已有的 statsd 客户端（测试时可注入 mock）。
func NewWithClient(c statsd.ClientInterface) *Client {
	return &Client{statsd: c, samplingRate: 1}
}

// Incr 计数器 +1
func (c *Client) Incr(name string, tags []string) {
	if err := c.statsd.Incr(name, tags, c.samplingRate); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("statsd incr failed")
	}
}

// Timing 上报耗时
func (c *Client) Timing(name string, value time.Duration, tags []string) {
	if err := c.statsd.Timing(name, value, tags, c.samplingRate); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("statsd timing failed")
	}
}

// Close 刷新并关闭底层客户端
func (c *Client) Close() error {
	return c.statsd.Close()
}

// TagAsString 生成 "key:value" 形式的标签
func TagAsString(key, value string) string {
	return key + ":" + value
}

// BuildTag 把多组 key/value 拼成标签列表，奇数个参数时忽略最后一个
func BuildTag(kv ...string) []string {
	tags := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tags = append(tags, TagAsString(kv[i], kv[i+1]))
	}
	return tags
}
