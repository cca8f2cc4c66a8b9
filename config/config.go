// Package config 定义进程配置，并按配置装配打分所需的组件。
//
// 配置来源（高 -> 低）：命令行 flag、FRAUDKIT_ 前缀的环境变量、YAML 配置文件、默认值。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/rushteam/fraudkit/pkg/logger"
	"github.com/rushteam/fraudkit/store"
)

// EnvPrefix 环境变量前缀，例如 FRAUDKIT_ARTIFACT_DIR、FRAUDKIT_STORE_TYPE
const EnvPrefix = "FRAUDKIT"

// Config 是进程配置。
type Config struct {
	// ArtifactDir 产物目录，空表示可执行文件同级的 models 目录
	ArtifactDir string `mapstructure:"artifact_dir"`
	// Cache 是否缓存已加载的产物（按文件指纹失效）
	Cache bool `mapstructure:"cache"`
	// Guards CEL 守卫规则
	Guards []string `mapstructure:"guards"`

	Store   StoreConfig   `mapstructure:"store"`
	Feast   FeastConfig   `mapstructure:"feast"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
}

// StoreConfig 预测记录存储
type StoreConfig struct {
	Type       string `mapstructure:"type"` // none / memory / redis
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// FeastConfig 在线特征补齐，Endpoint 为空时关闭
type FeastConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Project   string `mapstructure:"project"`
	View      string `mapstructure:"view"`
	Token     string `mapstructure:"token"`
	TimeoutMS int    `mapstructure:"timeout_ms"`

	// CacheTTLMS 大于 0 时在内存中缓存取到的特征
	CacheTTLMS int `mapstructure:"cache_ttl_ms"`
	CacheSize  int `mapstructure:"cache_size"`
	// Defaults 特征服务不可用或缺少特征时的默认值。
	// 使用列表而不是 map：viper 会把 map 的 key 转成小写，而特征名区分大小写。
	Defaults []FeatureDefault `mapstructure:"defaults"`
}

// FeatureDefault 单个特征的默认值
type FeatureDefault struct {
	Name  string  `mapstructure:"name"`
	Value float64 `mapstructure:"value"`
}

// DefaultValues 把默认值列表转为 map，后出现的同名项覆盖前面的。
func (f FeastConfig) DefaultValues() map[string]float64 {
	if len(f.Defaults) == 0 {
		return nil
	}
	out := make(map[string]float64, len(f.Defaults))
	for _, d := range f.Defaults {
		out[d.Name] = d.Value
	}
	return out
}

// MetricsConfig DogStatsD 指标，Addr 为空时不上报
type MetricsConfig struct {
	Addr         string  `mapstructure:"addr"`
	Service      string  `mapstructure:"service"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// LogConfig 日志
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // debug / release / test
}

// SetDefaults 写入默认值。
func SetDefaults(v *viper.Viper) {
	v.SetDefault("artifact_dir", "")
	v.SetDefault("cache", true)
	v.SetDefault("guards", []string{})
	v.SetDefault("store.type", store.TypeNone)
	v.SetDefault("store.addr", "localhost:6379")
	v.SetDefault("store.db", 0)
	v.SetDefault("store.ttl_seconds", 0)
	v.SetDefault("feast.endpoint", "")
	v.SetDefault("feast.project", "fraud")
	v.SetDefault("feast.view", "transaction_features")
	v.SetDefault("feast.timeout_ms", 200)
	v.SetDefault("feast.cache_ttl_ms", 0)
	v.SetDefault("feast.cache_size", 10000)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.service", "fraudscore")
	v.SetDefault("metrics.sampling_rate", 1.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatConsole)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
}

// BindEnv 开启 FRAUDKIT_ 前缀的环境变量，嵌套 key 中的 "." 对应 "_"。
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load 从 viper 读取配置并校验。
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 校验配置取值。
func (c Config) Validate() error {
	switch c.Store.Type {
	case "", store.TypeNone, store.TypeMemory, store.TypeRedis:
	default:
		return fmt.Errorf("store.type must be one of none, memory, redis; got %q", c.Store.Type)
	}
	if c.Store.Type == store.TypeRedis && c.Store.Addr == "" {
		return fmt.Errorf("store.addr is required for redis")
	}
	if c.Store.TTLSeconds < 0 {
		return fmt.Errorf("store.ttl_seconds must not be negative")
	}
	if c.Feast.Endpoint != "" && c.Feast.Project == "" {
		return fmt.Errorf("feast.project is required when feast.endpoint is set")
	}
	if c.Feast.CacheTTLMS < 0 || c.Feast.CacheSize < 0 {
		return fmt.Errorf("feast.cache_ttl_ms and feast.cache_size must not be negative")
	}
	for _, d := range c.Feast.Defaults {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("feast.defaults entries require a name")
		}
	}
	if c.Metrics.SamplingRate < 0 || c.Metrics.SamplingRate > 1 {
		return fmt.Errorf("metrics.sampling_rate must be within [0, 1]")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		return fmt.Errorf("log.format must be console or json; got %q", c.Log.Format)
	}
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test; got %q", c.Server.Mode)
	}
	return nil
}
