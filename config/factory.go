package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rushteam/fraudkit/artifact"
	"github.com/rushteam/fraudkit/feast"
	"github.com/rushteam/fraudkit/feature"
	"github.com/rushteam/fraudkit/pipeline"
	"github.com/rushteam/fraudkit/pkg/dsl"
	"github.com/rushteam/fraudkit/pkg/metrics"
	"github.com/rushteam/fraudkit/store"
)

// Runtime 是按配置装配好的组件集合。
type Runtime struct {
	Resolver *artifact.Resolver
	Scorer   *pipeline.Scorer
	Metrics  *metrics.Client
	// Loader 开启产物缓存时非空
	Loader *pipeline.CachedLoader

	closers []func() error
}

// Build 按配置装配 Scorer 及其依赖。
//
// 只有产物目录与守卫规则错误会使 Build 失败；特征源、预测存储与指标是可选依赖，
// 创建失败时记录日志并关闭对应阶段。返回错误时已创建的资源会被释放。
func Build(ctx context.Context, cfg Config) (*Runtime, error) {
	built := &Runtime{}
	ok := false
	defer func() {
		if !ok {
			_ = built.Close()
		}
	}()

	resolver, err := artifact.NewResolver(cfg.ArtifactDir)
	if err != nil {
		return nil, err
	}
	built.Resolver = resolver

	var opts []pipeline.Option
	if cfg.Cache {
		built.Loader = pipeline.NewCachedLoader(nil)
		opts = append(opts, pipeline.WithLoader(built.Loader))
	}

	guard, err := dsl.NewGuard(cfg.Guards)
	if err != nil {
		return nil, fmt.Errorf("compile guards: %w", err)
	}
	opts = append(opts, pipeline.WithGuard(guard))

	if src := built.openSource(cfg.Feast); src != nil {
		opts = append(opts, pipeline.WithSource(src))
	}
	if rec := built.openRecorder(ctx, cfg.Store); rec != nil {
		opts = append(opts, pipeline.WithRecorder(rec))
	}
	built.Metrics = built.openMetrics(cfg.Metrics)
	opts = append(opts, pipeline.WithMetrics(built.Metrics))

	built.Scorer = pipeline.NewScorer(resolver, opts...)
	log.Debug().Str("artifact_dir", resolver.BaseDir()).Strs("stages", built.Scorer.Stages()).Msg("scorer ready")
	ok = true
	return built, nil
}

// openSource 创建 Feast 特征源，未配置或创建失败时返回 nil
func (r *Runtime) openSource(cfg FeastConfig) feature.Source {
	if cfg.Endpoint == "" {
		return nil
	}
	var feastOpts []feast.ClientOption
	if cfg.TimeoutMS > 0 {
		feastOpts = append(feastOpts, feast.WithTimeout(time.Duration(cfg.TimeoutMS)*time.Millisecond))
	}
	if cfg.Token != "" {
		feastOpts = append(feastOpts, feast.WithAuth(&feast.AuthConfig{Token: cfg.Token}))
	}
	client, err := feast.NewClient(cfg.Endpoint, cfg.Project, feastOpts...)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", cfg.Endpoint).Msg("feast unavailable, enrichment disabled")
		return nil
	}
	r.closers = append(r.closers, client.Close)
	return buildSource(feast.NewSource(client, cfg.View), cfg)
}

// openRecorder 打开预测存储，未配置或连接失败时返回 nil
func (r *Runtime) openRecorder(ctx context.Context, cfg StoreConfig) *pipeline.Recorder {
	s, err := store.Open(ctx, store.Config{
		Type:     cfg.Type,
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		log.Warn().Err(err).Str("type", cfg.Type).Msg("prediction store unavailable, recording disabled")
		return nil
	}
	if s == nil {
		return nil
	}
	r.closers = append(r.closers, s.Close)
	return pipeline.NewRecorder(s, cfg.TTLSeconds)
}

// openMetrics 创建指标客户端，失败时退化为 no-op 客户端
func (r *Runtime) openMetrics(cfg MetricsConfig) *metrics.Client {
	m, err := metrics.New(cfg.Addr, cfg.Service, cfg.SamplingRate)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("metrics unavailable, reporting disabled")
		m, _ = metrics.New("", cfg.Service, cfg.SamplingRate)
	}
	r.closers = append(r.closers, m.Close)
	return m
}

// buildSource 按配置为特征源加上缓存与默认值降级。降级值不进入缓存。
func buildSource(primary feature.Source, cfg FeastConfig) feature.Source {
	src := primary
	if cfg.CacheTTLMS > 0 {
		src = feature.NewCachedSource(src, time.Duration(cfg.CacheTTLMS)*time.Millisecond, cfg.CacheSize)
	}
	if values := cfg.DefaultValues(); len(values) > 0 {
		src = &feature.FallbackSource{Primary: src, Fallback: &feature.StaticSource{Values: values}}
	}
	return src
}

// Close 按创建的逆序释放资源。
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
