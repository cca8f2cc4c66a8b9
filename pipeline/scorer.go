package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rushteam/fraudkit/artifact"
	"github.com/rushteam/fraudkit/core"
	"github.com/rushteam/fraudkit/feature"
	"github.com/rushteam/fraudkit/pkg/dsl"
	"github.com/rushteam/fraudkit/pkg/metrics"
)

// Scorer 是打分入口：validate -> guard -> enrich -> load -> assemble -> scale -> classify -> package -> record。
//
// Scorer 只持有不可变配置，可被多个 goroutine 同时使用。
type Scorer struct {
	resolver *artifact.Resolver
	loader   ArtifactLoader
	guard    *dsl.Guard
	source   feature.Source
	recorder *Recorder
	metrics  metrics.Recorder
	logger   zerolog.Logger

	pipeline *Pipeline
}

// Option 配置 Scorer。
type Option func(*Scorer)

// WithLoader 指定产物加载方式（默认每次从磁盘读取）。
func WithLoader(l ArtifactLoader) Option {
	return func(s *Scorer) { s.loader = l }
}

// WithGuard 启用规则守卫。
func WithGuard(g *dsl.Guard) Option {
	return func(s *Scorer) { s.guard = g }
}

// WithSource 启用在线特征补齐。
func WithSource(src feature.Source) Option {
	return func(s *Scorer) { s.source = src }
}

// WithRecorder 启用预测记录。
func WithRecorder(r *Recorder) Option {
	return func(s *Scorer) { s.recorder = r }
}

// WithMetrics 设置指标上报。
func WithMetrics(m metrics.Recorder) Option {
	return func(s *Scorer) { s.metrics = m }
}

// WithLogger 设置日志（默认使用全局 zerolog logger）。
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scorer) { s.logger = l }
}

// NewScorer 创建 Scorer。
func NewScorer(resolver *artifact.Resolver, opts ...Option) *Scorer {
	s := &Scorer{
		resolver: resolver,
		loader:   FileLoader{},
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	stages := []Stage{ValidateStage{}}
	if s.guard.Len() > 0 {
		stages = append(stages, &GuardStage{Guard: s.guard})
	}
	if s.source != nil {
		stages = append(stages, &EnrichStage{Source: s.source, Logger: s.logger})
	}
	stages = append(stages,
		&LoadStage{Resolver: s.resolver, Loader: s.loader},
		AssembleStage{},
		ScaleStage{},
		ClassifyStage{},
		PackageStage{},
	)
	if s.recorder != nil {
		stages = append(stages, &RecordStage{Recorder: s.recorder, Logger: s.logger})
	}
	s.pipeline = &Pipeline{Stages: stages}
	return s
}

// Stages 返回阶段名列表（用于日志/调试）。
func (s *Scorer) Stages() []string {
	names := make([]string, len(s.pipeline.Stages))
	for i, st := range s.pipeline.Stages {
		names[i] = st.Name()
	}
	return names
}

// Recorder 返回预测记录器，未配置时为 nil。
func (s *Scorer) Recorder() *Recorder { return s.recorder }

// Score 对单条记录打分。任何失败（包括 panic）都转换为错误响应，不会向调用方抛出。
func (s *Scorer) Score(ctx context.Context, req *core.ScoreRequest) (resp core.Response) {
	start := time.Now()
	modelName := ""
	if req != nil {
		modelName = req.ModelName
	}

	defer func() {
		if r := recover(); r != nil {
			err := core.NewDomainError(core.ModuleService, core.ErrorCodeInternalError, fmt.Sprintf("panic: %v", r))
			s.logger.Error().Str("model", modelName).Interface("panic", r).
				Bytes("stack", debug.Stack()).Msg("scoring panicked")
			resp = s.failure(modelName, err)
		}
		s.observe(modelName, resp, time.Since(start))
	}()

	if req == nil {
		return s.failure(modelName, core.ErrMissingFields)
	}

	st := NewState(req)
	if err := s.pipeline.Run(ctx, st); err != nil {
		s.logger.Warn().Err(err).Str("model", modelName).Str("stage", string(st.Failed)).Msg("scoring failed")
		return s.failure(modelName, err)
	}

	s.logger.Debug().Str("model", modelName).Str("prediction", string(st.Result.Prediction)).
		Int("confidence", st.Result.Confidence).Dur("took", time.Since(start)).Msg("scored")
	return core.Success(st.Result)
}

func (s *Scorer) failure(modelName string, err error) core.Response {
	return core.ErrorResponse(modelName, err)
}

func (s *Scorer) observe(modelName string, resp core.Response, took time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	if !resp.OK() {
		outcome = metrics.OutcomeInference
		if !core.IsInferenceError(resp.Cause) {
			outcome = metrics.OutcomeRejected
		}
	}
	tags := metrics.BuildTag(metrics.TagOutcome, outcome, metrics.TagModel, modelName)
	s.metrics.Incr(metrics.ScoreCount, tags)
	s.metrics.Timing(metrics.ScoreLatency, took, tags)
}
