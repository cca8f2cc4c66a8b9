package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/fraudkit/artifact"
	"github.com/rushteam/fraudkit/core"
	"github.com/rushteam/fraudkit/feature"
	"github.com/rushteam/fraudkit/pkg/dsl"
)

// ValidateStage 校验 modelName / features / featureOrder 均非空且类型正确。
// 失败时不触碰任何产物。
type ValidateStage struct{}

func (ValidateStage) Name() string { return "validate" }
func (ValidateStage) Kind() Kind   { return KindValidate }

func (ValidateStage) Process(_ context.Context, st *State) error {
	return core.ValidateRequest(st.Request)
}

// GuardStage 执行 CEL 规则，规则不通过或求值出错都拒绝请求。
type GuardStage struct {
	Guard *dsl.Guard
}

func (g *GuardStage) Name() string { return "guard" }
func (g *GuardStage) Kind() Kind   { return KindGuard }

func (g *GuardStage) Process(_ context.Context, st *State) error {
	rule, err := g.Guard.Check(st.Features, st.Request.ModelName)
	if rule == nil {
		return nil
	}
	msg := fmt.Sprintf("Request rejected by rule: %s", rule.Expr)
	if err != nil {
		return core.WrapDomainError(core.ModuleRequest, core.ErrorCodeGuardRejected, msg, err)
	}
	return core.NewDomainError(core.ModuleRequest, core.ErrorCodeGuardRejected, msg)
}

// EnrichStage 从在线特征源补齐 featureOrder 中缺失的特征。
// 已提供的特征不会被覆盖；取数失败只记日志，由组装阶段决定是否报错。
type EnrichStage struct {
	Source feature.Source
	Logger zerolog.Logger
}

func (e *EnrichStage) Name() string { return "enrich." + e.Source.Name() }
func (e *EnrichStage) Kind() Kind   { return KindEnrich }

func (e *EnrichStage) Process(ctx context.Context, st *State) error {
	if len(st.Request.Entity) == 0 {
		return nil
	}
	missing := feature.MissingFeatures(st.Features, st.Request.FeatureOrder)
	if len(missing) == 0 {
		return nil
	}

	fetched, err := e.Source.Fetch(ctx, st.Request.Entity, missing)
	if err != nil {
		e.Logger.Warn().Err(err).Str("source", e.Source.Name()).Strs("missing", missing).Msg("feature enrichment failed")
		return nil
	}
	var filled []string
	st.Features, filled = feature.FillMissing(st.Features, fetched)
	e.Logger.Debug().Str("source", e.Source.Name()).Strs("filled", filled).Msg("features enriched")
	return nil
}

// LoadStage 解析产物路径并加载模型与标准化器。
type LoadStage struct {
	Resolver *artifact.Resolver
	Loader   ArtifactLoader
}

func (l *LoadStage) Name() string { return "load" }
func (l *LoadStage) Kind() Kind   { return KindLoad }

func (l *LoadStage) Process(_ context.Context, st *State) error {
	paths, err := l.Resolver.Resolve(st.Request.ModelName)
	if err != nil {
		return err
	}
	st.Paths = paths

	decider, err := l.Loader.LoadClassifier(paths.Classifier)
	if err != nil {
		return core.WrapDomainError(core.ModuleArtifact, core.ErrorCodeArtifactLoad, "load classifier", err)
	}
	scaler, err := l.Loader.LoadScaler(paths.Scaler)
	if err != nil {
		return core.WrapDomainError(core.ModuleArtifact, core.ErrorCodeArtifactLoad, "load scaler", err)
	}
	st.Decider = decider
	st.Scaler = scaler
	return nil
}

// AssembleStage 按 featureOrder 组装原始向量。
type AssembleStage struct{}

func (AssembleStage) Name() string { return "assemble" }
func (AssembleStage) Kind() Kind   { return KindAssemble }

func (AssembleStage) Process(_ context.Context, st *State) error {
	raw, err := feature.Assemble(st.Features, st.Request.FeatureOrder)
	if err != nil {
		return err
	}
	st.Raw = raw
	return nil
}

// ScaleStage 只缩放 Time 与 Amount 两列，其余列原样保留。
type ScaleStage struct{}

func (ScaleStage) Name() string { return "scale" }
func (ScaleStage) Kind() Kind   { return KindScale }

func (ScaleStage) Process(_ context.Context, st *State) error {
	vec, err := feature.ScaleColumns(st.Raw, st.Request.FeatureOrder, st.Scaler)
	if err != nil {
		return err
	}
	st.Vector = vec
	return nil
}

// ClassifyStage 调用加载时确定的判定方式。
type ClassifyStage struct{}

func (ClassifyStage) Name() string { return "classify" }
func (ClassifyStage) Kind() Kind   { return KindClassify }

func (ClassifyStage) Process(ctx context.Context, st *State) error {
	d, err := st.Decider.Decide(ctx, st.Vector)
	if err != nil {
		return err
	}
	st.Decision = d
	return nil
}

// PackageStage 把判定结果转换为对外结果，modelName 原样回显。
type PackageStage struct{}

func (PackageStage) Name() string { return "package" }
func (PackageStage) Kind() Kind   { return KindPackage }

func (PackageStage) Process(_ context.Context, st *State) error {
	st.Result = &core.ScoreResult{
		Prediction: core.PredictionFromClass(st.Decision.Class),
		Confidence: st.Decision.Confidence,
		ModelName:  st.Request.ModelName,
	}
	return nil
}

// RecordStage 记录成功的预测；记录失败不影响返回结果。
type RecordStage struct {
	Recorder *Recorder
	Logger   zerolog.Logger
}

func (r *RecordStage) Name() string { return "record" }
func (r *RecordStage) Kind() Kind   { return KindRecord }

func (r *RecordStage) Process(ctx context.Context, st *State) error {
	rec, err := r.Recorder.Record(ctx, st.Features, st.Result)
	if err != nil {
		r.Logger.Error().Err(err).Str("model", st.Request.ModelName).Msg("record prediction failed")
		return nil
	}
	r.Logger.Debug().Str("id", rec.ID).Msg("prediction recorded")
	return nil
}
