// Package fraudkit 是信用卡交易欺诈打分工具包。
//
// 设计要点：
// - Pipeline-first: 打分按阶段串联（Validate → Guard → Enrich → Load → Assemble → Scale → Classify → Package → Record）
// - 产物按命名约定从固定目录加载：<model>_model.json 与共享的 time_amount_scaler.json
// - 只缩放 Time/Amount 两列，其余特征原样进入模型
// - 任何失败都转换为单一的错误响应，调用方只需处理一个 JSON 对象
package fraudkit

import (
	"github.com/rushteam/fraudkit/artifact"
	"github.com/rushteam/fraudkit/core"
	"github.com/rushteam/fraudkit/pipeline"
)

// 轻量 facade：便于用户直接 import "fraudkit" 使用核心抽象。
type Scorer = pipeline.Scorer
type Stage = pipeline.Stage
type Kind = pipeline.Kind
type Request = core.ScoreRequest
type Result = core.ScoreResult
type Response = core.Response

const (
	KindValidate = pipeline.KindValidate
	KindGuard    = pipeline.KindGuard
	KindEnrich   = pipeline.KindEnrich
	KindLoad     = pipeline.KindLoad
	KindAssemble = pipeline.KindAssemble
	KindScale    = pipeline.KindScale
	KindClassify = pipeline.KindClassify
	KindPackage  = pipeline.KindPackage
	KindRecord   = pipeline.KindRecord
)

// New 以 artifactDir 为产物目录创建 Scorer，artifactDir 为空时使用可执行文件同级的 models 目录。
func New(artifactDir string, opts ...pipeline.Option) (*Scorer, error) {
	resolver, err := artifact.NewResolver(artifactDir)
	if err != nil {
		return nil, err
	}
	return pipeline.NewScorer(resolver, opts...), nil
}
