package pipeline

import (
	"context"

	"github.com/rushteam/fraudkit/artifact"
	"github.com/rushteam/fraudkit/core"
	"github.com/rushteam/fraudkit/feature"
	"github.com/rushteam/fraudkit/model"
)

// State 是一次打分在各阶段之间传递的状态。
type State struct {
	Request *core.ScoreRequest

	// Features 是工作副本：补齐阶段只写这里，不修改 Request
	Features map[string]any

	Paths   artifact.Paths
	Decider model.Decider
	Scaler  feature.Scaler

	Raw      []float64 // 组装后的原始向量
	Vector   []float64 // 缩放后交给模型的向量
	Decision model.Decision
	Result   *core.ScoreResult

	// Failed 记录失败的阶段（成功时为空）
	Failed Kind
}

// NewState 基于请求创建状态。
func NewState(req *core.ScoreRequest) *State {
	return &State{Request: req, Features: req.Features}
}

// Pipeline 把打分逻辑拆成可组合的 Stage 链，顺序执行，遇错即停。
type Pipeline struct {
	Stages []Stage
}

func (p *Pipeline) Run(ctx context.Context, st *State) error {
	for _, stage := range p.Stages {
		if err := stage.Process(ctx, st); err != nil {
			st.Failed = stage.Kind()
			return err
		}
	}
	return nil
}
