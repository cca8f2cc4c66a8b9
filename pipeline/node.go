package pipeline

import (
	"context"
)

// Kind 用于标记 Stage 类型，方便观测/打点（例如按阶段统计失败）。
type Kind string

const (
	KindValidate Kind = "validate" // 校验必填字段
	KindGuard    Kind = "guard"    // 规则守卫
	KindEnrich   Kind = "enrich"   // 在线特征补齐
	KindLoad     Kind = "load"     // 加载模型与标准化器
	KindAssemble Kind = "assemble" // 按 featureOrder 组装向量
	KindScale    Kind = "scale"    // Time/Amount 两列缩放
	KindClassify Kind = "classify" // 模型判定
	KindPackage  Kind = "package"  // 组装结果
	KindRecord   Kind = "record"   // 记录预测
)

// Stage 是 Pipeline 的最小可扩展单元。
// 统一采用“读写同一个 State”的形态，返回错误即短路后续阶段。
type Stage interface {
	Name() string
	Kind() Kind

	Process(ctx context.Context, st *State) error
}

// StageFunc 把函数适配为 Stage。
type StageFunc struct {
	StageName string
	StageKind Kind
	Fn        func(ctx context.Context, st *State) error
}

func (f StageFunc) Name() string { return f.StageName }
func (f StageFunc) Kind() Kind   { return f.StageKind }

func (f StageFunc) Process(ctx context.Context, st *State) error {
	return f.Fn(ctx, st)
}
