package model

import (
	"context"
	"fmt"
	"math"

	"github.com/rushteam/fraudkit/core"
)

// Classifier 是二分类模型的最小抽象：一个名字和训练时固定的输入维度。
// 具体能力由下面两个接口之一提供，加载时确定，调用时不再判断。
type Classifier interface {
	Name() string
	NumFeatures() int
}

// ProbabilisticClassifier 输出正类（class 1 = fraud）的概率。
type ProbabilisticClassifier interface {
	Classifier
	PredictProba(ctx context.Context, x []float64) (float64, error)
}

// LabelOnlyClassifier 只输出硬标签（0 或 1）。
type LabelOnlyClassifier interface {
	Classifier
	PredictLabel(ctx context.Context, x []float64) (int, error)
}

// Decision 是一次分类的判定结果。
type Decision struct {
	Class      int     // 0 或 1
	Confidence int     // 预测类别的概率百分比（0-100，四舍六入五成双）
	Proba      float64 // 正类概率；标签模型为 NaN
}

// Decider 把分类器输出转换为 Decision。
type Decider interface {
	Classifier() Classifier
	Decide(ctx context.Context, x []float64) (Decision, error)
}

// NewDecider 按模型能力选择判定方式；同时具备两种能力时优先使用概率。
func NewDecider(c Classifier) (Decider, error) {
	switch m := c.(type) {
	case ProbabilisticClassifier:
		return &probaDecider{model: m}, nil
	case LabelOnlyClassifier:
		return &labelDecider{model: m}, nil
	case nil:
		return nil, fmt.Errorf("classifier is nil")
	default:
		return nil, fmt.Errorf("classifier %q exposes neither probabilities nor labels", c.Name())
	}
}

type probaDecider struct {
	model ProbabilisticClassifier
}

func (d *probaDecider) Classifier() Classifier { return d.model }

func (d *probaDecider) Decide(ctx context.Context, x []float64) (Decision, error) {
	if err := CheckDims(d.model, x); err != nil {
		return Decision{}, err
	}
	p, err := d.model.PredictProba(ctx, x)
	if err != nil {
		return Decision{}, invocationError(d.model, err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Decision{}, invocationError(d.model, fmt.Errorf("probability %v out of range [0, 1]", p))
	}
	return DecideFromProba(p), nil
}

type labelDecider struct {
	model LabelOnlyClassifier
}

func (d *labelDecider) Classifier() Classifier { return d.model }

func (d *labelDecider) Decide(ctx context.Context, x []float64) (Decision, error) {
	if err := CheckDims(d.model, x); err != nil {
		return Decision{}, err
	}
	label, err := d.model.PredictLabel(ctx, x)
	if err != nil {
		return Decision{}, invocationError(d.model, err)
	}
	if label != 0 && label != 1 {
		return Decision{}, invocationError(d.model, fmt.Errorf("label %d is not binary", label))
	}
	return Decision{Class: label, Confidence: 100, Proba: math.NaN()}, nil
}

// DecideFromProba 由正类概率得到类别与置信度：
// p >= 0.5 判为 1；置信度为预测类别的概率 ×100 后四舍六入五成双取整。
func DecideFromProba(p float64) Decision {
	class := 0
	classProba := 1 - p
	if p >= core.DecisionThreshold {
		class = 1
		classProba = p
	}
	return Decision{
		Class:      class,
		Confidence: int(math.RoundToEven(classProba * 100)),
		Proba:      p,
	}
}

// CheckDims 校验输入维度与训练时一致。
func CheckDims(c Classifier, x []float64) error {
	if len(x) != c.NumFeatures() {
		return core.NewDomainError(core.ModuleModel, core.ErrorCodeModelInvocation,
			fmt.Sprintf("X has %d features, but %s is expecting %d features as input", len(x), c.Name(), c.NumFeatures()))
	}
	return nil
}

func invocationError(c Classifier, err error) error {
	if core.IsDomainError(err) {
		return err
	}
	return core.WrapDomainError(core.ModuleModel, core.ErrorCodeModelInvocation, c.Name(), err)
}
