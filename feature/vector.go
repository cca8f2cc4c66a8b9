package feature

import (
	"fmt"
	"math"

	"github.com/rushteam/fraudkit/core"
	"github.com/rushteam/fraudkit/pkg/conv"
)

// Assemble 按 order 顺序从 features 中取值构建单行特征向量。
//
// 与训练时的列顺序严格对齐：
//   - order 中的名字在 features 中不存在 -> FEATURE_ALIGNMENT_ERROR
//   - 值无法转为有限的 float64 -> INVALID_FEATURE_VALUE
//
// 缺失值不做填充，宁可报错也不把错位的向量交给模型。
func Assemble(features map[string]any, order []string) ([]float64, error) {
	vector := make([]float64, len(order))
	for i, name := range order {
		raw, ok := features[name]
		if !ok {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeFeatureAlignment,
				fmt.Sprintf("feature %q in featureOrder is missing from features", name))
		}
		v, ok := conv.ToFloat64(raw)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidValue,
				fmt.Sprintf("could not convert feature %q value %v to float64", name, raw))
		}
		vector[i] = v
	}
	return vector, nil
}

// MissingFeatures 返回 order 中在 features 里缺失的特征名（保持 order 顺序）。
func MissingFeatures(features map[string]any, order []string) []string {
	var missing []string
	for _, name := range order {
		if _, ok := features[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// IndexOf 返回 name 在 order 中第一次出现的位置，不存在返回 -1。
func IndexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}
