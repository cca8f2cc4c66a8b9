package feature

import (
	"context"
)

// Source 在线特征源，用于补齐请求中缺失的特征。
//
// entity 是实体键（如 {"transaction_id": "tx_1"}），names 为需要的特征名；
// 返回值只包含特征源实际取到的特征，取不到的名字不出现在结果中。
type Source interface {
	Name() string
	Fetch(ctx context.Context, entity map[string]any, names []string) (map[string]float64, error)
}

// FillMissing 用 fetched 中的值补齐 features 中缺失的名字，已有的值不会被覆盖。
// 返回新 map，并返回实际补齐的名字。
func FillMissing(features map[string]any, fetched map[string]float64) (map[string]any, []string) {
	out := make(map[string]any, len(features)+len(fetched))
	for k, v := range features {
		out[k] = v
	}
	var filled []string
	for k, v := range fetched {
		if _, ok := out[k]; ok {
			continue
		}
		out[k] = v
		filled = append(filled, k)
	}
	return out, filled
}
