package feast

import (
	"context"
	"fmt"

	"github.com/rushteam/fraudkit/feature"
)

// Source 基于 Feast 在线特征实现 feature.Source。
//
// 特征名 name 映射为特征引用 "<view>:<name>"，例如 View="transaction_stats"
// 时 "V14" -> "transaction_stats:V14"。只返回能转为数值的特征。
type Source struct {
	client Client
	view   string
}

// NewSource 创建特征源。
func NewSource(client Client, view string) *Source {
	return &Source{client: client, view: view}
}

func (s *Source) Name() string { return "feast" }

// Fetch 为单个实体取回 names 对应的在线特征。
func (s *Source) Fetch(ctx context.Context, entity map[string]any, names []string) (map[string]float64, error) {
	if len(entity) == 0 || len(names) == 0 {
		return map[string]float64{}, nil
	}

	refs := make([]string, len(names))
	for i, name := range names {
		refs[i] = s.ref(name)
	}

	resp, err := s.client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   refs,
		EntityRows: []map[string]any{entity},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.FeatureVectors) != 1 {
		return nil, fmt.Errorf("feast returned %d rows for one entity", len(resp.FeatureVectors))
	}

	values := resp.FeatureVectors[0].Values
	out := make(map[string]float64, len(names))
	for i, name := range names {
		v, ok := values[refs[i]]
		if !ok {
			continue
		}
		if f, ok := v.(float64); ok {
			out[name] = f
		}
	}
	return out, nil
}

func (s *Source) ref(name string) string {
	if s.view == "" {
		return name
	}
	return s.view + ":" + name
}

var _ feature.Source = (*Source)(nil)
