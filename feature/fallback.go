package feature

import (
	"context"

	"github.com/rs/zerolog/log"
)

// StaticSource 返回固定的特征值，通常作为降级时的默认值。
type StaticSource struct {
	Values map[string]float64
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Fetch(_ context.Context, _ map[string]any, names []string) (map[string]float64, error) {
	out := make(map[string]float64, len(names))
	for _, name := range names {
		if v, ok := s.Values[name]; ok {
			out[name] = v
		}
	}
	return out, nil
}

// FallbackSource 主特征源不可用时使用降级特征源。
// 主特征源成功但缺少部分名字时，缺少的名字同样由降级特征源补齐。
type FallbackSource struct {
	Primary  Source
	Fallback Source
}

func (f *FallbackSource) Name() string { return f.Primary.Name() }

func (f *FallbackSource) Fetch(ctx context.Context, entity map[string]any, names []string) (map[string]float64, error) {
	got, err := f.Primary.Fetch(ctx, entity, names)
	if err != nil {
		log.Warn().Err(err).Str("source", f.Primary.Name()).Msg("feature source unavailable, falling back")
		return f.Fallback.Fetch(ctx, entity, names)
	}

	var rest []string
	for _, name := range names {
		if _, ok := got[name]; !ok {
			rest = append(rest, name)
		}
	}
	if len(rest) == 0 {
		return got, nil
	}
	extra, err := f.Fallback.Fetch(ctx, entity, rest)
	if err != nil {
		return got, nil
	}
	if got == nil {
		got = make(map[string]float64, len(extra))
	}
	for k, v := range extra {
		got[k] = v
	}
	return got, nil
}
