package pipeline

import (
	"github.com/rushteam/fraudkit/artifact"
	"github.com/rushteam/fraudkit/feature"
	"github.com/rushteam/fraudkit/model"
)

// ArtifactLoader 加载模型与标准化器产物。
type ArtifactLoader interface {
	LoadClassifier(path string) (model.Decider, error)
	LoadScaler(path string) (feature.Scaler, error)
}

// FileLoader 每次调用都从磁盘读取产物。
type FileLoader struct{}

func (FileLoader) LoadClassifier(path string) (model.Decider, error) {
	return model.LoadDecider(path)
}

func (FileLoader) LoadScaler(path string) (feature.Scaler, error) {
	return feature.LoadScaler(path)
}

// CachedLoader 通过 artifact.Registry 缓存产物；文件指纹变化后自动重新加载。
type CachedLoader struct {
	classifiers *artifact.Registry[model.Decider]
	scalers     *artifact.Registry[feature.Scaler]
}

// NewCachedLoader 用 base 作为未命中时的加载逻辑。base 为 nil 时使用 FileLoader。
func NewCachedLoader(base ArtifactLoader) *CachedLoader {
	if base == nil {
		base = FileLoader{}
	}
	return &CachedLoader{
		classifiers: artifact.NewRegistry(base.LoadClassifier),
		scalers:     artifact.NewRegistry(base.LoadScaler),
	}
}

func (c *CachedLoader) LoadClassifier(path string) (model.Decider, error) {
	return c.classifiers.Get(path)
}

func (c *CachedLoader) LoadScaler(path string) (feature.Scaler, error) {
	return c.scalers.Get(path)
}

// Purge 清空缓存
func (c *CachedLoader) Purge() {
	c.classifiers.Purge()
	c.scalers.Purge()
}

// CacheStats 缓存统计
type CacheStats struct {
	Classifiers int   `json:"classifiers"`
	Scalers     int   `json:"scalers"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
}

// Stats 返回缓存条目数与命中统计
func (c *CachedLoader) Stats() CacheStats {
	ch, cm := c.classifiers.Stats()
	sh, sm := c.scalers.Stats()
	return CacheStats{
		Classifiers: c.classifiers.Len(),
		Scalers:     c.scalers.Len(),
		Hits:        ch + sh,
		Misses:      cm + sm,
	}
}
