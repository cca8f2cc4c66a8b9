// Package catalog 描述可用模型、离线评估指标与规范特征顺序。
//
// 数据来源优先级（高 -> 低）：
//  1. 产物目录中训练端导出的 model_metrics.json / feature_names.json
//  2. 产物目录中的 catalog.yaml
//  3. 内置默认值（RFE 选出的 15 个特征与对应的评估指标）
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/fraudkit/feature"
)

// 产物目录中的文件名
const (
	FileName         = "catalog.yaml"
	MetricsFileName  = "model_metrics.json"
	FeaturesFileName = "feature_names.json"
)

// 内置模型名
const (
	ModelLogisticRegression = "Logistic Regression"
	ModelRandomForest       = "Random Forest"
	ModelSVM                = "Support Vector Machine"
)

// Metrics 是单个模型在留出集上的评估指标。
type Metrics struct {
	F1Score   float64 `json:"f1_score" yaml:"f1_score"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	AUCROC    float64 `json:"auc_roc" yaml:"auc_roc"`
	AUPRC     float64 `json:"auprc" yaml:"auprc"`
}

// File 是 catalog.yaml 的结构。
//
//	models:
//	  - Logistic Regression
//	  - Random Forest
//	feature_order: [Time, V1, V4, Amount]
//	metrics:
//	  Random Forest: {f1_score: 0.87, precision: 0.97, recall: 0.79, auc_roc: 0.95, auprc: 0.88}
type File struct {
	Models       []string           `yaml:"models"`
	FeatureOrder []string           `yaml:"feature_order"`
	Metrics      map[string]Metrics `yaml:"metrics"`
}

// Catalog 加载后不可变，可并发读取。
type Catalog struct {
	models   []string
	metrics  map[string]Metrics
	features []string
}

// Default 返回只含内置默认值的目录。
func Default() *Catalog {
	return &Catalog{
		models:   defaultModels(),
		metrics:  defaultMetrics(),
		features: defaultFeatures(),
	}
}

// Load 从产物目录加载目录信息，文件不存在时逐项回退到下一优先级。
// 文件存在但无法解析时返回错误。
func Load(dir string) (*Catalog, error) {
	c := Default()

	file, err := loadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	if file != nil {
		if len(file.Models) > 0 {
			c.models = slices.Clone(file.Models)
		}
		if len(file.FeatureOrder) > 0 {
			c.features = slices.Clone(file.FeatureOrder)
		}
		if len(file.Metrics) > 0 {
			c.metrics = file.Metrics
		}
	}

	metrics, err := loadMetrics(filepath.Join(dir, MetricsFileName))
	if err != nil {
		return nil, err
	}
	if metrics != nil {
		c.metrics = metrics
	}

	names, err := feature.LoadFeatureNames(filepath.Join(dir, FeaturesFileName))
	switch {
	case err == nil:
		c.features = names
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	return c, nil
}

// Models 返回可用模型名列表。
func (c *Catalog) Models() []string { return slices.Clone(c.models) }

// HasModel 判断模型名是否在目录中。
func (c *Catalog) HasModel(name string) bool { return slices.Contains(c.models, name) }

// Metrics 返回每个模型的评估指标。
func (c *Catalog) Metrics() map[string]Metrics {
	out := make(map[string]Metrics, len(c.metrics))
	for k, v := range c.metrics {
		out[k] = v
	}
	return out
}

// FeatureNames 返回规范特征顺序。
func (c *Catalog) FeatureNames() []string { return slices.Clone(c.features) }

func loadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	return &f, nil
}

func loadMetrics(path string) (map[string]Metrics, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", MetricsFileName, err)
	}
	var m map[string]Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MetricsFileName, err)
	}
	return m, nil
}

func defaultModels() []string {
	return []string{ModelLogisticRegression, ModelRandomForest, ModelSVM}
}

// defaultFeatures RFE 选出的 15 个特征
func defaultFeatures() []string {
	return []string{
		"Time", "V1", "V4", "V5", "V8", "V10", "V12", "V13",
		"V14", "V16", "V17", "V20", "V22", "V28", "Amount",
	}
}

func defaultMetrics() map[string]Metrics {
	return map[string]Metrics{
		ModelLogisticRegression: {F1Score: 0.1056, Precision: 0.056, Recall: 0.9184, AUCROC: 0.9669, AUPRC: 0.7153},
		ModelRandomForest:       {F1Score: 0.8701, Precision: 0.9747, Recall: 0.7857, AUCROC: 0.9531, AUPRC: 0.8846},
		ModelSVM:                {F1Score: 0.0081, Precision: 0.0041, Recall: 0.9082, AUCROC: 0.9245, AUPRC: 0.6434},
	}
}
