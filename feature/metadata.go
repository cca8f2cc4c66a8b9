package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// FeatureMetadata 特征元数据，对应训练端导出的 feature_names.json
type FeatureMetadata struct {
	// FeatureColumns 特征列名列表（按训练时的列顺序）
	FeatureColumns []string `json:"feature_columns"`
	// ModelVersion 模型版本
	ModelVersion string `json:"model_version,omitempty"`
	// CreatedAt 创建时间
	CreatedAt string `json:"created_at,omitempty"`
}

// LoadFeatureNames 从文件加载特征列顺序
//
// 文件内容支持两种格式：
//
//	["Time", "V1", ..., "Amount"]
//	{"feature_columns": ["Time", "V1", ..., "Amount"], "model_version": "..."}
func LoadFeatureNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature names: %w", err)
	}
	meta, err := DecodeFeatureMetadata(data)
	if err != nil {
		return nil, err
	}
	return meta.FeatureColumns, nil
}

// DecodeFeatureMetadata 解析特征元数据，裸数组视为只有 feature_columns。
func DecodeFeatureMetadata(data []byte) (*FeatureMetadata, error) {
	var meta FeatureMetadata

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &meta.FeatureColumns); err != nil {
			return nil, fmt.Errorf("parse feature names: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, &meta); err != nil {
		return nil, fmt.Errorf("parse feature names: %w", err)
	}

	if len(meta.FeatureColumns) == 0 {
		return nil, fmt.Errorf("feature names are empty")
	}
	seen := make(map[string]struct{}, len(meta.FeatureColumns))
	for _, name := range meta.FeatureColumns {
		if name == "" {
			return nil, fmt.Errorf("feature names contain an empty name")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("feature name %q is duplicated", name)
		}
		seen[name] = struct{}{}
	}
	return &meta, nil
}
