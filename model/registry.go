package model

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// 内置产物类型
const (
	TypeLogisticRegression = "logistic_regression"
	TypeRandomForest       = "random_forest"
	TypeSVM                = "svm"
	TypeRPC                = "rpc"
)

// Builder 根据产物 JSON 构建分类器。
// 各模型在 init 中调用 Register(typeName, builder) 即可被产物驱动加载。
type Builder func(data []byte) (Classifier, error)

var (
	builders   = make(map[string]Builder)
	buildersMu sync.RWMutex
)

func init() {
	Register(TypeLogisticRegression, buildLRModel)
	Register(TypeRandomForest, buildRandomForestModel)
	Register(TypeSVM, buildSVMModel)
	Register(TypeRPC, buildRPCModel)
}

// Register 注册一种产物类型的构建逻辑。
func Register(typeName string, builder Builder) {
	if typeName == "" || builder == nil {
		return
	}
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[typeName] = builder
}

// SupportedTypes 返回当前已注册的产物类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Decode 解析带 type 字段的产物 JSON 并构建分类器。
func Decode(data []byte) (Classifier, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}
	if head.Type == "" {
		return nil, fmt.Errorf("artifact type is missing (supported: %v)", SupportedTypes())
	}

	buildersMu.RLock()
	builder, ok := builders[head.Type]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported artifact type %q (supported: %v)", head.Type, SupportedTypes())
	}

	c, err := builder(data)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", head.Type, err)
	}
	return c, nil
}

// LoadFile 从文件加载分类器。
func LoadFile(path string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// LoadDecider 从文件加载分类器并在加载时确定判定方式。
func LoadDecider(path string) (Decider, error) {
	c, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewDecider(c)
}
