package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// LRModel 实现了逻辑回归 (Logistic Regression) 二分类模型。
//
// 预测原理：
// 1. 线性加权求和: z = Intercept + sum(Coef_i * x_i)
// 2. Sigmoid 变换: P = 1 / (1 + exp(-z))
//
// 输出 P 为正类（fraud）概率。Coef 按 featureOrder 列顺序排列。
type LRModel struct {
	Coef      []float64 // 特征系数 (Coefficients)，与列一一对应
	Intercept float64   // 偏置项 (Bias / Intercept)
}

func (m *LRModel) Name() string     { return TypeLogisticRegression }
func (m *LRModel) NumFeatures() int { return len(m.Coef) }

func (m *LRModel) PredictProba(_ context.Context, x []float64) (float64, error) {
	z := m.Intercept
	for i, w := range m.Coef {
		z += w * x[i]
	}
	return sigmoid(z), nil
}

// sigmoid 数值稳定版本，避免 exp 溢出。
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func buildLRModel(data []byte) (Classifier, error) {
	var raw struct {
		NFeatures int       `json:"n_features"`
		Coef      []float64 `json:"coef"`
		Intercept float64   `json:"intercept"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.Coef) == 0 {
		return nil, fmt.Errorf("coef is empty")
	}
	if raw.NFeatures != 0 && raw.NFeatures != len(raw.Coef) {
		return nil, fmt.Errorf("n_features=%d does not match %d coefficients", raw.NFeatures, len(raw.Coef))
	}
	return &LRModel{Coef: raw.Coef, Intercept: raw.Intercept}, nil
}
