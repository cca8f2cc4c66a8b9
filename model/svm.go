package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// 支持的核函数
const (
	KernelLinear = "linear"
	KernelRBF    = "rbf"
)

// SVMModel 是支持向量机的决策函数：
//
//	f(x) = sum(DualCoef_i * K(SV_i, x)) + Intercept
//
// 线性核且只导出 Coef（LinearSVC）时退化为 f(x) = Coef·x + Intercept。
// f(x) > 0 判为正类。导出方负责保证正类方向与 class 1 一致。
type SVMModel struct {
	Kernel         string
	Gamma          float64
	SupportVectors [][]float64
	DualCoef       []float64
	Coef           []float64
	Intercept      float64
	nFeatures      int
}

func (m *SVMModel) Name() string     { return TypeSVM }
func (m *SVMModel) NumFeatures() int { return m.nFeatures }

// DecisionFunction 计算到分隔超平面的有符号距离。
func (m *SVMModel) DecisionFunction(x []float64) float64 {
	f := m.Intercept
	if len(m.SupportVectors) == 0 {
		return f + dot(m.Coef, x)
	}
	for i, sv := range m.SupportVectors {
		f += m.DualCoef[i] * m.kernel(sv, x)
	}
	return f
}

func (m *SVMModel) kernel(a, b []float64) float64 {
	if m.Kernel == KernelRBF {
		var d2 float64
		for i := range a {
			d := a[i] - b[i]
			d2 += d * d
		}
		return math.Exp(-m.Gamma * d2)
	}
	return dot(a, b)
}

// PredictLabel 返回 f(x) > 0 ? 1 : 0。
func (m *SVMModel) PredictLabel(_ context.Context, x []float64) (int, error) {
	if m.DecisionFunction(x) > 0 {
		return 1, nil
	}
	return 0, nil
}

// PlattSVMModel 是带 Platt 概率校准的 SVM（训练时 probability=True）：
//
//	P(class 1 | x) = 1 / (1 + exp(ProbA * f(x) + ProbB))
type PlattSVMModel struct {
	*SVMModel
	ProbA float64
	ProbB float64
}

func (m *PlattSVMModel) PredictProba(_ context.Context, x []float64) (float64, error) {
	return sigmoid(-(m.ProbA*m.DecisionFunction(x) + m.ProbB)), nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// buildSVMModel 根据是否导出了 prob_a/prob_b 决定返回概率模型或标签模型。
func buildSVMModel(data []byte) (Classifier, error) {
	var raw struct {
		NFeatures      int         `json:"n_features"`
		Kernel         string      `json:"kernel"`
		Gamma          float64     `json:"gamma"`
		SupportVectors [][]float64 `json:"support_vectors"`
		DualCoef       []float64   `json:"dual_coef"`
		Coef           []float64   `json:"coef"`
		Intercept      float64     `json:"intercept"`
		ProbA          *float64    `json:"prob_a"`
		ProbB          *float64    `json:"prob_b"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Kernel == "" {
		raw.Kernel = KernelLinear
	}
	if raw.Kernel != KernelLinear && raw.Kernel != KernelRBF {
		return nil, fmt.Errorf("unsupported kernel %q", raw.Kernel)
	}

	m := &SVMModel{
		Kernel:         raw.Kernel,
		Gamma:          raw.Gamma,
		SupportVectors: raw.SupportVectors,
		DualCoef:       raw.DualCoef,
		Coef:           raw.Coef,
		Intercept:      raw.Intercept,
		nFeatures:      raw.NFeatures,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	if (raw.ProbA == nil) != (raw.ProbB == nil) {
		return nil, fmt.Errorf("prob_a and prob_b must be exported together")
	}
	if raw.ProbA != nil {
		return &PlattSVMModel{SVMModel: m, ProbA: *raw.ProbA, ProbB: *raw.ProbB}, nil
	}
	return m, nil
}

func (m *SVMModel) validate() error {
	if len(m.SupportVectors) == 0 {
		if m.Kernel != KernelLinear {
			return fmt.Errorf("%s kernel requires support vectors", m.Kernel)
		}
		if len(m.Coef) == 0 {
			return fmt.Errorf("either support_vectors or coef is required")
		}
		if m.nFeatures == 0 {
			m.nFeatures = len(m.Coef)
		}
		if len(m.Coef) != m.nFeatures {
			return fmt.Errorf("n_features=%d does not match %d coefficients", m.nFeatures, len(m.Coef))
		}
		return nil
	}

	if len(m.DualCoef) != len(m.SupportVectors) {
		return fmt.Errorf("%d dual coefficients for %d support vectors", len(m.DualCoef), len(m.SupportVectors))
	}
	if m.nFeatures == 0 {
		m.nFeatures = len(m.SupportVectors[0])
	}
	for i, sv := range m.SupportVectors {
		if len(sv) != m.nFeatures {
			return fmt.Errorf("support vector %d has %d features, want %d", i, len(sv), m.nFeatures)
		}
	}
	if m.Kernel == KernelRBF && m.Gamma <= 0 {
		return fmt.Errorf("rbf kernel requires positive gamma")
	}
	return nil
}
