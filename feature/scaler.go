package feature

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rushteam/fraudkit/core"
)

// Scaler 是已拟合的列变换（标准化器），对一行固定列序的数值做变换。
// 加载后不可变，可在所有请求和模型之间共享。
type Scaler interface {
	// Columns 返回拟合时的列名（顺序即输入顺序）
	Columns() []string
	// Transform 变换一行数据，长度必须等于 len(Columns())
	Transform(row []float64) ([]float64, error)
}

// 标准化器类型
const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
	ScalerRobust   = "robust"
)

// StandardScaler Z-score 标准化（Standardization）
// 公式: z = (x - mean) / scale
// scale 为 0 的列按 1 处理（与训练端对常数列的处理一致）
type StandardScaler struct {
	columns []string
	Mean    []float64
	Scale   []float64
}

func (s *StandardScaler) Columns() []string { return s.columns }

func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if err := checkRow(s.columns, row); err != nil {
		return nil, err
	}
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = (v - s.Mean[i]) / nonZero(s.Scale[i])
	}
	return out, nil
}

// MinMaxScaler Min-Max 归一化
// 公式: x' = (x - min) / (max - min) * (hi - lo) + lo
type MinMaxScaler struct {
	columns []string
	DataMin []float64
	DataMax []float64
	Range   [2]float64
}

func (s *MinMaxScaler) Columns() []string { return s.columns }

func (s *MinMaxScaler) Transform(row []float64) ([]float64, error) {
	if err := checkRow(s.columns, row); err != nil {
		return nil, err
	}
	lo, hi := s.Range[0], s.Range[1]
	out := make([]float64, len(row))
	for i, v := range row {
		std := (v - s.DataMin[i]) / nonZero(s.DataMax[i]-s.DataMin[i])
		out[i] = std*(hi-lo) + lo
	}
	return out, nil
}

// RobustScaler Robust 标准化
// 公式: x' = (x - center) / scale，center 通常为中位数，scale 为四分位距
type RobustScaler struct {
	columns []string
	Center  []float64
	Scale   []float64
}

func (s *RobustScaler) Columns() []string { return s.columns }

func (s *RobustScaler) Transform(row []float64) ([]float64, error) {
	if err := checkRow(s.columns, row); err != nil {
		return nil, err
	}
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = (v - s.Center[i]) / nonZero(s.Scale[i])
	}
	return out, nil
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func checkRow(columns []string, row []float64) error {
	if len(row) != len(columns) {
		return fmt.Errorf("scaler expects %d columns %v, got %d", len(columns), columns, len(row))
	}
	return nil
}

// scalerArtifact 是标准化器产物的 JSON 结构。
type scalerArtifact struct {
	Type         string     `json:"type"`
	Columns      []string   `json:"columns"`
	Mean         []float64  `json:"mean"`
	Scale        []float64  `json:"scale"`
	Center       []float64  `json:"center"`
	DataMin      []float64  `json:"data_min"`
	DataMax      []float64  `json:"data_max"`
	FeatureRange *[2]float64 `json:"feature_range"`
}

// DecodeScaler 解析标准化器产物。列必须恰好为 [Time, Amount]。
func DecodeScaler(data []byte) (Scaler, error) {
	var raw scalerArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse scaler: %w", err)
	}

	if len(raw.Columns) == 0 {
		raw.Columns = []string{core.FeatureTime, core.FeatureAmount}
	}
	if len(raw.Columns) != 2 || raw.Columns[0] != core.FeatureTime || raw.Columns[1] != core.FeatureAmount {
		return nil, fmt.Errorf("scaler columns must be [%s %s], got %v", core.FeatureTime, core.FeatureAmount, raw.Columns)
	}
	n := len(raw.Columns)

	switch raw.Type {
	case ScalerStandard, "":
		if len(raw.Mean) != n || len(raw.Scale) != n {
			return nil, fmt.Errorf("standard scaler needs %d mean and scale values", n)
		}
		return &StandardScaler{columns: raw.Columns, Mean: raw.Mean, Scale: raw.Scale}, nil

	case ScalerMinMax:
		if len(raw.DataMin) != n || len(raw.DataMax) != n {
			return nil, fmt.Errorf("minmax scaler needs %d data_min and data_max values", n)
		}
		rng := [2]float64{0, 1}
		if raw.FeatureRange != nil {
			rng = *raw.FeatureRange
		}
		return &MinMaxScaler{columns: raw.Columns, DataMin: raw.DataMin, DataMax: raw.DataMax, Range: rng}, nil

	case ScalerRobust:
		if len(raw.Center) != n || len(raw.Scale) != n {
			return nil, fmt.Errorf("robust scaler needs %d center and scale values", n)
		}
		return &RobustScaler{columns: raw.Columns, Center: raw.Center, Scale: raw.Scale}, nil

	default:
		return nil, fmt.Errorf("unsupported scaler type %q", raw.Type)
	}
}

// LoadScaler 从文件加载标准化器。
func LoadScaler(path string) (Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeScaler(data)
}

// ScaleColumns 对向量中的 Time 与 Amount 两列做变换并原位写回。
//
// 1. 定位 "Time" 与 "Amount" 在 order 中的位置（缺失 -> FEATURE_ALIGNMENT_ERROR）
// 2. 取出 [Time, Amount] 交给 scaler
// 3. 写回原位置，其余列保持不变
//
// 返回新切片，不修改入参 vector。
func ScaleColumns(vector []float64, order []string, scaler Scaler) ([]float64, error) {
	if len(vector) != len(order) {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeFeatureAlignment,
			fmt.Sprintf("vector has %d values but featureOrder has %d names", len(vector), len(order)))
	}

	timeIdx := IndexOf(order, core.FeatureTime)
	if timeIdx < 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeFeatureAlignment,
			fmt.Sprintf("%q is not in featureOrder", core.FeatureTime))
	}
	amountIdx := IndexOf(order, core.FeatureAmount)
	if amountIdx < 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeFeatureAlignment,
			fmt.Sprintf("%q is not in featureOrder", core.FeatureAmount))
	}

	scaled, err := scaler.Transform([]float64{vector[timeIdx], vector[amountIdx]})
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeModelInvocation, "scaler transform failed", err)
	}
	if len(scaled) != 2 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeModelInvocation,
			fmt.Sprintf("scaler returned %d values, want 2", len(scaled)))
	}

	out := make([]float64, len(vector))
	copy(out, vector)
	out[timeIdx] = scaled[0]
	out[amountIdx] = scaled[1]
	return out, nil
}
