package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RPCModel 是通过 HTTP 调用外部模型服务的概率分类器。
// 产物文件只描述端点，模型本身部署在 GBDT/XGBoost/TF Serving 等服务中。
type RPCModel struct {
	Endpoint  string // 例如 "http://localhost:8080/predict"
	Timeout   time.Duration
	Client    *http.Client
	nFeatures int
}

func NewRPCModel(endpoint string, nFeatures int, timeout time.Duration) *RPCModel {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &RPCModel{
		Endpoint:  endpoint,
		Timeout:   timeout,
		nFeatures: nFeatures,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (m *RPCModel) Name() string     { return TypeRPC }
func (m *RPCModel) NumFeatures() int { return m.nFeatures }

// PredictProba 调用远程模型服务。
// 请求格式（JSON）：
//
//	{"instances": [[f1, f2, ...]]}
//
// 响应格式（JSON）：
//
//	{"probabilities": [0.91]}
func (m *RPCModel) PredictProba(ctx context.Context, x []float64) (float64, error) {
	if m.Client == nil {
		m.Client = &http.Client{Timeout: m.Timeout}
	}

	jsonData, err := json.Marshal(map[string]any{
		"instances": [][]float64{x},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, fmt.Errorf("rpc error: status=%d, read body failed: %w", resp.StatusCode, err)
		}
		return 0, fmt.Errorf("rpc error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var result struct {
		Probabilities []float64 `json:"probabilities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Probabilities) != 1 {
		return 0, fmt.Errorf("response probabilities count mismatch: expected 1, got %d", len(result.Probabilities))
	}
	return result.Probabilities[0], nil
}

func buildRPCModel(data []byte) (Classifier, error) {
	var raw struct {
		NFeatures int    `json:"n_features"`
		Endpoint  string `json:"endpoint"`
		TimeoutMS int64  `json:"timeout_ms"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Endpoint == "" {
		return nil, fmt.Errorf("endpoint not found")
	}
	if raw.NFeatures <= 0 {
		return nil, fmt.Errorf("n_features must be positive")
	}
	return NewRPCModel(raw.Endpoint, raw.NFeatures, time.Duration(raw.TimeoutMS)*time.Millisecond), nil
}
