package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Prediction 是二分类打分的离散结果。
type Prediction string

const (
	PredictionFraud      Prediction = "fraud"      // 正类（class 1）
	PredictionLegitimate Prediction = "legitimate" // 负类（class 0）
)

// PredictionFromClass 将分类器输出的类别映射为 Prediction：1 -> fraud，其余 -> legitimate。
func PredictionFromClass(class int) Prediction {
	if class == 1 {
		return PredictionFraud
	}
	return PredictionLegitimate
}

// ScoreRequest 是单条记录的打分请求。
//
// FeatureOrder 决定特征向量的列顺序，必须与模型训练时一致，
// 且必须包含 "Time" 与 "Amount" 两列（标准化器只认这两列）。
type ScoreRequest struct {
	ModelName    string         `json:"modelName"`
	Features     map[string]any `json:"features"`
	FeatureOrder []string       `json:"featureOrder"`

	// Entity 在线特征库的实体键（可选），仅在配置了特征源时用于补齐缺失特征
	Entity map[string]any `json:"entity,omitempty"`

	// invalid 记录 JSON 类型不符且值非空的字段，字段名 -> 原因
	invalid map[string]error
}

// 请求字段名，同时决定 FieldError 的检查顺序
var requestFields = []string{"modelName", "features", "featureOrder", "entity"}

// FieldError 返回第一个类型不符的非空字段，没有时返回 nil。
func (r *ScoreRequest) FieldError() error {
	for _, name := range requestFields {
		if err, ok := r.invalid[name]; ok {
			return err
		}
	}
	return nil
}

// ValidateRequest 校验必填字段：modelName、features、featureOrder 为空时返回 ErrMissingFields；
// 字段非空但类型不符时返回推理错误（与缺失字段区分）。不做任何 I/O。
func ValidateRequest(req *ScoreRequest) error {
	if req == nil {
		return ErrMissingFields
	}
	_, badFeatures := req.invalid["features"]
	_, badOrder := req.invalid["featureOrder"]
	if req.ModelName == "" ||
		(len(req.Features) == 0 && !badFeatures) ||
		(len(req.FeatureOrder) == 0 && !badOrder) {
		return ErrMissingFields
	}
	if err := req.FieldError(); err != nil {
		return WrapDomainError(ModuleRequest, ErrorCodeInvalidField, "invalid request field", err)
	}
	return nil
}

// ErrorResponse 按错误类别选择对外文案：
// 解析/校验/守卫错误使用固定文案，其余一律使用 "ML Inference Error for {modelName}: {detail}"。
func ErrorResponse(modelName string, err error) Response {
	if !IsInferenceError(err) {
		msg := err.Error()
		if de := GetDomainError(err); de != nil {
			msg = de.Message
		}
		return Failure(msg, err)
	}
	return Failure(InferenceMessage(modelName, err), err)
}

// ScoreResult 是成功的打分结果。
type ScoreResult struct {
	Prediction Prediction `json:"prediction"`
	Confidence int        `json:"confidence"`
	ModelName  string     `json:"modelName"`
}

// ScoreError 是失败的打分结果，仅包含可读的错误消息。
type ScoreError struct {
	Error string `json:"error"`
}

// Response 是一次打分调用的唯一产出：Result 与 Err 有且仅有一个非空。
type Response struct {
	Result *ScoreResult
	Err    *ScoreError

	// Cause 是内部错误（不序列化），便于调用方按错误码分支
	Cause error
}

// Success 构造成功响应。
func Success(result *ScoreResult) Response {
	return Response{Result: result}
}

// Failure 构造失败响应。
func Failure(message string, cause error) Response {
	return Response{Err: &ScoreError{Error: message}, Cause: cause}
}

// OK 表示是否为成功响应。
func (r Response) OK() bool {
	return r.Result != nil && r.Err == nil
}

// MarshalJSON 输出成功 schema 或错误 schema 之一，绝不同时输出。
func (r Response) MarshalJSON() ([]byte, error) {
	if r.OK() {
		return json.Marshal(r.Result)
	}
	if r.Err != nil {
		return json.Marshal(r.Err)
	}
	return json.Marshal(&ScoreError{Error: "empty response"})
}

// UnmarshalJSON 根据是否存在 "error" 字段还原响应（调用方反序列化回复时使用）。
func (r *Response) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if _, ok := fields["error"]; ok {
		var se ScoreError
		if err := json.Unmarshal(data, &se); err != nil {
			return err
		}
		*r = Response{Err: &se}
		return nil
	}
	var res ScoreResult
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	*r = Response{Result: &res}
	return nil
}

// DecodeScoreRequest 从 reader 读取一个 JSON 对象作为打分请求。
// 特征值以 json.Number 保留原始精度；读取或解析失败统一返回 ErrParse。
func DecodeScoreRequest(r io.Reader) (*ScoreRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, WrapDomainError(ModuleRequest, ErrorCodeParse, MessageParseFailed, err)
	}
	return ParseScoreRequest(data)
}

// ParseScoreRequest 解析 JSON 字节为打分请求。
//
// 只有非法 JSON 或顶层不是对象时返回 ErrParse。字段类型不符时：
// 值为空（null、false、0、""、[]、{}）视为字段缺失；否则记录在请求上，由 ValidateRequest 作为推理错误返回。
// 类型不符的非空 modelName 保留其 JSON 文本，便于错误信息中回显。
func ParseScoreRequest(data []byte) (*ScoreRequest, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, WrapDomainError(ModuleRequest, ErrorCodeParse, MessageParseFailed,
			fmt.Errorf("request must be a JSON object"))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, WrapDomainError(ModuleRequest, ErrorCodeParse, MessageParseFailed, err)
	}
	if dec.More() {
		return nil, WrapDomainError(ModuleRequest, ErrorCodeParse, MessageParseFailed,
			fmt.Errorf("unexpected data after request object"))
	}

	req := &ScoreRequest{}
	targets := map[string]any{
		"modelName":    &req.ModelName,
		"features":     &req.Features,
		"featureOrder": &req.FeatureOrder,
		"entity":       &req.Entity,
	}
	for _, name := range requestFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if err := decodeNumber(raw, targets[name]); err != nil {
			truthy, kind := jsonTruth(raw)
			if !truthy {
				continue
			}
			if req.invalid == nil {
				req.invalid = make(map[string]error)
			}
			req.invalid[name] = fmt.Errorf("%s has unsupported type %s", name, kind)
			if name == "modelName" {
				req.ModelName = string(bytes.TrimSpace(raw))
			}
		}
	}
	return req, nil
}

// decodeNumber 解码单个字段，数值保留为 json.Number
func decodeNumber(raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}

// jsonTruth 返回 JSON 值的真值与类型名
func jsonTruth(raw json.RawMessage) (bool, string) {
	var v any
	if err := decodeNumber(raw, &v); err != nil {
		return false, "invalid"
	}
	switch val := v.(type) {
	case nil:
		return false, "null"
	case bool:
		return val, "boolean"
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0, "number"
	case string:
		return val != "", "string"
	case []any:
		return len(val) > 0, "array"
	case map[string]any:
		return len(val) > 0, "object"
	default:
		return true, fmt.Sprintf("%T", v)
	}
}
