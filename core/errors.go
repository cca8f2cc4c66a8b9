package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 打分链路的所有失败都使用此类型
//   - 提供错误代码（Code）和消息（Message），可携带底层原因（Cause）
//   - 支持错误检查函数（IsXXX），基于 errors.As，可穿透 %w 包装
//
// 使用场景：
//   - 请求错误：PARSE_ERROR, VALIDATION_ERROR, GUARD_REJECTED
//   - 推理错误：ARTIFACT_LOAD_ERROR, FEATURE_ALIGNMENT_ERROR, INVALID_FEATURE_VALUE, MODEL_INVOCATION_ERROR
type DomainError struct {
	Code    string // 错误代码（如 "VALIDATION_ERROR"）
	Message string // 错误消息
	Module  string // 模块名称（如 "artifact", "feature", "model"）
	Cause   error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建携带底层原因的领域错误
func WrapDomainError(module, code, message string, cause error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// 错误代码常量
const (
	ErrorCodeParse             = "PARSE_ERROR"             // 输入无法解析
	ErrorCodeValidation        = "VALIDATION_ERROR"        // 必填字段缺失
	ErrorCodeGuardRejected     = "GUARD_REJECTED"          // 被规则拒绝
	ErrorCodeArtifactLoad      = "ARTIFACT_LOAD_ERROR"     // 模型/标准化器文件缺失、不可读或损坏
	ErrorCodeFeatureAlignment  = "FEATURE_ALIGNMENT_ERROR" // 特征名与 featureOrder 不对齐
	ErrorCodeInvalidValue      = "INVALID_FEATURE_VALUE"   // 特征值无法转为 float64
	ErrorCodeInvalidField      = "INVALID_FIELD"           // 请求字段类型不符（非空）
	ErrorCodeModelInvocation   = "MODEL_INVOCATION_ERROR"  // 模型调用失败
	ErrorCodeUnavailable       = "UNAVAILABLE"             // 外部依赖不可用
	ErrorCodeNotFound          = "NOT_FOUND"               // 资源不存在
	ErrorCodeInternalError     = "INTERNAL_ERROR"          // 内部错误
)

// 模块名称常量
const (
	ModuleRequest  = "request"  // 请求解析与校验
	ModuleArtifact = "artifact" // 产物解析与加载
	ModuleFeature  = "feature"  // 特征组装与缩放
	ModuleModel    = "model"    // 分类器
	ModuleStore    = "store"    // 存储模块
	ModuleService  = "service"  // 服务模块
)

// 固定的对外错误文案
const (
	MessageParseFailed       = "Failed to read or parse input JSON."
	MessageMissingFields     = "Missing modelName, features, or featureOrder in input."
	inferenceMessageTemplate = "ML Inference Error for %s: %s"
)

var (
	// ErrParse 表示输入 JSON 无法读取或解析
	ErrParse = NewDomainError(ModuleRequest, ErrorCodeParse, MessageParseFailed)

	// ErrMissingFields 表示 modelName / features / featureOrder 缺失或为空
	ErrMissingFields = NewDomainError(ModuleRequest, ErrorCodeValidation, MessageMissingFields)
)

// InferenceMessage 生成推理错误的对外文案："ML Inference Error for {modelName}: {detail}"
func InferenceMessage(modelName string, err error) string {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return fmt.Sprintf(inferenceMessageTemplate, modelName, detail)
}

// IsInferenceError 判断错误是否应使用 InferenceError 信封上报。
// 产物加载、特征对齐、特征值与模型调用错误属于推理错误；未知错误同样按推理错误处理。
func IsInferenceError(err error) bool {
	if err == nil {
		return false
	}
	domainErr := GetDomainError(err)
	if domainErr == nil {
		return true
	}
	switch domainErr.Code {
	case ErrorCodeParse, ErrorCodeValidation, ErrorCodeGuardRejected:
		return false
	default:
		return true
	}
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsParse 检查错误是否为 PARSE_ERROR
func IsParse(err error) bool { return hasCode(err, ErrorCodeParse) }

// IsValidation 检查错误是否为 VALIDATION_ERROR
func IsValidation(err error) bool { return hasCode(err, ErrorCodeValidation) }

// IsGuardRejected 检查错误是否为 GUARD_REJECTED
func IsGuardRejected(err error) bool { return hasCode(err, ErrorCodeGuardRejected) }

// IsArtifactLoad 检查错误是否为 ARTIFACT_LOAD_ERROR
func IsArtifactLoad(err error) bool { return hasCode(err, ErrorCodeArtifactLoad) }

// IsFeatureAlignment 检查错误是否为 FEATURE_ALIGNMENT_ERROR
func IsFeatureAlignment(err error) bool { return hasCode(err, ErrorCodeFeatureAlignment) }

// IsInvalidFeatureValue 检查错误是否为 INVALID_FEATURE_VALUE
func IsInvalidFeatureValue(err error) bool { return hasCode(err, ErrorCodeInvalidValue) }

// IsModelInvocation 检查错误是否为 MODEL_INVOCATION_ERROR
func IsModelInvocation(err error) bool { return hasCode(err, ErrorCodeModelInvocation) }

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }
