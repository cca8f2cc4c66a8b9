package core

// 产物命名约定（文件系统契约，需与上游导出保持逐字节一致）
const (
	// ArtifactExtension 是所有产物文件的扩展名
	ArtifactExtension = ".json"

	// ClassifierSuffix 追加在规范化模型名之后，如 "random_forest_model.json"
	ClassifierSuffix = "_model"

	// ScalerBaseName 是所有模型共享的标准化器文件名（不含扩展名）
	ScalerBaseName = "time_amount_scaler"
)

// 标准化器的两列契约：[Time, Amount]，顺序固定。
const (
	FeatureTime   = "Time"
	FeatureAmount = "Amount"
)

// DecisionThreshold 是正类概率的判定阈值，不可配置：p >= 0.5 判为 fraud。
const DecisionThreshold = 0.5

// DefaultRecordTTLSeconds 是预测审计记录的默认保留时长（7 天）。
const DefaultRecordTTLSeconds = 7 * 24 * 3600
