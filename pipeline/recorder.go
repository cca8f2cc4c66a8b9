package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/fraudkit/core"
)

const (
	recordKeyPrefix = "prediction:"
	indexKeyPrefix  = "predictions:"
)

// PredictionRecord 是一次成功打分的审计记录。
type PredictionRecord struct {
	ID         string          `json:"id"`
	ModelName  string          `json:"modelName"`
	Prediction core.Prediction `json:"prediction"`
	Confidence int             `json:"confidence"`
	Features   map[string]any  `json:"features"`
	UserID     string          `json:"userId,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Recorder 把预测写入 core.Store：
//   - prediction:<id> 存 JSON 记录（带 TTL）
//   - predictions:<modelName> 是按时间排序的有序集合索引
type Recorder struct {
	store core.Store
	ttl   int
	now   func() time.Time
	newID func() string
}

// NewRecorder 创建记录器，ttlSeconds <= 0 时使用 core.DefaultRecordTTLSeconds。
func NewRecorder(store core.Store, ttlSeconds int) *Recorder {
	if ttlSeconds <= 0 {
		ttlSeconds = core.DefaultRecordTTLSeconds
	}
	return &Recorder{
		store: store,
		ttl:   ttlSeconds,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

type userIDKey struct{}

// WithUserID 在 ctx 中附带调用方用户 ID，记录时写入 PredictionRecord.UserID。
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext 读取 WithUserID 写入的用户 ID。
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// Record 写入一条预测记录并更新模型索引。
// features 应为实际参与打分的特征（含在线补齐的值）。
func (r *Recorder) Record(ctx context.Context, features map[string]any, res *core.ScoreResult) (*PredictionRecord, error) {
	rec := &PredictionRecord{
		ID:         r.newID(),
		ModelName:  res.ModelName,
		Prediction: res.Prediction,
		Confidence: res.Confidence,
		Features:   features,
		UserID:     UserIDFromContext(ctx),
		CreatedAt:  r.now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal prediction record: %w", err)
	}

	key := recordKeyPrefix + rec.ID
	if err := r.store.Set(ctx, key, data, r.ttl); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}
	score := float64(rec.CreatedAt.UnixMilli())
	if err := r.store.ZAdd(ctx, indexKeyPrefix+rec.ModelName, score, rec.ID); err != nil {
		return nil, fmt.Errorf("index %s: %w", key, err)
	}
	return rec, nil
}

// Get 按 ID 读取记录，不存在时返回 core.ErrStoreNotFound。
func (r *Recorder) Get(ctx context.Context, id string) (*PredictionRecord, error) {
	data, err := r.store.Get(ctx, recordKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	var rec PredictionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode prediction %s: %w", id, err)
	}
	return &rec, nil
}

// Recent 返回某模型最新的 n 条记录（新 -> 旧）。
// 已过期的记录会被跳过并从索引中移除，索引中还有更早的记录时继续向后翻页补足 n 条。
func (r *Recorder) Recent(ctx context.Context, modelName string, n int) ([]PredictionRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	indexKey := indexKeyPrefix + modelName

	var (
		records []PredictionRecord
		stale   []string
		start   int64
	)
	for len(records) < n {
		ids, err := r.store.ZRange(ctx, indexKey, start, start+int64(n)-1)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			break
		}
		start += int64(len(ids))

		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = recordKeyPrefix + id
		}
		values, err := r.store.BatchGet(ctx, keys)
		if err != nil {
			return nil, err
		}
		for i, id := range ids {
			if len(records) == n {
				break
			}
			data, ok := values[keys[i]]
			if !ok {
				stale = append(stale, id)
				continue
			}
			var rec PredictionRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return nil, fmt.Errorf("decode prediction %s: %w", id, err)
			}
			records = append(records, rec)
		}
		if len(ids) < n {
			break
		}
	}
	// 翻页结束后再清理索引，避免偏移量错位
	if len(stale) > 0 {
		_ = r.store.ZRem(ctx, indexKey, stale...)
	}
	return records, nil
}
