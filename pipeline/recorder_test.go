package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/fraudkit/core"
	"github.com/rushteam/fraudkit/store"
)

func newTestRecorder(t *testing.T) (*Recorder, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore(0)
	t.Cleanup(func() { _ = ms.Close() })

	rec := NewRecorder(ms, 0)
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	seq := 0
	rec.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	rec.newID = func() string {
		seq++
		return fmt.Sprintf("id-%02d", seq)
	}
	return rec, ms
}

func TestRecorder_RecordAndGet(t *testing.T) {
	rec, ms := newTestRecorder(t)
	ctx := context.Background()

	features := map[string]any{"Time": json.Number("5000")}
	res := &core.ScoreResult{Prediction: core.PredictionFraud, Confidence: 91, ModelName: "Random Forest"}

	got, err := rec.Record(ctx, features, res)
	require.NoError(t, err)
	assert.Equal(t, "id-01", got.ID)
	assert.Equal(t, core.DefaultRecordTTLSeconds, rec.ttl)

	raw, err := ms.Get(ctx, "prediction:id-01")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "id-01",
		"modelName": "Random Forest",
		"prediction": "fraud",
		"confidence": 91,
		"features": {"Time": 5000},
		"createdAt": "2026-01-02T03:04:06Z"
	}`, string(raw))

	loaded, err := rec.Get(ctx, "id-01")
	require.NoError(t, err)
	assert.Equal(t, 91, loaded.Confidence)

	_, err = rec.Get(ctx, "nope")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestRecorder_Recent(t *testing.T) {
	rec, ms := newTestRecorder(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		model := "Random Forest"
		if i == 2 {
			model = "Logistic Regression"
		}
		_, err := rec.Record(ctx, nil,
			&core.ScoreResult{Prediction: core.PredictionLegitimate, Confidence: 60 + i, ModelName: model})
		require.NoError(t, err)
	}

	recent, err := rec.Recent(ctx, "Random Forest", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"id-05", "id-04", "id-02"}, []string{recent[0].ID, recent[1].ID, recent[2].ID})

	// 过期（被删除）的记录被跳过并从索引移除
	require.NoError(t, ms.Delete(ctx, "prediction:id-04"))
	recent, err = rec.Recent(ctx, "Random Forest", 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "id-05", recent[0].ID)
	assert.Equal(t, "id-02", recent[1].ID)

	ids, err := ms.ZRange(ctx, "predictions:Random Forest", 0, -1)
	require.NoError(t, err)
	assert.NotContains(t, ids, "id-04")

	empty, err := rec.Recent(ctx, "Unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	none, err := rec.Recent(ctx, "Random Forest", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecorder_RecentFillsPastStaleRecords(t *testing.T) {
	rec, ms := newTestRecorder(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := rec.Record(ctx, map[string]any{"Amount": float64(i)},
			&core.ScoreResult{Prediction: core.PredictionLegitimate, Confidence: 50 + i, ModelName: "Random Forest"})
		require.NoError(t, err)
	}
	// 最新的三条已过期
	for _, id := range []string{"id-08", "id-07", "id-06"} {
		require.NoError(t, ms.Delete(ctx, "prediction:"+id))
	}

	recent, err := rec.Recent(ctx, "Random Forest", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"id-05", "id-04", "id-03"}, []string{recent[0].ID, recent[1].ID, recent[2].ID})

	ids, err := ms.ZRange(ctx, "predictions:Random Forest", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"id-05", "id-04", "id-03", "id-02", "id-01"}, ids)

	// 不足 n 条时返回全部存活记录
	recent, err = rec.Recent(ctx, "Random Forest", 4)
	require.NoError(t, err)
	assert.Len(t, recent, 4)
	recent, err = rec.Recent(ctx, "Random Forest", 20)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", UserIDFromContext(ctx))
	assert.Equal(t, ctx, WithUserID(ctx, ""))
	assert.Equal(t, "u1", UserIDFromContext(WithUserID(ctx, "u1")))
}
