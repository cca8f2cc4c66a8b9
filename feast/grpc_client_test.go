package feast

import (
	"context"
	"errors"
	"testing"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	"github.com/feast-dev/feast/sdk/go/protos/feast/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServing struct {
	got  *feastsdk.OnlineFeaturesRequest
	rows []feastsdk.Row
	err  error
}

func (f *fakeServing) GetOnlineFeatures(_ context.Context, req *feastsdk.OnlineFeaturesRequest) (*feastsdk.OnlineFeaturesResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &feastsdk.OnlineFeaturesResponse{}, nil
}

func newFakeClient(f *fakeServing) *GrpcClient {
	return &GrpcClient{
		client:  f,
		rows:    func(*feastsdk.OnlineFeaturesResponse) []feastsdk.Row { return f.rows },
		Project: "fraud",
	}
}

func TestGrpcClient_GetOnlineFeatures(t *testing.T) {
	fake := &fakeServing{rows: []feastsdk.Row{{
		"tx:V1":     feastsdk.DoubleVal(-1.5),
		"tx:V2":     feastsdk.Int64Val(3),
		"tx:flag":   feastsdk.BoolVal(true),
		"tx:absent": &types.Value{},
	}}}
	c := newFakeClient(fake)

	resp, err := c.GetOnlineFeatures(context.Background(), &GetOnlineFeaturesRequest{
		Features:   []string{"tx:V1", "tx:V2", "tx:flag", "tx:absent", "tx:unknown"},
		EntityRows: []map[string]any{{"transaction_id": "tx_1"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.FeatureVectors, 1)
	assert.Equal(t, map[string]any{"tx:V1": -1.5, "tx:V2": 3.0, "tx:flag": 1.0}, resp.FeatureVectors[0].Values)

	assert.Equal(t, "fraud", fake.got.Project)
	assert.Equal(t, "tx_1", fake.got.Entities[0]["transaction_id"].GetStringVal())
}

func TestGrpcClient_GetOnlineFeaturesErrors(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(&fakeServing{})

	_, err := c.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{EntityRows: []map[string]any{{"id": 1}}})
	assert.ErrorContains(t, err, "features are required")

	_, err = c.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{Features: []string{"tx:V1"}})
	assert.ErrorContains(t, err, "entity rows are required")

	_, err = c.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features: []string{"tx:V1"}, EntityRows: []map[string]any{{"id": 1}},
	})
	assert.ErrorContains(t, err, "row count mismatch")

	c = newFakeClient(&fakeServing{err: errors.New("unavailable")})
	_, err = c.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features: []string{"tx:V1"}, EntityRows: []map[string]any{{"id": 1}},
	})
	assert.ErrorContains(t, err, "unavailable")
}

func TestToSDKValue(t *testing.T) {
	assert.Equal(t, "a", toSDKValue("a").GetStringVal())
	assert.Equal(t, int64(7), toSDKValue(7).GetInt64Val())
	assert.Equal(t, int64(7), toSDKValue(int32(7)).GetInt64Val())
	assert.Equal(t, 2.5, toSDKValue(2.5).GetDoubleVal())
	assert.True(t, toSDKValue(true).GetBoolVal())
	assert.Equal(t, "[1 2]", toSDKValue([]int{1, 2}).GetStringVal())
}

func TestFromSDKValue(t *testing.T) {
	tests := []struct {
		name   string
		in     *types.Value
		want   any
		wantOK bool
	}{
		{"double", feastsdk.DoubleVal(1.25), 1.25, true},
		{"float", feastsdk.FloatVal(0.5), 0.5, true},
		{"int64", feastsdk.Int64Val(-4), -4.0, true},
		{"bool false", feastsdk.BoolVal(false), 0.0, true},
		{"string", feastsdk.StrVal("x"), "x", true},
		{"empty", &types.Value{}, nil, false},
		{"nil", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fromSDKValue(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	host, port, err := parseEndpoint("grpc://feast.internal:6570")
	require.NoError(t, err)
	assert.Equal(t, "feast.internal", host)
	assert.Equal(t, 6570, port)

	host, port, err = parseEndpoint("localhost")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 0, port)

	_, _, err = parseEndpoint("")
	assert.Error(t, err)

	_, _, err = parseEndpoint("host:abc")
	assert.Error(t, err)
}
