package model

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/fraudkit/core"
)

func TestDecideFromProba(t *testing.T) {
	tests := []struct {
		name           string
		p              float64
		wantClass      int
		wantConfidence int
	}{
		{name: "high fraud", p: 0.91, wantClass: 1, wantConfidence: 91},
		{name: "threshold is fraud", p: 0.5, wantClass: 1, wantConfidence: 50},
		{name: "just below threshold", p: 0.49, wantClass: 0, wantConfidence: 51},
		{name: "certain legit", p: 0, wantClass: 0, wantConfidence: 100},
		{name: "certain fraud", p: 1, wantClass: 1, wantConfidence: 100},
		{name: "half rounds to even up", p: 0.875, wantClass: 1, wantConfidence: 88},
		{name: "half rounds to even down", p: 0.625, wantClass: 1, wantConfidence: 62},
		{name: "legit half rounds to even", p: 0.375, wantClass: 0, wantConfidence: 62},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DecideFromProba(tt.p)
			assert.Equal(t, tt.wantClass, d.Class)
			assert.Equal(t, tt.wantConfidence, d.Confidence)
			assert.Equal(t, tt.p, d.Proba)
		})
	}
}

func TestDecideFromProba_ConfidenceRange(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		p := float64(i) / 1000
		d := DecideFromProba(p)
		assert.GreaterOrEqual(t, d.Confidence, 50, "p=%v", p)
		assert.LessOrEqual(t, d.Confidence, 100, "p=%v", p)
		assert.Equal(t, p >= 0.5, d.Class == 1, "p=%v", p)
	}
}

type stubProba struct {
	n int
	p float64
}

func (s *stubProba) Name() string     { return "stub" }
func (s *stubProba) NumFeatures() int { return s.n }
func (s *stubProba) PredictProba(context.Context, []float64) (float64, error) {
	return s.p, nil
}

type stubLabel struct {
	n     int
	label int
}

func (s *stubLabel) Name() string     { return "stub-label" }
func (s *stubLabel) NumFeatures() int { return s.n }
func (s *stubLabel) PredictLabel(context.Context, []float64) (int, error) {
	return s.label, nil
}

type stubNeither struct{}

func (stubNeither) Name() string     { return "neither" }
func (stubNeither) NumFeatures() int { return 1 }

func TestNewDecider_DispatchesOnCapability(t *testing.T) {
	ctx := context.Background()

	d, err := NewDecider(&stubProba{n: 2, p: 0.2})
	require.NoError(t, err)
	got, err := d.Decide(ctx, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, Decision{Class: 0, Confidence: 80, Proba: 0.2}, got)

	d, err = NewDecider(&stubLabel{n: 2, label: 1})
	require.NoError(t, err)
	got, err = d.Decide(ctx, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Class)
	assert.Equal(t, 100, got.Confidence)
	assert.True(t, math.IsNaN(got.Proba))

	_, err = NewDecider(stubNeither{})
	assert.Error(t, err)

	_, err = NewDecider(nil)
	assert.Error(t, err)
}

func TestDecider_DimensionMismatch(t *testing.T) {
	d, err := NewDecider(&stubProba{n: 3, p: 0.9})
	require.NoError(t, err)

	_, err = d.Decide(context.Background(), []float64{1, 2})
	require.Error(t, err)
	assert.True(t, core.IsModelInvocation(err))
	assert.Contains(t, err.Error(), "X has 2 features, but stub is expecting 3 features as input")
}

func TestDecider_RejectsInvalidOutputs(t *testing.T) {
	ctx := context.Background()

	for _, p := range []float64{math.NaN(), -0.1, 1.5} {
		d, err := NewDecider(&stubProba{n: 1, p: p})
		require.NoError(t, err)
		_, err = d.Decide(ctx, []float64{0})
		assert.True(t, core.IsModelInvocation(err), "p=%v", p)
	}

	d, err := NewDecider(&stubLabel{n: 1, label: 2})
	require.NoError(t, err)
	_, err = d.Decide(ctx, []float64{0})
	assert.True(t, core.IsModelInvocation(err))
}
