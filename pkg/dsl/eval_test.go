package dsl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_Check(t *testing.T) {
	g, err := NewGuard([]string{
		`"Amount" in features && features.Amount >= 0.0`,
		`model_name != "Deprecated Model"`,
		"  ",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())

	tests := []struct {
		name      string
		features  map[string]any
		modelName string
		wantRule  string
	}{
		{
			name:      "passes",
			features:  map[string]any{"Amount": json.Number("12.5"), "Time": 1},
			modelName: "Random Forest",
		},
		{
			name:      "negative amount",
			features:  map[string]any{"Amount": -3.0},
			modelName: "Random Forest",
			wantRule:  `"Amount" in features && features.Amount >= 0.0`,
		},
		{
			name:      "missing amount",
			features:  map[string]any{"Time": 1.0},
			modelName: "Random Forest",
			wantRule:  `"Amount" in features && features.Amount >= 0.0`,
		},
		{
			name:      "blocked model",
			features:  map[string]any{"Amount": 1},
			modelName: "Deprecated Model",
			wantRule:  `model_name != "Deprecated Model"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := g.Check(tt.features, tt.modelName)
			require.NoError(t, err)
			if tt.wantRule == "" {
				assert.Nil(t, rule)
				return
			}
			require.NotNil(t, rule)
			assert.Equal(t, tt.wantRule, rule.Expr)
		})
	}
}

func TestGuard_EvalError(t *testing.T) {
	g, err := NewGuard([]string{`features.Amount > 10.0`})
	require.NoError(t, err)

	rule, err := g.Check(map[string]any{"Time": 1.0}, "m")
	assert.Error(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, `features.Amount > 10.0`, rule.Expr)
}

func TestGuard_NonBoolResult(t *testing.T) {
	g, err := NewGuard([]string{`features.Amount`})
	require.NoError(t, err)

	_, err = g.Check(map[string]any{"Amount": 2.0}, "m")
	assert.ErrorContains(t, err, "must return bool")
}

func TestNewGuard_CompileError(t *testing.T) {
	_, err := NewGuard([]string{`features.Amount >`})
	assert.Error(t, err)

	_, err = NewGuard([]string{`unknown_var == 1`})
	assert.Error(t, err)
}

func TestGuard_Empty(t *testing.T) {
	var g *Guard
	rule, err := g.Check(map[string]any{}, "m")
	assert.NoError(t, err)
	assert.Nil(t, rule)

	g, err = NewGuard(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
}

func TestBuildFeatures(t *testing.T) {
	got := buildFeatures(map[string]any{
		"n":   json.Number("3"),
		"i":   int64(4),
		"s":   "5",
		"b":   true,
		"nil": nil,
	})
	assert.Equal(t, 3.0, got["n"])
	assert.Equal(t, 4.0, got["i"])
	assert.Equal(t, "5", got["s"])
	assert.Equal(t, true, got["b"])
	assert.Nil(t, got["nil"])
}
