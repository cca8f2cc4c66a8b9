package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/fraudkit/feature"
	"github.com/rushteam/fraudkit/store"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.True(t, cfg.Cache)
	assert.Equal(t, store.TypeNone, cfg.Store.Type)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "fraudscore", cfg.Metrics.Service)
	assert.Equal(t, 200, cfg.Feast.TimeoutMS)
	assert.Empty(t, cfg.Feast.Endpoint)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	v := newViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
artifact_dir: /srv/models
cache: false
guards:
  - 'features.Amount >= 0.0'
feast:
  endpoint: localhost:6566
  defaults:
    - name: V14
      value: -0.5
store:
  type: memory
  ttl_seconds: 60
log:
  level: debug
  format: json
`)))
	t.Setenv("FRAUDKIT_SERVER_ADDR", ":9090")
	t.Setenv("FRAUDKIT_STORE_TTL_SECONDS", "120")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/srv/models", cfg.ArtifactDir)
	assert.False(t, cfg.Cache)
	assert.Equal(t, []string{"features.Amount >= 0.0"}, cfg.Guards)
	assert.Equal(t, store.TypeMemory, cfg.Store.Type)
	assert.Equal(t, 120, cfg.Store.TTLSeconds)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, map[string]float64{"V14": -0.5}, cfg.Feast.DefaultValues())
}

func TestValidate(t *testing.T) {
	base, err := Load(newViper())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store.Type = "etcd" }},
		{"redis without addr", func(c *Config) { c.Store.Type = store.TypeRedis; c.Store.Addr = "" }},
		{"negative ttl", func(c *Config) { c.Store.TTLSeconds = -1 }},
		{"feast without project", func(c *Config) { c.Feast.Endpoint = "localhost:6566"; c.Feast.Project = "" }},
		{"blank default name", func(c *Config) { c.Feast.Defaults = []FeatureDefault{{Value: 1}} }},
		{"sampling rate", func(c *Config) { c.Metrics.SamplingRate = 1.5 }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"server mode", func(c *Config) { c.Server.Mode = "prod" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}

func TestBuild(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.ArtifactDir = dir
	cfg.Store.Type = store.TypeMemory
	cfg.Guards = []string{"features.Amount >= 0.0"}

	rt, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close()) }()

	assert.Equal(t, dir, rt.Resolver.BaseDir())
	assert.NotNil(t, rt.Scorer.Recorder())
	assert.NotNil(t, rt.Loader)
	assert.NotNil(t, rt.Metrics)
	assert.Contains(t, rt.Scorer.Stages(), "guard")
	assert.Contains(t, rt.Scorer.Stages(), "record")
	assert.NotContains(t, rt.Scorer.Stages(), "enrich")
}

func TestBuild_GuardError(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)
	cfg.ArtifactDir = t.TempDir()
	cfg.Store.Type = store.TypeMemory
	cfg.Guards = []string{"features.Amount >"}

	rt, err := Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "compile guards")
	assert.Nil(t, rt)
}

func TestBuild_IgnoresCatalogFiles(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)
	cfg.ArtifactDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ArtifactDir, "catalog.yaml"), []byte("models: [\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ArtifactDir, "model_metrics.json"), []byte("{"), 0o644))

	rt, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, rt.Close())
}

func TestBuild_OptionalDependenciesDegrade(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)
	cfg.ArtifactDir = t.TempDir()
	cfg.Store.Type = store.TypeRedis
	cfg.Store.Addr = "127.0.0.1:1"
	cfg.Feast.Endpoint = "localhost:not-a-port"

	rt, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close()) }()

	assert.Nil(t, rt.Scorer.Recorder())
	assert.NotContains(t, rt.Scorer.Stages(), "record")
	for _, name := range rt.Scorer.Stages() {
		assert.NotContains(t, name, "enrich")
	}
}

func TestRuntime_CloseNil(t *testing.T) {
	var rt *Runtime
	assert.NoError(t, rt.Close())
}

type stubSource struct{}

func (stubSource) Name() string { return "stub" }

func (stubSource) Fetch(context.Context, map[string]any, []string) (map[string]float64, error) {
	return map[string]float64{"V1": 1}, nil
}

func TestBuildSource(t *testing.T) {
	src := buildSource(stubSource{}, FeastConfig{})
	assert.IsType(t, stubSource{}, src)

	src = buildSource(stubSource{}, FeastConfig{CacheTTLMS: 100, CacheSize: 10})
	assert.IsType(t, &feature.CachedSource{}, src)

	src = buildSource(stubSource{}, FeastConfig{CacheTTLMS: 100, Defaults: []FeatureDefault{{Name: "V2", Value: 0}}})
	require.IsType(t, &feature.FallbackSource{}, src)
	assert.IsType(t, &feature.CachedSource{}, src.(*feature.FallbackSource).Primary)

	got, err := src.Fetch(context.Background(), map[string]any{"tx": "a"}, []string{"V1", "V2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"V1": 1, "V2": 0}, got)
}
