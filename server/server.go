// Package server 通过 HTTP (gin) 暴露打分与模型目录。
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rushteam/fraudkit/catalog"
	"github.com/rushteam/fraudkit/core"
	"github.com/rushteam/fraudkit/pipeline"
	"github.com/rushteam/fraudkit/pkg/metrics"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
	shutdownTimeout    = 5 * time.Second
)

// Server 是打分 HTTP 服务。
type Server struct {
	scorer  *pipeline.Scorer
	catalog *catalog.Catalog
	metrics metrics.Recorder
	loader  *pipeline.CachedLoader
	engine  *gin.Engine
}

// Option 服务选项
type Option func(*Server)

// WithMetrics 上报 HTTP 请求指标。
func WithMetrics(m metrics.Recorder) Option {
	return func(s *Server) { s.metrics = m }
}

// WithArtifactCache 暴露产物缓存的统计与清空接口。
func WithArtifactCache(l *pipeline.CachedLoader) Option {
	return func(s *Server) { s.loader = l }
}

// New 创建服务并注册路由。cat 为 nil 时使用内置目录。
func New(scorer *pipeline.Scorer, cat *catalog.Catalog, opts ...Option) *Server {
	if cat == nil {
		cat = catalog.Default()
	}
	s := &Server{scorer: scorer, catalog: cat}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(AccessLogger(s.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.POST("/predict", s.predict)
	v1.GET("/models", s.models)
	v1.GET("/models/metrics", s.modelMetrics)
	v1.GET("/features", s.features)
	v1.GET("/predictions", s.recentPredictions)
	v1.GET("/predictions/:id", s.getPrediction)
	if s.loader != nil {
		v1.GET("/artifacts/cache", s.cacheStats)
		v1.DELETE("/artifacts/cache", s.purgeCache)
	}

	s.engine = r
	return s
}

// Handler 返回 http.Handler，便于测试或嵌入其他服务。
func (s *Server) Handler() http.Handler { return s.engine }

// Run 监听 addr，ctx 取消后优雅退出。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info().Msg("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// predict 处理 POST /v1/predict。
// 200 成功；400 解析、校验或守卫拒绝；422 推理错误。
func (s *Server) predict(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, core.ScoreError{Error: core.MessageParseFailed})
		return
	}
	req, err := core.ParseScoreRequest(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, core.ScoreError{Error: core.MessageParseFailed})
		return
	}
	if len(req.FeatureOrder) == 0 {
		req.FeatureOrder = s.catalog.FeatureNames()
	}

	ctx := c.Request.Context()
	if uid := c.GetHeader(HeaderUserID); uid != "" {
		ctx = pipeline.WithUserID(ctx, uid)
	}

	resp := s.scorer.Score(ctx, req)
	switch {
	case resp.OK():
		c.JSON(http.StatusOK, resp.Result)
	case core.IsInferenceError(resp.Cause):
		c.JSON(http.StatusUnprocessableEntity, resp.Err)
	default:
		c.JSON(http.StatusBadRequest, resp.Err)
	}
}

func (s *Server) models(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.Models())
}

func (s *Server) modelMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.Metrics())
}

func (s *Server) features(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.FeatureNames())
}

// recentPredictions 处理 GET /v1/predictions?model=&limit=
func (s *Server) recentPredictions(c *gin.Context) {
	rec := s.scorer.Recorder()
	if rec == nil {
		c.JSON(http.StatusNotFound, core.ScoreError{Error: "prediction store is disabled"})
		return
	}
	modelName := c.Query("model")
	if modelName == "" {
		c.JSON(http.StatusBadRequest, core.ScoreError{Error: "query parameter model is required"})
		return
	}
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, core.ScoreError{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRecentLimit)
	}

	records, err := rec.Recent(c.Request.Context(), modelName, limit)
	if err != nil {
		log.Error().Err(err).Str("model", modelName).Msg("list predictions failed")
		c.JSON(http.StatusInternalServerError, core.ScoreError{Error: "failed to list predictions"})
		return
	}
	if records == nil {
		records = []pipeline.PredictionRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// getPrediction 处理 GET /v1/predictions/:id
func (s *Server) getPrediction(c *gin.Context) {
	rec := s.scorer.Recorder()
	if rec == nil {
		c.JSON(http.StatusNotFound, core.ScoreError{Error: "prediction store is disabled"})
		return
	}
	record, err := rec.Get(c.Request.Context(), c.Param("id"))
	switch {
	case core.IsStoreNotFound(err):
		c.JSON(http.StatusNotFound, core.ScoreError{Error: "prediction not found"})
	case err != nil:
		log.Error().Err(err).Str("id", c.Param("id")).Msg("get prediction failed")
		c.JSON(http.StatusInternalServerError, core.ScoreError{Error: "failed to get prediction"})
	default:
		c.JSON(http.StatusOK, record)
	}
}

func (s *Server) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.loader.Stats())
}

// purgeCache 清空产物缓存，下一次请求重新从磁盘加载
func (s *Server) purgeCache(c *gin.Context) {
	s.loader.Purge()
	log.Info().Msg("artifact cache purged")
	c.Status(http.StatusNoContent)
}
