package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/NILHub/internal/collector"
	"github.com/LJTian/NILHub/internal/crawler"
	"github.com/LJTian/NILHub/internal/metrics"
	"github.com/LJTian/NILHub/internal/ranking"
	"github.com/LJTian/NILHub/internal/scheduler"
	"github.com/LJTian/NILHub/internal/storage"
)

// Ranker 是查询接口依赖的排序服务
type Ranker interface {
	Query(ctx context.Context, q ranking.Query) ([]ranking.Ranked, error)
	Latest(ctx context.Context, kind string) (*ranking.Ranked, error)
	Categories(ctx context.Context) ([]storage.CategoryCount, error)
	Count(ctx context.Context) (int64, error)
}

// Trigger 异步启动一次采集
type Trigger interface {
	Trigger() crawler.TriggerResult
}

type HealthReporter interface {
	Health() map[string]scheduler.KindHealth
}

type Server struct {
	ranker   Ranker
	triggers map[collector.Kind]Trigger
	health   HealthReporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewServer(ranker Ranker, triggers map[collector.Kind]Trigger, health HealthReporter, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ranker:   ranker,
		triggers: triggers,
		health:   health,
		metrics:  m,
		logger:   logger.With("component", "api"),
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.Use(s.observe())

	r.GET("/health", s.healthz)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/records", s.listRecords)
		v1.GET("/records/latest", s.latestRecord)
		v1.GET("/categories", s.listCategories)
		v1.POST("/crawl", s.crawl(collector.KindStory))
		v1.POST("/crawl/social", s.crawl(collector.KindSocial))
	}
}

func (s *Server) healthz(c *gin.Context) {
	count, err := s.ranker.Count(c.Request.Context())
	if err != nil {
		s.logger.Error("health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "store unavailable"})
		return
	}
	crawls := map[string]scheduler.KindHealth{}
	if s.health != nil {
		crawls = s.health.Health()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"recordCount": count,
		"crawls":      crawls,
	})
}

func (s *Server) listRecords(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(ranking.DefaultLimit)))
	if err != nil {
		limit = ranking.DefaultLimit
	}

	kind := c.Query("kind")
	if kind != "" && !validKind(kind) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "kind must be story or social",
		})
		return
	}

	items, err := s.ranker.Query(c.Request.Context(), ranking.Query{
		Filter: storage.Filter{
			Category: c.Query("category"),
			Source:   c.Query("source"),
			Kind:     kind,
		},
		Limit: limit,
	})
	if err != nil {
		s.internalError(c, "list records failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) latestRecord(c *gin.Context) {
	kind := c.Query("kind")
	if kind != "" && !validKind(kind) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "kind must be story or social",
		})
		return
	}

	item, err := s.ranker.Latest(c.Request.Context(), kind)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "no records yet",
		})
		return
	}
	if err != nil {
		s.internalError(c, "latest record failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    item,
	})
}

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.ranker.Categories(c.Request.Context())
	if err != nil {
		s.internalError(c, "list categories failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    cats,
	})
}

// crawl 立即返回，不等待 pass 完成
func (s *Server) crawl(kind collector.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := s.triggers[kind]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"status": "unknownKind"})
			return
		}
		res := t.Trigger()
		switch res {
		case crawler.AlreadyRunning:
			c.JSON(http.StatusConflict, gin.H{"status": string(res)})
			return
		case crawler.ShuttingDown:
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": string(res)})
			return
		}
		s.logger.Info("crawl triggered", "kind", kind)
		c.JSON(http.StatusAccepted, gin.H{"status": string(res)})
	}
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, "path", c.Request.URL.Path, "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}

func validKind(k string) bool {
	return k == string(collector.KindStory) || k == string(collector.KindSocial)
}
