package evalserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/statbot/gostat/internal/modelstore"
	"github.com/statbot/gostat/internal/tablecache"
	"github.com/statbot/gostat/pkg/cache"
	"github.com/statbot/gostat/pkg/gaussian"
)

// Config 求值服务配置
type Config struct {
	DBPath         string
	TableCacheDir  string // 为空则禁用持久化表缓存
	DefaultTerms   int
	EvalCacheTTL   time.Duration
	StreamInterval time.Duration
}

// Server 正态分布求值服务
type Server struct {
	cfg       Config
	store     *modelstore.Store
	tables    *tablecache.Cache
	evalCache *cache.EvalCache
	upgrader  websocket.Upgrader
}

// New 创建求值服务
func New(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	if cfg.DefaultTerms <= 0 {
		cfg.DefaultTerms = gaussian.DefaultTerms
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = 200 * time.Millisecond
	}

	store, err := modelstore.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	var tables *tablecache.Cache
	if cfg.TableCacheDir != "" {
		tables, err = tablecache.Open(cfg.TableCacheDir)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return &Server{
		cfg:       cfg,
		store:     store,
		tables:    tables,
		evalCache: cache.NewEvalCache(cfg.EvalCacheTTL),
		upgrader: websocket.Upgrader{
			// 抽样流只读且不带凭证，放开跨域
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}, nil
}

// Close 关闭存储
func (s *Server) Close() error {
	var first error
	if s.tables != nil {
		if err := s.tables.Close(); err != nil {
			first = err
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Router 构建 gin 路由
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(200) })

	api := r.Group("/api")

	models := api.Group("/models")
	models.GET("", s.handleModelsList)
	models.POST("", s.handleModelsCreate)

	modelID := models.Group("/:modelID")
	modelID.GET("", s.handleModelGet)
	modelID.DELETE("", s.handleModelDelete)
	modelID.GET("/density", s.handleDensity)
	modelID.GET("/cumulative", s.handleCumulative)
	modelID.GET("/interval", s.handleInterval)
	modelID.GET("/table", s.handleTable)
	modelID.GET("/stream", s.handleStream)

	return r
}
