package evalserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/statbot/gostat/internal/metrics"
	"github.com/statbot/gostat/internal/modelstore"
	"github.com/statbot/gostat/pkg/gaussian"
	"github.com/statbot/gostat/pkg/logger"
)

type createModelRequest struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
	Terms int     `json:"terms"`
}

func (s *Server) handleModelsCreate(c *gin.Context) {
	var req createModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	// 构造即校验：stdev <= 0 在这里被拒绝
	if _, err := gaussian.New(req.Mean, req.Stdev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Terms < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("terms must be >= 0, got %d", req.Terms)})
		return
	}
	if req.Terms == 0 {
		req.Terms = s.cfg.DefaultTerms
	}

	now := time.Now()
	m := modelstore.ModelRecord{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Mean:      req.Mean,
		Stdev:     req.Stdev,
		Terms:     req.Terms,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := s.store.Insert(ctx, m); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("db insert: %v", err)})
		return
	}

	metrics.ModelCreates.Add(1)
	logger.WithField("model_id", m.ID).Infof("模型已创建: %s N(%v, %v²) terms=%d", m.Name, m.Mean, m.Stdev, m.Terms)
	c.JSON(http.StatusCreated, m)
}

func (s *Server) handleModelsList(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	list, err := s.store.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("db list: %v", err)})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleModelGet(c *gin.Context) {
	m, ok := s.loadModel(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) handleModelDelete(c *gin.Context) {
	id := c.Param("modelID")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("db delete: %v", err)})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "model not found"})
		return
	}
	// 顺带清掉该模型的持久化表缓存
	if s.tables != nil {
		if err := s.tables.InvalidateModel(id); err != nil {
			logger.Warnf("清理表缓存失败 model_id=%s: %v", id, err)
		}
	}
	metrics.ModelDeletes.Add(1)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// loadModel 读取路径里的模型记录；失败时自己写响应并返回 ok=false
func (s *Server) loadModel(c *gin.Context) (*modelstore.ModelRecord, bool) {
	id := c.Param("modelID")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	m, err := s.store.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("db get: %v", err)})
		return nil, false
	}
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "model not found"})
		return nil, false
	}
	return m, true
}
