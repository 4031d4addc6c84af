package evalserver

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/statbot/gostat/internal/metrics"
	"github.com/statbot/gostat/pkg/logger"
)

// streamSample 推送给客户端的单个抽样
type streamSample struct {
	Seq int64   `json:"seq"`
	X   float64 `json:"x"`
	TS  int64   `json:"ts"` // Unix 毫秒
}

// handleStream 升级为 websocket，按固定间隔推送模型的随机抽样。
// 客户端断开或写失败即结束。
func (s *Server) handleStream(c *gin.Context) {
	rec, ok := s.loadModel(c)
	if !ok {
		return
	}
	m, err := modelFor(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	interval := s.cfg.StreamInterval
	if raw := strings.TrimSpace(c.Query("interval_ms")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 10 || n > 60000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "interval_ms must be in [10, 60000]"})
			return
		}
		interval = time.Duration(n) * time.Millisecond
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时 gorilla 已经写了响应
		logger.Warnf("websocket 升级失败: %v", err)
		return
	}
	defer conn.Close()

	metrics.StreamClients.Add(1)
	defer metrics.StreamClients.Add(-1)
	logger.WithField("model_id", rec.ID).Debugf("抽样流已连接 interval=%v", interval)

	// 读 goroutine 只用于感知客户端关闭
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq int64
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			seq++
			sample := streamSample{
				Seq: seq,
				X:   m.Draw(rng),
				TS:  time.Now().UnixMilli(),
			}
			if err := conn.WriteJSON(sample); err != nil {
				return
			}
			metrics.StreamSamples.Add(1)
		}
	}
}
