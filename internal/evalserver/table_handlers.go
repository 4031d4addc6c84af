package evalserver

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/statbot/gostat/internal/metrics"
	"github.com/statbot/gostat/internal/tablecache"
	"github.com/statbot/gostat/pkg/logger"
)

// maxTablePoints 单次表请求的点数上限
const maxTablePoints = 10001

// cdfTable 持久化缓存里的原始（未舍入）表
type cdfTable struct {
	Xs []float64 `json:"xs"`
	Ps []float64 `json:"ps"`
}

// handleTable 生成 [from, to] 上步长 step 的 CDF 表。
// 原始表按 (model, terms, from, to, step) 落盘缓存；places 只影响响应时的舍入。
func (s *Server) handleTable(c *gin.Context) {
	rec, ok := s.loadModel(c)
	if !ok {
		return
	}
	from, ok := floatQuery(c, "from")
	if !ok {
		return
	}
	to, ok := floatQuery(c, "to")
	if !ok {
		return
	}
	step, ok := floatQuery(c, "step")
	if !ok {
		return
	}
	if !isFinite(from) || !isFinite(to) || !isFinite(step) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from/to/step must be finite"})
		return
	}
	if step <= 0 || to < from {
		c.JSON(http.StatusBadRequest, gin.H{"error": "need step > 0 and to >= from"})
		return
	}
	if n := (to-from)/step + 1; n > maxTablePoints {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("too many points (max %d)", maxTablePoints)})
		return
	}
	terms, ok := termsQuery(c, rec.Terms)
	if !ok {
		return
	}

	places := int32(4)
	if raw := strings.TrimSpace(c.Query("places")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 15 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid places: %q", raw)})
			return
		}
		places = int32(n)
	}

	metrics.TableRequests.Add(1)

	var table *cdfTable
	cacheKey := tablecache.Key(rec.ID, terms, from, to, step)
	if s.tables != nil {
		if raw, hit, err := s.tables.Get(cacheKey); err != nil {
			logger.Warnf("表缓存读取失败: %v", err)
		} else if hit {
			var t cdfTable
			if err := json.Unmarshal(raw, &t); err == nil {
				metrics.TableCacheHits.Add(1)
				table = &t
			}
		}
	}

	if table == nil {
		m, err := modelFor(rec)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		t := &cdfTable{}
		for x := from; x <= to+step/2; x += step {
			p, err := m.CumulativeN(x, terms)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			t.Xs = append(t.Xs, x)
			t.Ps = append(t.Ps, p)
		}
		table = t
		if s.tables != nil {
			if raw, err := json.Marshal(t); err == nil {
				if err := s.tables.Set(cacheKey, raw); err != nil {
					logger.Warnf("表缓存写入失败: %v", err)
				}
			}
		}
	}

	// 响应时才舍入，缓存里永远是原始值
	rounded := make([]any, len(table.Ps))
	for i, p := range table.Ps {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			rounded[i] = jsonNumber(p)
			continue
		}
		rounded[i], _ = decimal.NewFromFloat(p).Round(places).Float64()
	}

	c.JSON(http.StatusOK, gin.H{
		"model_id": rec.ID,
		"terms":    terms,
		"places":   places,
		"xs":       table.Xs,
		"ps":       rounded,
	})
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
