package evalserver

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/statbot/gostat/internal/metrics"
	"github.com/statbot/gostat/internal/modelstore"
	"github.com/statbot/gostat/pkg/gaussian"
)

// jsonNumber 把 ±Inf/NaN 转成字符串，避免 encoding/json 拒绝非有限值
func jsonNumber(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return v
}

// modelFor 从记录还原 gaussian.Model（记录在入库时已校验过，这里失败属于数据损坏）
func modelFor(rec *modelstore.ModelRecord) (*gaussian.Model, error) {
	return gaussian.New(rec.Mean, rec.Stdev)
}

// floatQuery 解析 float 查询参数；支持 inf/-inf（strconv.ParseFloat 原生接受）
func floatQuery(c *gin.Context, name string) (float64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s is required", name)})
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %q", name, raw)})
		return 0, false
	}
	return v, true
}

// termsQuery 解析可选的 terms 查询参数，缺省用模型记录里的值
func termsQuery(c *gin.Context, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query("terms"))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid terms: %q", raw)})
		return 0, false
	}
	return n, true
}

func (s *Server) handleDensity(c *gin.Context) {
	rec, ok := s.loadModel(c)
	if !ok {
		return
	}
	x, ok := floatQuery(c, "x")
	if !ok {
		return
	}
	m, err := modelFor(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	metrics.EvalRequests.Add(1)
	key := fmt.Sprintf("%s:density:%v", rec.ID, x)
	v, hit := s.evalCache.Get(key)
	if hit {
		metrics.EvalCacheHits.Add(1)
	} else {
		v = m.Density(x)
		s.evalCache.Set(key, v)
	}
	c.JSON(http.StatusOK, gin.H{"model_id": rec.ID, "x": jsonNumber(x), "density": jsonNumber(v)})
}

func (s *Server) handleCumulative(c *gin.Context) {
	rec, ok := s.loadModel(c)
	if !ok {
		return
	}
	x, ok := floatQuery(c, "x")
	if !ok {
		return
	}
	terms, ok := termsQuery(c, rec.Terms)
	if !ok {
		return
	}
	m, err := modelFor(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	metrics.EvalRequests.Add(1)
	key := fmt.Sprintf("%s:cdf:%v:%d", rec.ID, x, terms)
	v, hit := s.evalCache.Get(key)
	if hit {
		metrics.EvalCacheHits.Add(1)
	} else {
		v, err = m.CumulativeN(x, terms)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.evalCache.Set(key, v)
	}
	c.JSON(http.StatusOK, gin.H{"model_id": rec.ID, "x": jsonNumber(x), "terms": terms, "cumulative": jsonNumber(v)})
}

func (s *Server) handleInterval(c *gin.Context) {
	rec, ok := s.loadModel(c)
	if !ok {
		return
	}
	// min/max 缺省即无界区间
	min, max := "-inf", "+inf"
	if raw := strings.TrimSpace(c.Query("min")); raw != "" {
		min = raw
	}
	if raw := strings.TrimSpace(c.Query("max")); raw != "" {
		max = raw
	}
	lo, err := strconv.ParseFloat(min, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid min: %q", min)})
		return
	}
	hi, err := strconv.ParseFloat(max, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid max: %q", max)})
		return
	}
	terms, ok := termsQuery(c, rec.Terms)
	if !ok {
		return
	}
	m, err := modelFor(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	metrics.EvalRequests.Add(1)
	upper, err := m.CumulativeN(hi, terms)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lower, err := m.CumulativeN(lo, terms)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"model_id":    rec.ID,
		"min":         jsonNumber(lo),
		"max":         jsonNumber(hi),
		"terms":       terms,
		"probability": jsonNumber(upper - lower),
	})
}
