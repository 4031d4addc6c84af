package evalserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(Config{
		DBPath:         filepath.Join(dir, "models.db"),
		TableCacheDir:  filepath.Join(dir, "tablecache"),
		DefaultTerms:   100,
		EvalCacheTTL:   time.Minute,
		StreamInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Close()
	})
	return s, ts
}

func createModel(t *testing.T, ts *httptest.Server, name string, mean, stdev float64) string {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"name": name, "mean": mean, "stdev": stdev})
	resp, err := http.Post(ts.URL+"/api/models", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		ID    string  `json:"id"`
		Terms int     `json:"terms"`
		Mean  float64 `json:"mean"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.ID)
	require.Equal(t, 100, out.Terms) // 默认 terms
	return out.ID
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateModelValidation(t *testing.T) {
	_, ts := newTestServer(t)

	cases := []map[string]any{
		{"name": "bad", "mean": 0, "stdev": 0},
		{"name": "bad", "mean": 0, "stdev": -1},
		{"name": "", "mean": 0, "stdev": 1},
		{"name": "bad-terms", "mean": 0, "stdev": 1, "terms": -5},
	}
	for _, payload := range cases {
		body, _ := json.Marshal(payload)
		resp, err := http.Post(ts.URL+"/api/models", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "payload=%v", payload)
	}
}

func TestModelLifecycle(t *testing.T) {
	_, ts := newTestServer(t)
	id := createModel(t, ts, "std", 0, 1)

	var got struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	resp := getJSON(t, ts.URL+"/api/models/"+id, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "std", got.Name)

	var list []map[string]any
	resp = getJSON(t, ts.URL+"/api/models", &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/models/"+id, nil)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	resp = getJSON(t, ts.URL+"/api/models/"+id, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDensityEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	id := createModel(t, ts, "std", 0, 1)

	var out struct {
		Density float64 `json:"density"`
	}
	resp := getJSON(t, fmt.Sprintf("%s/api/models/%s/density?x=0", ts.URL, id), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.InDelta(t, 0.3989423, out.Density, 1e-6)
}

func TestCumulativeEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	id := createModel(t, ts, "std", 0, 1)

	var out struct {
		Cumulative float64 `json:"cumulative"`
		Terms      int     `json:"terms"`
	}
	resp := getJSON(t, fmt.Sprintf("%s/api/models/%s/cumulative?x=1", ts.URL, id), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 100, out.Terms)
	require.InDelta(t, 0.8413447, out.Cumulative, 1e-6)

	// terms 覆盖
	resp = getJSON(t, fmt.Sprintf("%s/api/models/%s/cumulative?x=1&terms=2", ts.URL, id), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, out.Terms)

	// 非法 terms
	resp = getJSON(t, fmt.Sprintf("%s/api/models/%s/cumulative?x=1&terms=-1", ts.URL, id), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntervalEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	id := createModel(t, ts, "shifted", 5, 2)

	var out struct {
		Probability float64 `json:"probability"`
	}
	resp := getJSON(t, fmt.Sprintf("%s/api/models/%s/interval?min=3&max=7", ts.URL, id), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.InDelta(t, 0.6827, out.Probability, 1e-3)

	// 缺省 min/max 即无界区间，总概率 1
	resp = getJSON(t, fmt.Sprintf("%s/api/models/%s/interval", ts.URL, id), &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.InDelta(t, 1.0, out.Probability, 1e-9)
}

func TestTableEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	id := createModel(t, ts, "std", 0, 1)

	url := fmt.Sprintf("%s/api/models/%s/table?from=-1&to=1&step=0.5&places=4", ts.URL, id)
	var out struct {
		Xs []float64 `json:"xs"`
		Ps []float64 `json:"ps"`
	}
	resp := getJSON(t, url, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out.Xs, 5)
	require.Len(t, out.Ps, 5)
	require.InDelta(t, 0.5, out.Ps[2], 1e-9)       // x=0
	require.InDelta(t, 0.8413, out.Ps[4], 5e-5)    // x=1，已舍入到 4 位
	require.InDelta(t, 0.1587, out.Ps[0], 5e-5)    // x=-1

	// 第二次请求走持久化缓存，结果必须一致
	var again struct {
		Xs []float64 `json:"xs"`
		Ps []float64 `json:"ps"`
	}
	resp = getJSON(t, url, &again)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, out.Ps, again.Ps)

	// 非法网格
	resp = getJSON(t, fmt.Sprintf("%s/api/models/%s/table?from=1&to=-1&step=0.5", ts.URL, id), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = getJSON(t, fmt.Sprintf("%s/api/models/%s/table?from=-1&to=1&step=0", ts.URL, id), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	id := createModel(t, ts, "wide", 50, 10)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/models/" + id + "/stream?interval_ms=10"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var prevSeq int64
	for i := 0; i < 3; i++ {
		var sample struct {
			Seq int64   `json:"seq"`
			X   float64 `json:"x"`
		}
		require.NoError(t, conn.ReadJSON(&sample))
		require.Greater(t, sample.Seq, prevSeq)
		require.False(t, math.IsNaN(sample.X))
		prevSeq = sample.Seq
	}
}
