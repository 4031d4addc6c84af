package client

import (
	"context"
	"math"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/statbot/gostat/internal/evalserver"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	s, err := evalserver.New(evalserver.Config{
		DBPath:        filepath.Join(dir, "models.db"),
		TableCacheDir: filepath.Join(dir, "tablecache"),
		DefaultTerms:  100,
		EvalCacheTTL:  time.Minute,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Close()
	})
	return New(ts.URL)
}

func TestClientModelRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	m, err := c.CreateModel(ctx, "std", 0, 1, 0)
	require.NoError(t, err)
	require.Equal(t, "std", m.Name)
	require.Equal(t, 100, m.Terms)

	got, err := c.GetModel(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m.ID, got.ID)

	list, err := c.ListModels(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.DeleteModel(ctx, m.ID))
	_, err = c.GetModel(ctx, m.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "model not found")
}

func TestClientCreateModelRejected(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CreateModel(context.Background(), "bad", 0, -1, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid parameter")
}

func TestClientEvaluations(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	m, err := c.CreateModel(ctx, "shifted", 5, 2, 0)
	require.NoError(t, err)

	d, err := c.Density(ctx, m.ID, 5)
	require.NoError(t, err)
	require.InDelta(t, 1/(2*math.Sqrt(2*math.Pi)), d, 1e-9)

	p, err := c.Cumulative(ctx, m.ID, 5, 0)
	require.NoError(t, err)
	require.InDelta(t, 0.5, p, 1e-9)

	prob, err := c.Interval(ctx, m.ID, 3, 7)
	require.NoError(t, err)
	require.InDelta(t, 0.6827, prob, 1e-3)

	total, err := c.Interval(ctx, m.ID, math.Inf(-1), math.Inf(1))
	require.NoError(t, err)
	require.InDelta(t, 1.0, total, 1e-9)
}

func TestClientFetchTable(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	m, err := c.CreateModel(ctx, "std", 0, 1, 0)
	require.NoError(t, err)

	table, err := c.FetchTable(ctx, m.ID, -2, 2, 1, 4)
	require.NoError(t, err)
	require.Len(t, table.Xs, 5)
	require.Len(t, table.Ps, 5)
	require.InDelta(t, 0.5, table.Ps[2], 1e-9)
}

func TestStreamURL(t *testing.T) {
	c := New("http://127.0.0.1:8080")
	u := c.StreamURL("abc", 50)
	require.Equal(t, "ws://127.0.0.1:8080/api/models/abc/stream?interval_ms=50", u)
}
