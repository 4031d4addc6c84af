package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Client gostat 求值服务的 HTTP SDK
type Client struct {
	rc *resty.Client
}

// New 创建客户端。host 形如 http://127.0.0.1:8080
func New(host string) *Client {
	host = strings.TrimSuffix(host, "/")

	// resty 会自动从环境变量读取代理配置（HTTP_PROXY / HTTPS_PROXY）
	rc := resty.New().
		SetBaseURL(host).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Client{rc: rc}
}

// Model 服务端的模型记录
type Model struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mean      float64   `json:"mean"`
	Stdev     float64   `json:"stdev"`
	Terms     int       `json:"terms"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type apiError struct {
	Error string `json:"error"`
}

// checkResp 统一处理非 2xx 响应
func checkResp(resp *resty.Response, err error) error {
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	if resp.IsSuccess() {
		return nil
	}
	var e apiError
	if jsonErr := tryUnmarshalError(resp.Body(), &e); jsonErr == nil && e.Error != "" {
		return errors.Errorf("http %d: %s", resp.StatusCode(), e.Error)
	}
	return errors.Errorf("http %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
}

// CreateModel 创建命名模型。terms 传 0 使用服务端默认值。
func (c *Client) CreateModel(ctx context.Context, name string, mean, stdev float64, terms int) (*Model, error) {
	var out Model
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(map[string]any{"name": name, "mean": mean, "stdev": stdev, "terms": terms}).
		SetResult(&out).
		Post("/api/models")
	if err := checkResp(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListModels 列出所有模型
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var out []Model
	resp, err := c.rc.R().SetContext(ctx).SetResult(&out).Get("/api/models")
	if err := checkResp(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// GetModel 按 id 查询模型
func (c *Client) GetModel(ctx context.Context, id string) (*Model, error) {
	var out Model
	resp, err := c.rc.R().SetContext(ctx).SetResult(&out).Get("/api/models/" + id)
	if err := checkResp(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteModel 删除模型
func (c *Client) DeleteModel(ctx context.Context, id string) error {
	resp, err := c.rc.R().SetContext(ctx).Delete("/api/models/" + id)
	return checkResp(resp, err)
}

type densityResponse struct {
	Density float64 `json:"density"`
}

// Density 求 PDF
func (c *Client) Density(ctx context.Context, id string, x float64) (float64, error) {
	var out densityResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("x", formatFloat(x)).
		SetResult(&out).
		Get("/api/models/" + id + "/density")
	if err := checkResp(resp, err); err != nil {
		return 0, err
	}
	return out.Density, nil
}

type cumulativeResponse struct {
	Cumulative float64 `json:"cumulative"`
}

// Cumulative 求近似 CDF。terms 传 0 使用模型自身的截断项数。
func (c *Client) Cumulative(ctx context.Context, id string, x float64, terms int) (float64, error) {
	r := c.rc.R().SetContext(ctx).SetQueryParam("x", formatFloat(x))
	if terms > 0 {
		r.SetQueryParam("terms", fmt.Sprintf("%d", terms))
	}
	var out cumulativeResponse
	resp, err := r.SetResult(&out).Get("/api/models/" + id + "/cumulative")
	if err := checkResp(resp, err); err != nil {
		return 0, err
	}
	return out.Cumulative, nil
}

type intervalResponse struct {
	Probability float64 `json:"probability"`
}

// Interval 求 [min, max] 的概率质量。±Inf 表示无界。
func (c *Client) Interval(ctx context.Context, id string, min, max float64) (float64, error) {
	var out intervalResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("min", formatFloat(min)).
		SetQueryParam("max", formatFloat(max)).
		SetResult(&out).
		Get("/api/models/" + id + "/interval")
	if err := checkResp(resp, err); err != nil {
		return 0, err
	}
	return out.Probability, nil
}

// Table CDF 表
type Table struct {
	Xs []float64 `json:"xs"`
	Ps []float64 `json:"ps"`
}

// FetchTable 取 [from, to] 上步长 step 的 CDF 表
func (c *Client) FetchTable(ctx context.Context, id string, from, to, step float64, places int) (*Table, error) {
	var out Table
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"from":   formatFloat(from),
			"to":     formatFloat(to),
			"step":   formatFloat(step),
			"places": fmt.Sprintf("%d", places),
		}).
		SetResult(&out).
		Get("/api/models/" + id + "/table")
	if err := checkResp(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamURL 抽样流的 websocket 地址
func (c *Client) StreamURL(id string, intervalMS int) string {
	base := c.rc.BaseURL
	wsBase := strings.Replace(base, "http", "ws", 1)
	u := fmt.Sprintf("%s/api/models/%s/stream", wsBase, id)
	if intervalMS > 0 {
		u += fmt.Sprintf("?interval_ms=%d", intervalMS)
	}
	return u
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%v", v)
}

func tryUnmarshalError(body []byte, out *apiError) error {
	if len(body) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(body, out)
}
