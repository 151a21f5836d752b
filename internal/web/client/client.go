// Package client 终端宿主访问事件与摄像头接口
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gowvp/vigil/internal/core/incident"
	"github.com/gowvp/vigil/internal/core/timeline"
)

type Client struct {
	base string
	cli  *http.Client
}

// New addr 形如 http://127.0.0.1:15123
func New(addr string) *Client {
	addr = strings.TrimSuffix(addr, "/")
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &Client{
		base: addr + "/api",
		cli: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// StatusError 非 2xx 响应
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// FetchIncidents 全部事件，最新的在前
func (c *Client) FetchIncidents(ctx context.Context) ([]timeline.Incident, error) {
	var out []timeline.Incident
	err := c.do(ctx, http.MethodGet, "/incidents/all", nil, &out)
	return out, err
}

// FetchCameras 摄像头及事件数
func (c *Client) FetchCameras(ctx context.Context) ([]incident.CameraWithCount, error) {
	var out []incident.CameraWithCount
	err := c.do(ctx, http.MethodGet, "/cameras", nil, &out)
	return out, err
}

// SetResolved 显式设置处理状态，重试结果一致
func (c *Client) SetResolved(ctx context.Context, id int64, resolved bool) (timeline.Incident, error) {
	var out timeline.Incident
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/incidents/%d/resolve", id),
		incident.ResolveIncidentInput{Resolved: &resolved}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
