// Package rpc implements the JSON-RPC 2.0 provider used to talk to a NEAR
// node over HTTP.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"NEAR-Swarm/pkg/logger"

	"github.com/google/uuid"
)

const defaultTimeout = 30 * time.Second

// Observer receives the outcome of every RPC call, typically a metrics sink.
type Observer interface {
	ObserveRPC(method string, err error, duration time.Duration)
}

// Client 通过 HTTP POST 调用 NEAR 节点的 JSON-RPC 接口。
type Client struct {
	url        string
	httpClient *http.Client
	observer   Observer
	logger     *slog.Logger
}

// Option 定义可选的客户端配置。
type Option func(*Client)

// WithHTTPClient 替换默认的 HTTP 客户端。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver 注册调用观察者。
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger 注入日志器。
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient 创建指向 url 的 RPC 客户端，不会发起任何网络请求。
func NewClient(url string, opts ...Option) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("未配置 NEAR RPC 地址")
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// URL 返回节点地址。
func (c *Client) URL() string { return c.url }

// Close 释放空闲连接。
func (c *Client) Close() {
	if c != nil && c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Response 是未经解释的 JSON-RPC 响应。
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Post 发送一次 JSON-RPC 请求并返回原始响应。只有传输失败、非 2xx 状态码或
// 响应体无法解析时才返回错误；RPC 层面的错误保留在 Response.Error 中。
func (c *Client) Post(ctx context.Context, method string, params any) (*Response, error) {
	if params == nil {
		params = []any{}
	}
	payload, err := json.Marshal(request{JSONRPC: "2.0", ID: uuid.NewString(), Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("序列化 RPC 请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建 RPC 请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求 NEAR 节点失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("解析 RPC 响应失败: %w", err)
	}
	return &decoded, nil
}

// Call 调用 method 并把 result 解码到 out 中；RPC 错误以 *Error 返回。
func (c *Client) Call(ctx context.Context, method string, params any, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRPC(method, err, time.Since(start))
		}
		if err != nil {
			c.logger.Debug("RPC 调用失败", "method", method, "error", err)
		}
	}()

	resp, err := c.Post(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return fmt.Errorf("RPC 方法 %s 返回了空结果", method)
	}
	if err := queryError(resp.Result); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], resp.Result...)
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("解析 %s 结果失败: %w", method, err)
	}
	return nil
}

// queryError 处理旧版节点把查询错误放在 result.error 字段中的情况。
func queryError(result json.RawMessage) error {
	if len(result) == 0 || result[0] != '{' {
		return nil
	}
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(result, &probe); err != nil || probe.Error == "" {
		return nil
	}
	return &Error{Code: -32000, Message: probe.Error, Name: "QUERY_ERROR"}
}
