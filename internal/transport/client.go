package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"riskchat/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrConnectivity 网络层失败或响应无法解析
// ErrConnectivity matches every *Error: the exchange could not complete or the
// body was not structured data.
var ErrConnectivity = errors.New("transport: connectivity failure")

// Error 传输层错误（与 success:false 的业务失败区分）
// Error is a transport-level failure, as opposed to an application-level
// negative carried by Envelope.Success == false.
type Error struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrConnectivity }

// Request 一次请求/响应交换
// Request describes one request/response exchange
type Request struct {
	Method   string
	Endpoint string
	Payload  any
	// Token 非空时附带 Bearer 头 / Token, when non-empty, is sent as a bearer credential
	Token string
}

// Envelope 归一化后的响应
// Envelope is the normalized response body
type Envelope struct {
	Success bool
	Message string
	Status  int
	Body    json.RawMessage
}

// Client 面向后端 JSON 契约的 HTTP 客户端
// Client is the HTTP client for the backend's JSON contract
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.APIBase(),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		logger: logger,
	}
}

// BaseURL 返回 API 根地址 / BaseURL returns the API base the client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send 执行一次交换。仅在网络失败或响应体不是 JSON 对象时返回 *Error；
// success:false 作为正常结果返回。
// Send performs one exchange. It returns an *Error only when the call cannot
// complete or the body is not a JSON object; success:false is a normal result.
func (c *Client) Send(ctx context.Context, r Request) (Envelope, error) {
	method := r.Method
	if method == "" {
		method = http.MethodPost
	}
	endpoint := "/" + strings.TrimLeft(r.Endpoint, "/")
	fail := func(op string, err error) (Envelope, error) {
		return Envelope{}, &Error{Op: op, Endpoint: endpoint, Err: err}
	}

	var body io.Reader
	if r.Payload != nil {
		data, err := json.Marshal(r.Payload)
		if err != nil {
			return fail("marshal request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fail("create request", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Error(err))
		return fail("send request", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail("read response", err)
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		c.logger.Warn("unparsable response",
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return fail("parse response", err)
	}
	env.Status = resp.StatusCode

	c.logger.Debug("exchange done",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Bool("success", env.Success),
		zap.Duration("elapsed", time.Since(start)))
	return env, nil
}

func decodeEnvelope(data []byte) (Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Envelope{}, fmt.Errorf("decode body: %w", err)
	}
	if fields == nil {
		return Envelope{}, fmt.Errorf("decode body: not a JSON object")
	}
	env := Envelope{Body: json.RawMessage(data)}
	if raw, ok := fields["success"]; ok {
		// 非布尔值视为失败 / non-boolean success counts as false
		_ = json.Unmarshal(raw, &env.Success)
	}
	if raw, ok := fields["message"]; ok {
		_ = json.Unmarshal(raw, &env.Message)
	}
	return env, nil
}
