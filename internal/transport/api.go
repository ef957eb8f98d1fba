package transport

import (
	"context"
	"encoding/json"
	"net/http"
)

// API 控制器依赖的后端接口
// API is the backend surface the controller depends on
type API interface {
	Login(ctx context.Context, email, password string) (AuthResult, error)
	Signup(ctx context.Context, name, email, password string) (AuthResult, error)
	Chat(ctx context.Context, token, message string) (ChatResult, error)
	History(ctx context.Context, token string) (HistoryResult, error)
	ClearHistory(ctx context.Context, token string) (Envelope, error)
	Health(ctx context.Context) (HealthResult, error)
}

// AuthResult is the normalized /login and /signup response.
type AuthResult struct {
	Success bool
	Token   string
	Name    string
	Message string
}

// ChatResult is the normalized /chat response.
type ChatResult struct {
	Success    bool
	Answer     string
	Category   string
	Confidence float64
	Message    string
}

// HistoryEntry is one server-persisted classified problem.
type HistoryEntry struct {
	Problem    string   `json:"problem"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Solutions  []string `json:"solutions,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
}

// HistoryResult is the normalized /history response.
type HistoryResult struct {
	Success bool
	Entries []HistoryEntry
	Message string
}

// HealthResult is the /health probe response.
type HealthResult struct {
	Status     string   `json:"status"`
	Model      bool     `json:"model"`
	Accuracy   float64  `json:"accuracy"`
	NumSamples int      `json:"num_samples"`
	Categories []string `json:"categories"`
}

// OK reports whether the backend declared itself healthy.
func (h HealthResult) OK() bool {
	return h.Status == "ok"
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
}

var _ API = (*Client)(nil)

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	return c.auth(ctx, "/login", loginRequest{Email: email, Password: password})
}

func (c *Client) Signup(ctx context.Context, name, email, password string) (AuthResult, error) {
	return c.auth(ctx, "/signup", signupRequest{Name: name, Email: email, Password: password})
}

func (c *Client) auth(ctx context.Context, endpoint string, payload any) (AuthResult, error) {
	env, err := c.Send(ctx, Request{Method: http.MethodPost, Endpoint: endpoint, Payload: payload})
	if err != nil {
		return AuthResult{}, err
	}
	out := AuthResult{Success: env.Success, Message: env.Message}
	if !env.Success {
		return out, nil
	}
	f, err := decodeFields(endpoint, env)
	if err != nil {
		return AuthResult{}, err
	}
	out.Token = f.str("token")
	out.Name = f.str("name")
	return out, nil
}

func (c *Client) Chat(ctx context.Context, token, message string) (ChatResult, error) {
	env, err := c.Send(ctx, Request{
		Method:   http.MethodPost,
		Endpoint: "/chat",
		Payload:  chatRequest{Message: message},
		Token:    token,
	})
	if err != nil {
		return ChatResult{}, err
	}
	out := ChatResult{Success: env.Success, Message: env.Message}
	if !env.Success {
		return out, nil
	}
	f, err := decodeFields("/chat", env)
	if err != nil {
		return ChatResult{}, err
	}
	out.Answer = f.str("answer")
	out.Category = f.str("category")
	out.Confidence = f.number("confidence")
	return out, nil
}

func (c *Client) History(ctx context.Context, token string) (HistoryResult, error) {
	env, err := c.Send(ctx, Request{Method: http.MethodGet, Endpoint: "/history", Token: token})
	if err != nil {
		return HistoryResult{}, err
	}
	out := HistoryResult{Success: env.Success, Message: env.Message}
	if !env.Success {
		return out, nil
	}
	f, err := decodeFields("/history", env)
	if err != nil {
		return HistoryResult{}, err
	}
	for _, item := range f.list("problems") {
		out.Entries = append(out.Entries, historyEntry(item))
	}
	return out, nil
}

func (c *Client) ClearHistory(ctx context.Context, token string) (Envelope, error) {
	return c.Send(ctx, Request{Method: http.MethodPost, Endpoint: "/clear-history", Token: token})
}

func (c *Client) Health(ctx context.Context) (HealthResult, error) {
	env, err := c.Send(ctx, Request{Method: http.MethodGet, Endpoint: "/health"})
	if err != nil {
		return HealthResult{}, err
	}
	var out HealthResult
	if err := decodeBody("/health", env, &out); err != nil {
		return HealthResult{}, err
	}
	return out, nil
}

func decodeBody(endpoint string, env Envelope, v any) error {
	if err := json.Unmarshal(env.Body, v); err != nil {
		return &Error{Op: "parse response", Endpoint: endpoint, Err: err}
	}
	return nil
}
