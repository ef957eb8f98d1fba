package controller

import (
	"context"
	"errors"

	"riskchat/internal/conversation"
	"riskchat/internal/navigator"
	"riskchat/internal/session"
	"riskchat/internal/transport"
)

var (
	// ErrBusy 同类请求仍在进行中
	// ErrBusy means a call for the same action type is still outstanding.
	ErrBusy = errors.New("controller: action already in flight")
	// ErrNoSession 需要登录态的操作在未登录时被调用
	// ErrNoSession guards authenticated endpoints; no request is issued.
	ErrNoSession = errors.New("controller: no active session")
)

// Translator resolves catalog keys; *i18n.I18n satisfies it.
type Translator interface {
	T(key string, args ...any) string
}

// Confirmer 是清空历史前的确认闸门（TUI 模态框 / REPL y/N）
// Confirmer is the yes/no gate shown before a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a plain function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

type AuthStatusKind int

const (
	AuthIdle AuthStatusKind = iota
	AuthPending
	AuthError
)

// AuthStatus is the inline status line under the login/signup form.
type AuthStatus struct {
	Text string
	Kind AuthStatusKind
}

type HistoryState int

const (
	HistoryLoading HistoryState = iota
	HistoryEntries
	HistoryEmpty
	HistoryFailed
)

func (s HistoryState) String() string {
	switch s {
	case HistoryLoading:
		return "loading"
	case HistoryEntries:
		return "entries"
	case HistoryEmpty:
		return "empty"
	case HistoryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HistoryView 历史浮层的展示状态
// HistoryView is what the history overlay renders.
type HistoryView struct {
	Open    bool
	State   HistoryState
	Entries []transport.HistoryEntry
	// Notice 非空时显示在列表上方（如清空失败）
	// Notice, when set, is shown above the list (e.g. a failed clear).
	Notice   string
	Clearing bool
}

// BackendStatus is the last /health probe outcome.
type BackendStatus struct {
	Checked   bool
	Reachable bool
	Health    transport.HealthResult
}

// Snapshot 是一次一致性读取的全部可展示状态
// Snapshot is a consistent copy of everything a frontend renders.
type Snapshot struct {
	Screen   navigator.Screen
	Session  *session.Session
	Messages []conversation.Message
	Auth     AuthStatus
	History  HistoryView
	Backend  BackendStatus
	// Waiting is true while a chat exchange is outstanding.
	Waiting bool
}

// Change 通知前端重绘
// Change tells the frontend to re-render. ScrollToLatest is set after every
// conversation append or removal; the newest entry must then be brought into view.
type Change struct {
	ScrollToLatest bool
}

type ChangeFunc func(Change)
