// Package controller drives the session, the conversation log, the screen
// navigator and the history overlay in response to user actions.
package controller

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"riskchat/internal/conversation"
	"riskchat/internal/navigator"
	"riskchat/internal/session"
	"riskchat/internal/transport"
)

type Options struct {
	Log        *conversation.Log
	Translator Translator
	Logger     *zap.Logger
	OnChange   ChangeFunc
}

// Controller 串联会话、对话日志、导航与历史浮层
// Controller owns all interactive state. Its mutex is never held across a
// network call: actions block the calling goroutine for the exchange and
// report intermediate states through the change callback.
type Controller struct {
	mu sync.Mutex

	api      transport.API
	sessions *session.Store
	log      *conversation.Log
	nav      *navigator.Navigator
	tr       Translator
	logger   *zap.Logger
	onChange ChangeFunc

	auth    AuthStatus
	history HistoryView
	backend BackendStatus

	// chatPending is the placeholder of the outstanding exchange; it is
	// cleared when that exchange resolves or the log is reset under it.
	chatPending  conversation.PendingID
	authInFlight bool
	// historyOp is the outstanding history request. historyGen advances on
	// every identity change so results of an earlier session are dropped.
	historyOp  historyOp
	historyGen uint64
}

type historyOp int

const (
	historyIdle historyOp = iota
	historyFetching
	historyClearing
)

// New restores any persisted session and picks the start screen from it:
// chat with a greeting when restored, welcome otherwise.
func New(api transport.API, sessions *session.Store, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	log := opts.Log
	if log == nil {
		log = conversation.NewLog()
	}
	tr := opts.Translator
	if tr == nil {
		tr = keyTranslator{}
	}
	c := &Controller{
		api:      api,
		sessions: sessions,
		log:      log,
		tr:       tr,
		logger:   logger,
		onChange: opts.OnChange,
	}

	restored := sessions.Restore()
	c.nav = navigator.New(restored != nil)
	if restored != nil {
		logger.Info("session restored", zap.String("name", restored.Name))
		c.resetWithGreeting(restored.Name)
	} else {
		c.log.Reset()
	}
	return c
}

// SetChangeCallback 设置状态变化回调
// SetChangeCallback replaces the change callback. It is invoked without the
// controller lock held, possibly from a non-UI goroutine.
func (c *Controller) SetChangeCallback(fn ChangeFunc) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Snapshot returns a consistent copy of the renderable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.history
	h.Open = c.nav.HistoryOpen()
	h.Entries = append([]transport.HistoryEntry(nil), c.history.Entries...)
	return Snapshot{
		Screen:   c.nav.Screen(),
		Session:  c.sessions.Current(),
		Messages: c.log.Messages(),
		Auth:     c.auth,
		History:  h,
		Backend:  c.backend,
		Waiting:  c.chatPending != "",
	}
}

// Screen is a shortcut for Snapshot().Screen.
func (c *Controller) Screen() navigator.Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nav.Screen()
}

// T exposes the controller's catalog to frontends.
func (c *Controller) T(key string, args ...any) string {
	return c.tr.T(key, args...)
}

func (c *Controller) notify(scroll bool) {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(Change{ScrollToLatest: scroll})
	}
}

// resetWithGreeting must be called with c.mu held (or before c is shared).
func (c *Controller) resetWithGreeting(name string) {
	c.log.Reset(conversation.Message{
		Origin: conversation.OriginBot,
		Text:   c.tr.T("chat.greeting", name),
		Status: conversation.StatusFinal,
	})
}

// forgetInFlight releases the chat and history gates held by requests of the
// previous identity. Callers hold c.mu and have just reset the log.
func (c *Controller) forgetInFlight() {
	c.chatPending = ""
	c.historyOp = historyIdle
	c.historyGen++
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type keyTranslator struct{}

func (keyTranslator) T(key string, _ ...any) string { return key }
