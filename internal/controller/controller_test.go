package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"riskchat/internal/conversation"
	"riskchat/internal/i18n"
	"riskchat/internal/navigator"
	"riskchat/internal/session"
	"riskchat/internal/storage"
	"riskchat/internal/transport"
)

type fakeAPI struct {
	mu sync.Mutex

	login   transport.AuthResult
	signup  transport.AuthResult
	authErr error

	// Gates block only the first call made after they are set.
	chat      transport.ChatResult
	chatErr   error
	chatGate  chan struct{}
	chatCalls []chatCall

	history      transport.HistoryResult
	historyErr   error
	historyGate  chan struct{}
	historyCalls int

	clear      transport.Envelope
	clearErr   error
	clearGate  chan struct{}
	clearCalls int

	health    transport.HealthResult
	healthErr error
}

type chatCall struct {
	token   string
	message string
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (transport.AuthResult, error) {
	return f.login, f.authErr
}

func (f *fakeAPI) Signup(ctx context.Context, name, email, password string) (transport.AuthResult, error) {
	return f.signup, f.authErr
}

func (f *fakeAPI) Chat(ctx context.Context, token, message string) (transport.ChatResult, error) {
	f.mu.Lock()
	f.chatCalls = append(f.chatCalls, chatCall{token: token, message: message})
	gate := f.chatGate
	f.chatGate = nil
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chat, f.chatErr
}

func (f *fakeAPI) History(ctx context.Context, token string) (transport.HistoryResult, error) {
	f.mu.Lock()
	f.historyCalls++
	gate := f.historyGate
	f.historyGate = nil
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, f.historyErr
}

func (f *fakeAPI) ClearHistory(ctx context.Context, token string) (transport.Envelope, error) {
	f.mu.Lock()
	f.clearCalls++
	gate := f.clearGate
	f.clearGate = nil
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clear, f.clearErr
}

func (f *fakeAPI) Health(ctx context.Context) (transport.HealthResult, error) {
	return f.health, f.healthErr
}

func (f *fakeAPI) chatCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chatCalls)
}

func (f *fakeAPI) historyCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls
}

func (f *fakeAPI) clearCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearCalls
}

var tr = i18n.New("en")

func newController(t *testing.T, api *fakeAPI, restored *session.Session) (*Controller, *session.Store) {
	t.Helper()
	kv := storage.NewMemoryStore()
	sessions := session.NewStore(kv, "", nil)
	if restored != nil {
		if err := sessions.Persist(*restored); err != nil {
			t.Fatalf("seed session: %v", err)
		}
	}
	return New(api, sessions, Options{Translator: tr}), sessions
}

func loggedIn(t *testing.T, api *fakeAPI) *Controller {
	t.Helper()
	c, _ := newController(t, api, &session.Session{Token: "T0", Name: "Omar"})
	if c.Screen() != navigator.ScreenChat {
		t.Fatalf("expected chat after restore, got %s", c.Screen())
	}
	return c
}

func tail(msgs []conversation.Message, n int) []conversation.Message {
	if len(msgs) < n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

func TestNew_NoSessionStartsAtWelcome(t *testing.T) {
	c, _ := newController(t, &fakeAPI{}, nil)
	snap := c.Snapshot()
	if snap.Screen != navigator.ScreenWelcome {
		t.Fatalf("screen=%s, want welcome", snap.Screen)
	}
	if snap.Session != nil || len(snap.Messages) != 0 {
		t.Fatalf("unexpected state: %+v", snap)
	}
}

func TestNew_RestoredSessionGreets(t *testing.T) {
	c := loggedIn(t, &fakeAPI{})
	msgs := c.Snapshot().Messages
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Omar") {
		t.Fatalf("expected one greeting naming Omar, got %+v", msgs)
	}
}

func TestLogin_SuccessScenario(t *testing.T) {
	api := &fakeAPI{login: transport.AuthResult{Success: true, Token: "T1", Name: "Sara"}}
	c, sessions := newController(t, api, nil)
	if err := c.ChooseLogin(); err != nil {
		t.Fatalf("ChooseLogin: %v", err)
	}
	if err := c.Login(context.Background(), "a@b.com", "x"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	got := sessions.Current()
	if got == nil || *got != (session.Session{Token: "T1", Name: "Sara"}) {
		t.Fatalf("session=%+v, want T1/Sara", got)
	}
	snap := c.Snapshot()
	if snap.Screen != navigator.ScreenChat {
		t.Fatalf("screen=%s, want chat", snap.Screen)
	}
	if len(snap.Messages) != 1 || !strings.Contains(snap.Messages[0].Text, "Sara") {
		t.Fatalf("expected exactly one greeting naming Sara, got %+v", snap.Messages)
	}
	if snap.Auth.Kind != AuthIdle {
		t.Fatalf("auth status should be idle after success, got %+v", snap.Auth)
	}
	if stored := sessions.Restore(); stored == nil || stored.Token != "T1" {
		t.Fatalf("session was not persisted: %+v", stored)
	}
}

func TestLogin_ApplicationFailureStaysOnScreen(t *testing.T) {
	api := &fakeAPI{login: transport.AuthResult{Success: false, Message: "invalid credentials"}}
	c, sessions := newController(t, api, nil)
	_ = c.ChooseLogin()
	_ = c.Login(context.Background(), "a@b.com", "bad")

	snap := c.Snapshot()
	if snap.Screen != navigator.ScreenLogin {
		t.Fatalf("screen=%s, want login", snap.Screen)
	}
	if snap.Auth.Kind != AuthError || snap.Auth.Text != "invalid credentials" {
		t.Fatalf("auth=%+v", snap.Auth)
	}
	if sessions.Current() != nil {
		t.Fatal("no session expected")
	}
}

func TestLogin_FallbackAndConnectivityTexts(t *testing.T) {
	api := &fakeAPI{login: transport.AuthResult{Success: false}}
	c, _ := newController(t, api, nil)
	_ = c.ChooseLogin()
	_ = c.Login(context.Background(), "a@b.com", "x")
	if got := c.Snapshot().Auth.Text; got != tr.T("login.failed") {
		t.Fatalf("fallback text=%q", got)
	}

	api.authErr = &transport.Error{Op: "send", Endpoint: "/login", Err: errors.New("refused")}
	_ = c.Login(context.Background(), "a@b.com", "x")
	if got := c.Snapshot().Auth.Text; got != tr.T("auth.connect_error") {
		t.Fatalf("connect error text=%q", got)
	}
}

func TestLogin_EmptyFieldsIgnored(t *testing.T) {
	api := &fakeAPI{authErr: errors.New("must not be called")}
	c, _ := newController(t, api, nil)
	_ = c.ChooseLogin()
	if err := c.Login(context.Background(), "  ", "x"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if snap := c.Snapshot(); snap.Auth.Kind != AuthIdle {
		t.Fatalf("no status expected for ignored submit, got %+v", snap.Auth)
	}
}

func TestLogin_OutsideAuthScreen(t *testing.T) {
	c, _ := newController(t, &fakeAPI{}, nil)
	err := c.Login(context.Background(), "a@b.com", "x")
	if !errors.Is(err, navigator.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSignup_Success(t *testing.T) {
	api := &fakeAPI{signup: transport.AuthResult{Success: true, Token: "T2", Name: "Layla"}}
	c, sessions := newController(t, api, nil)
	_ = c.ChooseSignup()
	if err := c.Signup(context.Background(), "Layla", "l@x.com", "pw"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if c.Screen() != navigator.ScreenChat || sessions.Token() != "T2" {
		t.Fatalf("screen=%s token=%q", c.Screen(), sessions.Token())
	}
}

func TestSend_SuccessScenario(t *testing.T) {
	api := &fakeAPI{chat: transport.ChatResult{Success: true, Answer: "hi!", Category: "greeting", Confidence: 91.5}}
	c := loggedIn(t, api)
	if err := c.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs := c.Snapshot().Messages
	last := tail(msgs, 2)
	if last[0].Origin != conversation.OriginUser || last[0].Text != "hello" {
		t.Fatalf("user echo=%+v", last[0])
	}
	if last[1].Origin != conversation.OriginBot || last[1].Text != "hi!" || last[1].Category != "greeting" || last[1].Confidence != 91.5 {
		t.Fatalf("bot answer=%+v", last[1])
	}
	for _, m := range msgs {
		if m.IsPending() {
			t.Fatal("pending entry remained")
		}
	}
	if api.chatCalls[0].token != "T0" {
		t.Fatalf("bearer token=%q, want T0", api.chatCalls[0].token)
	}
}

func TestSend_TransportFailureScenario(t *testing.T) {
	api := &fakeAPI{chatErr: &transport.Error{Op: "send", Endpoint: "/chat", Err: errors.New("refused")}}
	c := loggedIn(t, api)
	_ = c.Send(context.Background(), "hello")
	last := tail(c.Snapshot().Messages, 2)
	if last[0].Text != "hello" || last[1].Text != tr.T("chat.connect_error") {
		t.Fatalf("tail=%+v", last)
	}
	if last[1].IsPending() {
		t.Fatal("connectivity text must be final")
	}
}

func TestSend_ApplicationFailureUsesMessageOrFallback(t *testing.T) {
	api := &fakeAPI{chat: transport.ChatResult{Success: false, Message: "message required"}}
	c := loggedIn(t, api)
	_ = c.Send(context.Background(), "x")
	if got := tail(c.Snapshot().Messages, 1)[0].Text; got != "message required" {
		t.Fatalf("got %q", got)
	}
	api.chat = transport.ChatResult{Success: false}
	_ = c.Send(context.Background(), "y")
	if got := tail(c.Snapshot().Messages, 1)[0].Text; got != tr.T("chat.error") {
		t.Fatalf("got %q", got)
	}
}

func TestSend_EmptyMessageIsNoop(t *testing.T) {
	api := &fakeAPI{}
	c := loggedIn(t, api)
	before := len(c.Snapshot().Messages)
	for _, in := range []string{"", "   ", "\n\t"} {
		if err := c.Send(context.Background(), in); err != nil {
			t.Fatalf("Send(%q): %v", in, err)
		}
	}
	if after := len(c.Snapshot().Messages); after != before {
		t.Fatalf("log length %d -> %d", before, after)
	}
	if api.chatCallCount() != 0 {
		t.Fatal("no chat call expected")
	}
}

func TestSend_PendingUniqueness(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		chat:     transport.ChatResult{Success: true, Answer: "ok"},
		chatGate: gate,
	}
	c := loggedIn(t, api)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "first") }()
	waitFor(t, func() bool { return api.chatCallCount() == 1 })

	for i := 0; i < 5; i++ {
		if err := c.Send(context.Background(), "again"); !errors.Is(err, ErrBusy) {
			t.Fatalf("send %d: expected ErrBusy, got %v", i, err)
		}
	}
	snap := c.Snapshot()
	pending := 0
	for _, m := range snap.Messages {
		if m.IsPending() {
			pending++
		}
	}
	if pending != 1 {
		t.Fatalf("pending=%d, want 1", pending)
	}
	if !snap.Waiting {
		t.Fatal("Waiting should be true while the exchange is outstanding")
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
	if api.chatCallCount() != 1 {
		t.Fatalf("chat calls=%d, want 1", api.chatCallCount())
	}
}

func TestSend_StaleResolutionAfterLogoutIsDropped(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		chat:     transport.ChatResult{Success: true, Answer: "late"},
		chatGate: gate,
	}
	c := loggedIn(t, api)
	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "q") }()
	waitFor(t, func() bool { return api.chatCallCount() == 1 })

	if err := c.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	close(gate)
	<-done
	if n := len(c.Snapshot().Messages); n != 0 {
		t.Fatalf("log after logout+late answer has %d entries, want 0", n)
	}
}

func TestLogMonotonicity(t *testing.T) {
	api := &fakeAPI{chat: transport.ChatResult{Success: true, Answer: "a"}}
	c := loggedIn(t, api)

	var mu sync.Mutex
	var lengths []int
	c.SetChangeCallback(func(Change) {
		n := len(c.Snapshot().Messages)
		mu.Lock()
		lengths = append(lengths, n)
		mu.Unlock()
	})
	for _, m := range []string{"one", "two", "three"} {
		_ = c.Send(context.Background(), m)
	}
	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(lengths); i++ {
		if lengths[i] < lengths[i-1] {
			t.Fatalf("log shrank without reset: %v", lengths)
		}
	}
	if lengths[len(lengths)-1] != 7 {
		t.Fatalf("final length=%d, want 7 (greeting + 3 pairs)", lengths[len(lengths)-1])
	}
}

func TestChangeCallbackScrollsOnAppend(t *testing.T) {
	api := &fakeAPI{chat: transport.ChatResult{Success: true, Answer: "a"}}
	c := loggedIn(t, api)
	var changes []Change
	c.SetChangeCallback(func(ch Change) { changes = append(changes, ch) })
	_ = c.Send(context.Background(), "x")
	if len(changes) != 2 {
		t.Fatalf("changes=%d, want 2 (echo+pending, resolution)", len(changes))
	}
	for _, ch := range changes {
		if !ch.ScrollToLatest {
			t.Fatalf("expected ScrollToLatest on every conversation change: %+v", changes)
		}
	}
}

func TestHistory_Entries(t *testing.T) {
	entries := []transport.HistoryEntry{
		{Problem: "leak", Category: "بيئية", Confidence: 80},
		{Problem: "theft", Category: "أمنية", Confidence: 95},
	}
	api := &fakeAPI{history: transport.HistoryResult{Success: true, Entries: entries}}
	c := loggedIn(t, api)

	var states []HistoryState
	c.SetChangeCallback(func(Change) { states = append(states, c.Snapshot().History.State) })
	if err := c.OpenHistory(context.Background()); err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	if len(states) == 0 || states[0] != HistoryLoading {
		t.Fatalf("first state should be loading, got %v", states)
	}
	h := c.Snapshot().History
	if !h.Open || h.State != HistoryEntries || len(h.Entries) != 2 || h.Entries[0].Problem != "leak" {
		t.Fatalf("history=%+v", h)
	}
}

func TestHistory_EmptyAndFailed(t *testing.T) {
	api := &fakeAPI{history: transport.HistoryResult{Success: true}}
	c := loggedIn(t, api)
	_ = c.OpenHistory(context.Background())
	if s := c.Snapshot().History.State; s != HistoryEmpty {
		t.Fatalf("state=%s, want empty", s)
	}
	_ = c.CloseHistory()

	api.historyErr = &transport.Error{Op: "send", Endpoint: "/history", Err: errors.New("down")}
	_ = c.OpenHistory(context.Background())
	if s := c.Snapshot().History.State; s != HistoryFailed {
		t.Fatalf("state=%s, want failed", s)
	}
	if c.Screen() != navigator.ScreenChat {
		t.Fatal("failed fetch must not change screen")
	}
}

func TestHistory_CloseHasNoNetworkAction(t *testing.T) {
	api := &fakeAPI{history: transport.HistoryResult{Success: true}}
	c := loggedIn(t, api)
	_ = c.OpenHistory(context.Background())
	_ = c.CloseHistory()
	if api.historyCalls != 1 {
		t.Fatalf("history calls=%d, want 1", api.historyCalls)
	}
	if c.Snapshot().History.Open {
		t.Fatal("overlay should be closed")
	}
}

func TestAuthGating_NoHistoryCallsWithoutSession(t *testing.T) {
	api := &fakeAPI{}
	c := loggedIn(t, api)
	_ = c.Logout()
	if err := c.OpenHistory(context.Background()); err == nil {
		t.Fatal("expected error opening history outside chat")
	}
	yes := ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	if err := c.ClearHistory(context.Background(), yes); err == nil {
		t.Fatal("expected error clearing history without session")
	}
	if api.historyCalls != 0 || api.clearCalls != 0 {
		t.Fatalf("history=%d clear=%d, want none", api.historyCalls, api.clearCalls)
	}
}

func TestClearHistory_DeclinedIssuesNoRequest(t *testing.T) {
	entries := []transport.HistoryEntry{{Problem: "p", Category: "c"}}
	api := &fakeAPI{history: transport.HistoryResult{Success: true, Entries: entries}}
	c := loggedIn(t, api)
	_ = c.OpenHistory(context.Background())

	var prompt string
	no := ConfirmFunc(func(_ context.Context, p string) (bool, error) { prompt = p; return false, nil })
	if err := c.ClearHistory(context.Background(), no); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if api.clearCalls != 0 {
		t.Fatal("clear request issued without confirmation")
	}
	if prompt != tr.T("history.clear_confirm") {
		t.Fatalf("prompt=%q", prompt)
	}
	h := c.Snapshot().History
	if h.State != HistoryEntries || len(h.Entries) != 1 {
		t.Fatalf("overlay list changed: %+v", h)
	}
}

func TestClearHistory_ConfirmerErrorIssuesNoRequest(t *testing.T) {
	api := &fakeAPI{history: transport.HistoryResult{Success: true}}
	c := loggedIn(t, api)
	_ = c.OpenHistory(context.Background())
	boom := ConfirmFunc(func(context.Context, string) (bool, error) { return false, errors.New("closed") })
	if err := c.ClearHistory(context.Background(), boom); err == nil {
		t.Fatal("expected confirmer error")
	}
	if api.clearCalls != 0 {
		t.Fatal("clear request issued after confirmer error")
	}
}

func TestClearHistory_ConfirmedResetsToEmpty(t *testing.T) {
	entries := []transport.HistoryEntry{{Problem: "p", Category: "c"}}
	for _, env := range []transport.Envelope{{Success: true}, {Success: false, Message: "nope"}} {
		api := &fakeAPI{history: transport.HistoryResult{Success: true, Entries: entries}, clear: env}
		c := loggedIn(t, api)
		_ = c.OpenHistory(context.Background())
		yes := ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
		if err := c.ClearHistory(context.Background(), yes); err != nil {
			t.Fatalf("ClearHistory: %v", err)
		}
		h := c.Snapshot().History
		if api.clearCalls != 1 || h.State != HistoryEmpty || len(h.Entries) != 0 {
			t.Fatalf("success=%v: calls=%d history=%+v", env.Success, api.clearCalls, h)
		}
	}
}

func TestClearHistory_TransportFailureKeepsList(t *testing.T) {
	entries := []transport.HistoryEntry{{Problem: "p", Category: "c"}}
	api := &fakeAPI{
		history:  transport.HistoryResult{Success: true, Entries: entries},
		clearErr: &transport.Error{Op: "send", Endpoint: "/clear-history", Err: errors.New("down")},
	}
	c := loggedIn(t, api)
	_ = c.OpenHistory(context.Background())
	yes := ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	_ = c.ClearHistory(context.Background(), yes)
	h := c.Snapshot().History
	if h.State != HistoryEntries || len(h.Entries) != 1 || h.Notice != tr.T("history.clear_failed") {
		t.Fatalf("history=%+v", h)
	}
}

func TestHistory_StaleFetchAfterReloginDoesNotStickLoading(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		login:       transport.AuthResult{Success: true, Token: "T1", Name: "Sara"},
		history:     transport.HistoryResult{Success: true, Entries: []transport.HistoryEntry{{Problem: "p", Category: "c"}}},
		historyGate: gate,
	}
	c := loggedIn(t, api)
	done := make(chan error, 1)
	go func() { done <- c.OpenHistory(context.Background()) }()
	waitFor(t, func() bool { return api.historyCallCount() == 1 })

	if err := c.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := c.ChooseLogin(); err != nil {
		t.Fatalf("ChooseLogin: %v", err)
	}
	if err := c.Login(context.Background(), "sara@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.OpenHistory(context.Background()); err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	if n := api.historyCallCount(); n != 2 {
		t.Fatalf("history calls=%d, want a fresh fetch for the new session", n)
	}
	if h := c.Snapshot().History; !h.Open || h.State != HistoryEntries {
		t.Fatalf("history=%+v, want entries", h)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("stale OpenHistory: %v", err)
	}
	if h := c.Snapshot().History; !h.Open || h.State != HistoryEntries || len(h.Entries) != 1 {
		t.Fatalf("stale fetch changed overlay: %+v", h)
	}
}

func TestClearHistory_ReopenedOverlayResolvesAfterFailedClear(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		history:   transport.HistoryResult{Success: true, Entries: []transport.HistoryEntry{{Problem: "p", Category: "c"}}},
		clearErr:  &transport.Error{Op: "send", Endpoint: "/clear-history", Err: errors.New("down")},
		clearGate: gate,
	}
	c := loggedIn(t, api)
	_ = c.OpenHistory(context.Background())

	yes := ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	done := make(chan error, 1)
	go func() { done <- c.ClearHistory(context.Background(), yes) }()
	waitFor(t, func() bool { return api.clearCallCount() == 1 })

	if err := c.CloseHistory(); err != nil {
		t.Fatalf("CloseHistory: %v", err)
	}
	if err := c.OpenHistory(context.Background()); err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	h := c.Snapshot().History
	if h.State != HistoryLoading || !h.Clearing || api.historyCallCount() != 1 {
		t.Fatalf("history=%+v calls=%d, want loading behind the clear", h, api.historyCallCount())
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	h = c.Snapshot().History
	if h.State != HistoryFailed || h.Clearing || h.Notice != tr.T("history.clear_failed") {
		t.Fatalf("history=%+v, want failed with notice", h)
	}

	if err := c.OpenHistory(context.Background()); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if h := c.Snapshot().History; h.State != HistoryEntries || api.historyCallCount() != 2 {
		t.Fatalf("history=%+v calls=%d", h, api.historyCallCount())
	}
}

func TestSend_NewSessionNotBlockedByStaleExchange(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{
		login:    transport.AuthResult{Success: true, Token: "T1", Name: "Sara"},
		chat:     transport.ChatResult{Success: true, Answer: "ok"},
		chatGate: gate,
	}
	c := loggedIn(t, api)
	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "old question") }()
	waitFor(t, func() bool { return api.chatCallCount() == 1 })

	if err := c.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.Snapshot().Waiting {
		t.Fatal("Waiting should drop with the log reset")
	}
	if err := c.ChooseLogin(); err != nil {
		t.Fatalf("ChooseLogin: %v", err)
	}
	if err := c.Login(context.Background(), "sara@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.Send(context.Background(), "hello new session"); err != nil {
		t.Fatalf("Send in new session: %v", err)
	}
	msgs := c.Snapshot().Messages
	if len(msgs) != 3 || msgs[1].Text != "hello new session" || msgs[2].Text != "ok" {
		t.Fatalf("messages=%+v", msgs)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("old send: %v", err)
	}
	snap := c.Snapshot()
	if len(snap.Messages) != 3 || snap.Waiting {
		t.Fatalf("stale answer leaked: waiting=%v messages=%+v", snap.Waiting, snap.Messages)
	}
}

func TestLogout(t *testing.T) {
	api := &fakeAPI{chat: transport.ChatResult{Success: true, Answer: "a"}}
	c, sessions := newController(t, api, &session.Session{Token: "T0", Name: "Omar"})
	_ = c.Send(context.Background(), "hi")
	if err := c.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	snap := c.Snapshot()
	if snap.Screen != navigator.ScreenWelcome || len(snap.Messages) != 0 || snap.Session != nil {
		t.Fatalf("after logout: %+v", snap)
	}
	if sessions.Restore() != nil {
		t.Fatal("stored session should be gone")
	}
	if err := c.Logout(); !errors.Is(err, navigator.ErrInvalidTransition) {
		t.Fatalf("second logout: %v", err)
	}
}

func TestCheckHealth(t *testing.T) {
	api := &fakeAPI{health: transport.HealthResult{Status: "ok", Model: true}}
	c := loggedIn(t, api)
	st := c.CheckHealth(context.Background())
	if !st.Checked || !st.Reachable || !st.Health.OK() {
		t.Fatalf("status=%+v", st)
	}
	api.healthErr = errors.New("down")
	if st := c.CheckHealth(context.Background()); st.Reachable {
		t.Fatalf("expected unreachable: %+v", st)
	}
	if c.Snapshot().Backend.Reachable {
		t.Fatal("snapshot should reflect last probe")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
