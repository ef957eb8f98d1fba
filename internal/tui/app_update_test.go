package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"riskchat/internal/controller"
	"riskchat/internal/i18n"
	"riskchat/internal/navigator"
	"riskchat/internal/session"
	"riskchat/internal/storage"
	"riskchat/internal/transport"
)

type stubAPI struct {
	mu         sync.Mutex
	clearCalls int
}

func (s *stubAPI) Login(ctx context.Context, email, password string) (transport.AuthResult, error) {
	return transport.AuthResult{Success: true, Token: "T1", Name: "Sara"}, nil
}

func (s *stubAPI) Signup(ctx context.Context, name, email, password string) (transport.AuthResult, error) {
	return transport.AuthResult{Success: true, Token: "T2", Name: name}, nil
}

func (s *stubAPI) Chat(ctx context.Context, token, message string) (transport.ChatResult, error) {
	return transport.ChatResult{Success: true, Answer: "hi there", Category: "عام", Confidence: 40}, nil
}

func (s *stubAPI) History(ctx context.Context, token string) (transport.HistoryResult, error) {
	return transport.HistoryResult{Success: true, Entries: []transport.HistoryEntry{
		{Problem: "water leak", Category: "بيئية", Confidence: 85, Solutions: []string{"fix the roof"}},
	}}, nil
}

func (s *stubAPI) ClearHistory(ctx context.Context, token string) (transport.Envelope, error) {
	s.mu.Lock()
	s.clearCalls++
	s.mu.Unlock()
	return transport.Envelope{Success: true}, nil
}

func (s *stubAPI) Health(ctx context.Context) (transport.HealthResult, error) {
	return transport.HealthResult{Status: "ok", Model: true}, nil
}

var en = i18n.New("en")

func newTestApp(t *testing.T, restored *session.Session) (App, *stubAPI) {
	t.Helper()
	api := &stubAPI{}
	sessions := session.NewStore(storage.NewMemoryStore(), "", nil)
	if restored != nil {
		if err := sessions.Persist(*restored); err != nil {
			t.Fatalf("Persist: %v", err)
		}
	}
	ctrl := controller.New(api, sessions, controller.Options{Translator: en})
	app := NewApp(context.Background(), ctrl, en)
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m.(App), api
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key and drops any resulting command (cursor blinks etc.).
func press(t *testing.T, app App, k tea.KeyMsg) App {
	t.Helper()
	m, _ := app.Update(k)
	return m.(App)
}

// act feeds a key that triggers a controller action, runs the action and
// feeds its result back.
func act(t *testing.T, app App, k tea.KeyMsg) App {
	t.Helper()
	m, cmd := app.Update(k)
	app = m.(App)
	if cmd == nil {
		t.Fatalf("key %q produced no action", k.String())
	}
	done, ok := cmd().(ActionDoneMsg)
	if !ok {
		t.Fatalf("key %q produced a non-action command", k.String())
	}
	m, _ = app.Update(done)
	return m.(App)
}

func TestApp_WelcomeToLogin(t *testing.T) {
	app, _ := newTestApp(t, nil)
	if app.snap.Screen != navigator.ScreenWelcome {
		t.Fatalf("screen=%s, want welcome", app.snap.Screen)
	}
	if !strings.Contains(app.View(), en.T("welcome.login")) {
		t.Fatal("welcome view should offer login")
	}

	app = act(t, app, runes("l"))
	if app.snap.Screen != navigator.ScreenLogin {
		t.Fatalf("screen=%s, want login", app.snap.Screen)
	}
	if len(app.form.fields) != 2 {
		t.Fatalf("login form fields=%d, want 2", len(app.form.fields))
	}
}

func TestApp_LoginFlow(t *testing.T) {
	app, _ := newTestApp(t, nil)
	app = act(t, app, runes("l"))

	app = press(t, app, runes("a@b.com"))
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter}) // next field
	app = press(t, app, runes("secret"))
	if !strings.Contains(app.View(), "••••••") {
		t.Fatal("password should be masked")
	}
	app = act(t, app, tea.KeyMsg{Type: tea.KeyEnter}) // submit

	if app.snap.Screen != navigator.ScreenChat {
		t.Fatalf("screen=%s, want chat", app.snap.Screen)
	}
	if !strings.Contains(app.chatView.View(), "Sara") {
		t.Fatalf("greeting should name Sara: %q", app.chatView.View())
	}
}

func TestApp_LoginWithEmptyPasswordFlashes(t *testing.T) {
	app, _ := newTestApp(t, nil)
	app = act(t, app, runes("l"))
	app = press(t, app, runes("a@b.com"))
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = m.(App)
	if cmd != nil {
		t.Fatal("incomplete form should not submit")
	}
	if app.flash != en.T("auth.fields_required") {
		t.Fatalf("flash=%q", app.flash)
	}
	if app.snap.Screen != navigator.ScreenLogin {
		t.Fatalf("screen=%s, want login", app.snap.Screen)
	}
}

func TestApp_SignupFormHasNameField(t *testing.T) {
	app, _ := newTestApp(t, nil)
	app = act(t, app, runes("s"))
	if app.snap.Screen != navigator.ScreenSignup || len(app.form.fields) != 3 {
		t.Fatalf("screen=%s fields=%d", app.snap.Screen, len(app.form.fields))
	}
	app = press(t, app, runes("Layla"))
	app = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	app = press(t, app, runes("l@x.com"))
	app = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	app = press(t, app, runes("pw"))
	app = act(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if app.snap.Session == nil || app.snap.Session.Name != "Layla" {
		t.Fatalf("session=%+v", app.snap.Session)
	}
}

func TestApp_SendScrollsToLatest(t *testing.T) {
	app, _ := newTestApp(t, &session.Session{Token: "T0", Name: "Omar"})
	for i := 0; i < 8; i++ {
		app = press(t, app, runes("hello"))
		app = act(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	}
	if app.input.Value() != "" {
		t.Fatalf("input should be cleared, got %q", app.input.Value())
	}
	if n := len(app.snap.Messages); n != 17 {
		t.Fatalf("messages=%d, want 17", n)
	}
	if !app.chatView.AtBottom() {
		t.Fatal("chat view should be scrolled to the newest entry")
	}
	if !strings.Contains(app.chatView.View(), "hi there") {
		t.Fatalf("latest answer not visible: %q", app.chatView.View())
	}
}

func TestApp_EmptyInputIsIgnored(t *testing.T) {
	app, _ := newTestApp(t, &session.Session{Token: "T0", Name: "Omar"})
	before := len(app.snap.Messages)
	m, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("empty input must not issue an action")
	}
	if len(m.(App).snap.Messages) != before {
		t.Fatal("log changed on empty submit")
	}
}

func TestApp_BusyFlash(t *testing.T) {
	app, _ := newTestApp(t, &session.Session{Token: "T0", Name: "Omar"})
	m, _ := app.Update(ActionDoneMsg{Err: controller.ErrBusy})
	if !strings.Contains(m.(App).View(), en.T("chat.busy")) {
		t.Fatal("busy notice should appear in the status bar")
	}
}

func TestApp_HistoryOverlayAndDeclinedClear(t *testing.T) {
	app, api := newTestApp(t, &session.Session{Token: "T0", Name: "Omar"})
	app = act(t, app, tea.KeyMsg{Type: tea.KeyCtrlR})
	if !app.snap.History.Open || app.snap.History.State != controller.HistoryEntries {
		t.Fatalf("history=%+v", app.snap.History)
	}
	view := app.View()
	if !strings.Contains(view, "water leak") || !strings.Contains(view, "fix the roof") {
		t.Fatalf("overlay should list entries with solutions: %q", view)
	}

	sent := make(chan tea.Msg, 1)
	app.bridge.setSend(func(msg tea.Msg) { sent <- msg })

	m, cmd := app.Update(runes("c"))
	app = m.(App)
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var req ConfirmRequestMsg
	select {
	case msg := <-sent:
		req = msg.(ConfirmRequestMsg)
	case <-time.After(2 * time.Second):
		t.Fatal("no confirm request")
	}
	m, _ = app.Update(req)
	app = m.(App)
	if !strings.Contains(app.View(), en.T("history.clear_confirm")) {
		t.Fatal("confirm modal should be visible")
	}
	app = press(t, app, runes("n"))
	if app.confirm != nil {
		t.Fatal("modal should be dismissed")
	}

	m, _ = app.Update(<-done)
	app = m.(App)
	if api.clearCalls != 0 {
		t.Fatal("declined confirmation must not issue a clear request")
	}
	if len(app.snap.History.Entries) != 1 {
		t.Fatalf("list should be unchanged: %+v", app.snap.History)
	}

	app = act(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	if app.snap.History.Open {
		t.Fatal("esc should close the overlay")
	}
}

func TestApp_LogoutReturnsToWelcome(t *testing.T) {
	app, _ := newTestApp(t, &session.Session{Token: "T0", Name: "Omar"})
	app = act(t, app, tea.KeyMsg{Type: tea.KeyCtrlX})
	if app.snap.Screen != navigator.ScreenWelcome || len(app.snap.Messages) != 0 {
		t.Fatalf("after logout: screen=%s messages=%d", app.snap.Screen, len(app.snap.Messages))
	}
}
