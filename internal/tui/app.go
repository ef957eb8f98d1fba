package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"riskchat/internal/controller"
	"riskchat/internal/i18n"
	"riskchat/internal/navigator"
)

// --- Tea Messages ---

// ChangedMsg 控制器状态变化
// ChangedMsg is forwarded from the controller's change callback
type ChangedMsg struct{ ScrollToLatest bool }

// ActionDoneMsg 一个控制器动作结束
// ActionDoneMsg reports that a controller action returned
type ActionDoneMsg struct {
	Err    error
	Scroll bool
}

// Options TUI 启动选项
type Options struct {
	AltScreen bool
}

// App Bubble Tea 主 Model
// App is the main Bubble Tea model. It never mutates controller state from
// Update directly: every action runs as a tea.Cmd, since the controller's
// change callback re-enters the program.
type App struct {
	ctx  context.Context
	ctrl *controller.Controller
	snap controller.Snapshot

	// 布局 / Layout
	width  int
	height int

	chatView    viewport.Model
	historyView viewport.Model
	input       textinput.Model
	form        authForm
	spinner     spinner.Model

	// 状态 / State
	confirm *ConfirmRequestMsg
	flash   string

	// 配置 / Config
	theme  Theme
	keys   KeyMap
	locale *i18n.I18n
	render *renderer
	bridge *promptBridge
}

// NewApp 创建 TUI 应用
// NewApp creates a new TUI application over ctrl
func NewApp(ctx context.Context, ctrl *controller.Controller, locale *i18n.I18n) App {
	if ctx == nil {
		ctx = context.Background()
	}
	if locale == nil {
		locale = i18n.Global()
	}
	theme := DarkTheme()

	in := textinput.New()
	in.Placeholder = locale.T("chat.placeholder")
	in.Prompt = "› "
	in.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.PendingStyle

	a := App{
		ctx:         ctx,
		ctrl:        ctrl,
		chatView:    viewport.New(80, 20),
		historyView: viewport.New(76, 17),
		input:       in,
		spinner:     sp,
		theme:       theme,
		keys:        DefaultKeyMap(),
		locale:      locale,
		render:      newRenderer(theme, locale.T, locale.RTL()),
		bridge:      &promptBridge{},
	}
	a.render.setWidth(80)
	a.snap = ctrl.Snapshot()
	a.enterScreen(a.snap.Screen)
	a.syncViews(true)
	return a
}

func (a App) Init() tea.Cmd {
	ctx, ctrl := a.ctx, a.ctrl
	return tea.Batch(
		textinput.Blink,
		a.spinner.Tick,
		func() tea.Msg {
			ctrl.CheckHealth(ctx)
			return nil
		},
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.relayout()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		if a.animating() {
			a.syncViews(false)
		}
		return a, cmd

	case ChangedMsg:
		a.refresh(msg.ScrollToLatest)
		return a, nil

	case ActionDoneMsg:
		a.refresh(msg.Scroll)
		a.flash = a.errorText(msg.Err)
		return a, nil

	case ConfirmRequestMsg:
		if a.confirm != nil {
			msg.Reply <- false
			return a, nil
		}
		a.confirm = &msg
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a.updateFocused(msg)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Quit) {
		if a.confirm != nil {
			a.answer(false)
		}
		return a, tea.Quit
	}
	if a.confirm != nil {
		switch {
		case key.Matches(msg, a.keys.Yes):
			a.answer(true)
		case key.Matches(msg, a.keys.No):
			a.answer(false)
		}
		return a, nil
	}
	a.flash = ""
	ctx, ctrl := a.ctx, a.ctrl

	switch a.snap.Screen {
	case navigator.ScreenWelcome:
		switch {
		case key.Matches(msg, a.keys.Login):
			return a, action(false, ctrl.ChooseLogin)
		case key.Matches(msg, a.keys.Signup):
			return a, action(false, ctrl.ChooseSignup)
		}
		return a, nil

	case navigator.ScreenLogin, navigator.ScreenSignup:
		switch {
		case key.Matches(msg, a.keys.Submit):
			if !a.form.onLastField() {
				cmd := a.form.move(1)
				return a, cmd
			}
			if !a.form.complete() {
				a.flash = a.locale.T("auth.fields_required")
				return a, nil
			}
			return a, a.submitAuth()
		case key.Matches(msg, a.keys.NextField):
			cmd := a.form.move(1)
			return a, cmd
		case key.Matches(msg, a.keys.PrevField):
			cmd := a.form.move(-1)
			return a, cmd
		}
		var cmd tea.Cmd
		a.form, cmd = a.form.update(msg)
		return a, cmd

	case navigator.ScreenChat:
		if a.snap.History.Open {
			return a.handleHistoryKey(msg)
		}
		switch {
		case key.Matches(msg, a.keys.Submit):
			text := a.input.Value()
			if strings.TrimSpace(text) == "" {
				return a, nil
			}
			if a.snap.Waiting {
				a.flash = a.locale.T("chat.busy")
				return a, nil
			}
			a.input.Reset()
			return a, action(true, func() error { return ctrl.Send(ctx, text) })
		case key.Matches(msg, a.keys.History):
			return a, action(false, func() error { return ctrl.OpenHistory(ctx) })
		case key.Matches(msg, a.keys.Logout):
			return a, action(true, ctrl.Logout)
		case key.Matches(msg, a.keys.PageUp), key.Matches(msg, a.keys.PageDown):
			var cmd tea.Cmd
			a.chatView, cmd = a.chatView.Update(msg)
			return a, cmd
		}
	}
	return a.updateFocused(msg)
}

func (a App) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx, ctrl, bridge := a.ctx, a.ctrl, a.bridge
	switch {
	case key.Matches(msg, a.keys.Close):
		return a, action(false, ctrl.CloseHistory)
	case key.Matches(msg, a.keys.Clear):
		return a, action(false, func() error { return ctrl.ClearHistory(ctx, bridge) })
	}
	var cmd tea.Cmd
	a.historyView, cmd = a.historyView.Update(msg)
	return a, cmd
}

func (a App) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.snap.Screen {
	case navigator.ScreenLogin, navigator.ScreenSignup:
		a.form, cmd = a.form.update(msg)
	case navigator.ScreenChat:
		if !a.snap.History.Open {
			a.input, cmd = a.input.Update(msg)
		}
	}
	return a, cmd
}

func (a App) submitAuth() tea.Cmd {
	ctx, ctrl := a.ctx, a.ctrl
	name, email, password := a.form.credentials()
	if a.form.screen == navigator.ScreenSignup {
		return action(true, func() error { return ctrl.Signup(ctx, name, email, password) })
	}
	return action(true, func() error { return ctrl.Login(ctx, email, password) })
}

func action(scroll bool, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Err: fn(), Scroll: scroll}
	}
}

func (a *App) answer(ok bool) {
	a.confirm.Reply <- ok
	a.confirm = nil
}

func (a App) errorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, controller.ErrBusy):
		return a.locale.T("chat.busy")
	case errors.Is(err, navigator.ErrInvalidTransition), errors.Is(err, controller.ErrNoSession):
		return ""
	default:
		return err.Error()
	}
}

// --- 内部方法 / Internal methods ---

func (a *App) refresh(scroll bool) {
	prev := a.snap.Screen
	a.snap = a.ctrl.Snapshot()
	if a.snap.Screen != prev {
		a.enterScreen(a.snap.Screen)
		scroll = true
	}
	a.syncViews(scroll)
}

func (a *App) enterScreen(s navigator.Screen) {
	switch s {
	case navigator.ScreenLogin, navigator.ScreenSignup:
		a.form = newAuthForm(s, a.locale.T)
		a.input.Blur()
	case navigator.ScreenChat:
		a.input.Reset()
		a.input.Focus()
	default:
		a.input.Blur()
	}
}

func (a *App) animating() bool {
	h := a.snap.History
	return a.snap.Waiting || a.snap.Auth.Kind == controller.AuthPending ||
		(h.Open && (h.State == controller.HistoryLoading || h.Clearing))
}

func (a *App) syncViews(scroll bool) {
	frame := a.spinner.View()
	a.chatView.SetContent(a.render.Conversation(a.snap.Messages, frame))
	if scroll {
		a.chatView.GotoBottom()
	}
	a.historyView.SetContent(a.render.History(a.snap.History, frame))
}

func (a *App) relayout() {
	body := a.bodyHeight()
	a.chatView.Width = a.width
	a.chatView.Height = max(body-2, 1)
	a.historyView.Width = max(a.width-4, 10)
	a.historyView.Height = max(body-3, 1)
	a.input.Width = max(a.width-4, 10)
	a.render.setWidth(a.width)
	a.syncViews(true)
}

func (a App) bodyHeight() int {
	// header + status bar + help line
	return max(a.height-3, 3)
}

// --- 渲染方法 / Render methods ---

func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	header := a.theme.TitleStyle.Render(" " + a.locale.T("app.title"))
	bodyHeight := a.bodyHeight()

	var body, help string
	switch a.snap.Screen {
	case navigator.ScreenWelcome:
		body = a.renderWelcome()
		help = a.locale.T("keys.welcome")
	case navigator.ScreenLogin, navigator.ScreenSignup:
		body = a.renderAuth()
		help = a.locale.T("keys.auth")
	case navigator.ScreenChat:
		if a.snap.History.Open {
			body = a.renderHistory()
			help = a.locale.T("keys.history")
		} else {
			body = lipgloss.JoinVertical(lipgloss.Left,
				a.chatView.View(),
				a.theme.InputStyle.Width(a.width).Render(a.input.View()))
			help = a.locale.T("keys.chat")
		}
	}

	if a.confirm != nil {
		modal := a.theme.ModalStyle.Render(a.confirm.Prompt + "\n\n" + a.locale.T("keys.confirm"))
		body = lipgloss.Place(a.width, bodyHeight, lipgloss.Center, lipgloss.Center, modal)
		help = a.locale.T("keys.confirm")
	}
	body = lipgloss.NewStyle().Width(a.width).Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		a.renderStatusBar(a.width),
		a.theme.MutedStyle.Render(" "+help))
}

func (a App) renderWelcome() string {
	lines := []string{
		"",
		a.theme.TitleStyle.Render(a.locale.T("welcome.heading")),
		"",
		a.locale.T("welcome.subtitle"),
		"",
		a.theme.BadgeStyle.Render("l") + " " + a.locale.T("welcome.login"),
		a.theme.BadgeStyle.Render("s") + " " + a.locale.T("welcome.signup"),
	}
	return lipgloss.Place(a.width, a.bodyHeight(), lipgloss.Center, lipgloss.Center, strings.Join(lines, "\n"))
}

func (a App) renderAuth() string {
	title := a.locale.T("login.title")
	if a.snap.Screen == navigator.ScreenSignup {
		title = a.locale.T("signup.title")
	}
	parts := []string{a.theme.TitleStyle.Render(title), "", a.form.view(a.theme), ""}
	switch a.snap.Auth.Kind {
	case controller.AuthPending:
		parts = append(parts, a.theme.PendingStyle.Render(a.spinner.View()+" "+a.snap.Auth.Text))
	case controller.AuthError:
		parts = append(parts, a.theme.ErrorStyle.Render(a.snap.Auth.Text))
	}
	box := a.theme.OverlayStyle.Render(strings.Join(parts, "\n"))
	return lipgloss.Place(a.width, a.bodyHeight(), lipgloss.Center, lipgloss.Center, box)
}

func (a App) renderHistory() string {
	content := a.theme.TitleStyle.Render(a.locale.T("history.title")) + "\n" + a.historyView.View()
	return a.theme.OverlayStyle.Width(max(a.width-2, 10)).Render(content)
}

func (a App) renderStatusBar(width int) string {
	var left string
	switch {
	case a.flash != "":
		left = a.theme.ErrorStyle.Render(a.flash)
	case a.snap.Waiting:
		left = a.spinner.View() + " " + a.locale.T("status.waiting")
	case a.snap.Session != nil:
		left = a.locale.T("status.signed_in_as", a.snap.Session.Name)
	default:
		left = a.locale.T("status.anonymous")
	}
	left = " " + left

	right := ""
	if b := a.snap.Backend; b.Checked {
		switch {
		case !b.Reachable || !b.Health.OK():
			right = a.theme.ErrorStyle.Render("● " + a.locale.T("status.backend_down"))
		case !b.Health.Model:
			right = a.theme.PendingStyle.Render("● " + a.locale.T("status.model_unavailable"))
		default:
			right = a.theme.SuccessStyle.Render("● " + a.locale.T("status.backend_ok"))
		}
	}
	right += "  "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return a.theme.StatusBarStyle.Width(width).Render(bar)
}

// Run 启动 Bubble Tea TUI
// Run starts the Bubble Tea TUI application and blocks until it exits
func Run(ctx context.Context, ctrl *controller.Controller, locale *i18n.I18n, opts Options) error {
	app := NewApp(ctx, ctrl, locale)
	var progOpts []tea.ProgramOption
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	progOpts = append(progOpts, tea.WithContext(ctx))
	p := tea.NewProgram(app, progOpts...)

	app.bridge.setSend(p.Send)
	ctrl.SetChangeCallback(func(ch controller.Change) {
		p.Send(ChangedMsg{ScrollToLatest: ch.ScrollToLatest})
	})
	defer ctrl.SetChangeCallback(nil)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
