// Package repl is the line-oriented frontend: the same controller as the TUI,
// driven by slash commands and plain text lines.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"riskchat/internal/controller"
	"riskchat/internal/conversation"
	"riskchat/internal/navigator"
)

// Loop 行式交互循环
// Loop reads lines from In and prints to Out until /quit, EOF or Ctrl+C.
type Loop struct {
	Controller *controller.Controller
	In         LineInput
	Out        io.Writer
	Logger     *zap.Logger
	// Color enables ANSI styling; New sets it from the environment.
	Color bool
	// Width bounds history lines; zero means no truncation.
	Width int

	printed map[string]bool
}

// New builds a Loop with color and width taken from the environment.
func New(ctrl *controller.Controller, in LineInput, out io.Writer, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		Controller: ctrl,
		In:         in,
		Out:        out,
		Logger:     logger,
		Color:      useColor(),
		Width:      terminalWidth(),
	}
}

// Run blocks until the user quits or input ends.
func (l *Loop) Run(ctx context.Context) error {
	if l.printed == nil {
		l.printed = make(map[string]bool)
	}
	c := l.Controller
	fmt.Fprintln(l.Out, paint(l.Color, ansiBold, c.T("welcome.heading")))
	fmt.Fprintln(l.Out, paint(l.Color, ansiDim, c.T("repl.banner")))
	l.printNew()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := l.In.ReadLine(l.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupt) {
				fmt.Fprintln(l.Out, c.T("repl.bye"))
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := l.command(ctx, line)
			if err != nil {
				l.printErr(err)
			}
			if quit {
				fmt.Fprintln(l.Out, c.T("repl.bye"))
				return nil
			}
			continue
		}
		l.send(ctx, line)
	}
}

func (l *Loop) prompt() string {
	switch l.Controller.Screen() {
	case navigator.ScreenChat:
		return paint(l.Color, ansiCyan, "riskchat") + "> "
	case navigator.ScreenLogin:
		return "login> "
	case navigator.ScreenSignup:
		return "signup> "
	default:
		return "> "
	}
}

func (l *Loop) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	c := l.Controller
	switch name {
	case "/quit", "/exit", "/q":
		return true, nil
	case "/help", "/?":
		fmt.Fprintln(l.Out, c.T("repl.help"))
	case "/login":
		return false, l.login(ctx)
	case "/signup":
		return false, l.signup(ctx)
	case "/logout":
		if err := c.Logout(); err != nil {
			return false, err
		}
		l.printed = make(map[string]bool)
		fmt.Fprintln(l.Out, c.T("status.anonymous"))
	case "/history":
		return false, l.history(ctx)
	case "/clear":
		return false, l.clear(ctx)
	case "/status":
		l.status(ctx)
	default:
		fmt.Fprintln(l.Out, paint(l.Color, ansiYellow, c.T("repl.unknown_cmd", fields[0])))
	}
	return false, nil
}

func (l *Loop) send(ctx context.Context, text string) {
	c := l.Controller
	if c.Screen() != navigator.ScreenChat {
		fmt.Fprintln(l.Out, paint(l.Color, ansiYellow, c.T("repl.not_in_chat")))
		return
	}
	l.markUserMessages()
	fmt.Fprintln(l.Out, paint(l.Color, ansiDim, c.T("chat.typing")+"..."))
	if err := c.Send(ctx, text); err != nil {
		if errors.Is(err, controller.ErrBusy) {
			fmt.Fprintln(l.Out, paint(l.Color, ansiYellow, c.T("chat.busy")))
			return
		}
		l.printErr(err)
		return
	}
	l.printNew()
}

// login prompts for missing credentials. From welcome it first moves to the
// login screen; from the signup screen it is refused.
func (l *Loop) login(ctx context.Context) error {
	c := l.Controller
	if c.Screen() == navigator.ScreenWelcome {
		if err := c.ChooseLogin(); err != nil {
			return err
		}
	}
	if c.Screen() != navigator.ScreenLogin {
		return fmt.Errorf("%w: /login from %s", navigator.ErrInvalidTransition, c.Screen())
	}
	email, err := l.In.ReadLine(c.T("auth.email") + ": ")
	if err != nil {
		return err
	}
	password, err := l.In.ReadPassword(c.T("auth.password") + ": ")
	if err != nil {
		return err
	}
	if strings.TrimSpace(email) == "" || password == "" {
		fmt.Fprintln(l.Out, paint(l.Color, ansiYellow, c.T("auth.fields_required")))
		return nil
	}
	fmt.Fprintln(l.Out, paint(l.Color, ansiDim, c.T("login.pending")))
	if err := c.Login(ctx, email, password); err != nil {
		return err
	}
	return l.afterAuth()
}

func (l *Loop) signup(ctx context.Context) error {
	c := l.Controller
	if c.Screen() == navigator.ScreenWelcome {
		if err := c.ChooseSignup(); err != nil {
			return err
		}
	}
	if c.Screen() != navigator.ScreenSignup {
		return fmt.Errorf("%w: /signup from %s", navigator.ErrInvalidTransition, c.Screen())
	}
	name, err := l.In.ReadLine(c.T("auth.name") + ": ")
	if err != nil {
		return err
	}
	email, err := l.In.ReadLine(c.T("auth.email") + ": ")
	if err != nil {
		return err
	}
	password, err := l.In.ReadPassword(c.T("auth.password") + ": ")
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		fmt.Fprintln(l.Out, paint(l.Color, ansiYellow, c.T("auth.fields_required")))
		return nil
	}
	fmt.Fprintln(l.Out, paint(l.Color, ansiDim, c.T("signup.pending")))
	if err := c.Signup(ctx, name, email, password); err != nil {
		return err
	}
	return l.afterAuth()
}

func (l *Loop) afterAuth() error {
	snap := l.Controller.Snapshot()
	if snap.Screen != navigator.ScreenChat {
		if snap.Auth.Kind == controller.AuthError {
			fmt.Fprintln(l.Out, paint(l.Color, ansiRed, snap.Auth.Text))
		}
		return nil
	}
	l.printed = make(map[string]bool)
	l.printNew()
	return nil
}

func (l *Loop) history(ctx context.Context) error {
	c := l.Controller
	if err := c.OpenHistory(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.CloseHistory(); err != nil {
			l.Logger.Debug("close history", zap.Error(err))
		}
	}()
	l.printHistory(c.Snapshot().History)
	return nil
}

// clear opens the overlay silently, asks y/N and reports the outcome.
func (l *Loop) clear(ctx context.Context) error {
	c := l.Controller
	if err := c.OpenHistory(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.CloseHistory(); err != nil {
			l.Logger.Debug("close history", zap.Error(err))
		}
	}()
	confirm := controller.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		answer, err := l.In.ReadLine(prompt + " " + c.T("repl.yes_no") + " ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes", "نعم", "是":
			return true, nil
		default:
			return false, nil
		}
	})
	if err := c.ClearHistory(ctx, confirm); err != nil {
		return err
	}
	view := c.Snapshot().History
	if view.Notice != "" {
		fmt.Fprintln(l.Out, paint(l.Color, ansiRed, view.Notice))
		return nil
	}
	if view.State == controller.HistoryEmpty {
		fmt.Fprintln(l.Out, paint(l.Color, ansiDim, c.T("history.empty")))
	}
	return nil
}

func (l *Loop) printHistory(view controller.HistoryView) {
	c := l.Controller
	fmt.Fprintln(l.Out, paint(l.Color, ansiBold, c.T("history.title")))
	if view.Notice != "" {
		fmt.Fprintln(l.Out, paint(l.Color, ansiRed, view.Notice))
	}
	switch view.State {
	case controller.HistoryLoading:
		fmt.Fprintln(l.Out, paint(l.Color, ansiDim, c.T("history.loading")))
	case controller.HistoryEmpty:
		fmt.Fprintln(l.Out, paint(l.Color, ansiDim, c.T("history.empty")))
	case controller.HistoryFailed:
		fmt.Fprintln(l.Out, paint(l.Color, ansiRed, c.T("history.failed")))
	case controller.HistoryEntries:
		for i, e := range view.Entries {
			prefix := fmt.Sprintf("%2d. ", i+1)
			width := 0
			if l.Width > 0 {
				width = l.Width - len(prefix)
			}
			fmt.Fprintln(l.Out, prefix+truncateCells(e.Problem, width))
			meta := "[" + e.Category + "] " + c.T("chat.confidence", e.Confidence)
			if e.CreatedAt != "" {
				meta += " · " + e.CreatedAt
			}
			fmt.Fprintln(l.Out, "    "+paint(l.Color, ansiDim, meta))
			for _, s := range e.Solutions {
				fmt.Fprintln(l.Out, "    - "+s)
			}
		}
	}
}

func (l *Loop) status(ctx context.Context) {
	c := l.Controller
	backend := c.CheckHealth(ctx)
	snap := c.Snapshot()
	if snap.Session != nil {
		fmt.Fprintln(l.Out, c.T("status.signed_in_as", snap.Session.Name))
	} else {
		fmt.Fprintln(l.Out, c.T("status.anonymous"))
	}
	switch {
	case !backend.Reachable:
		fmt.Fprintln(l.Out, paint(l.Color, ansiRed, c.T("status.backend_down")))
	case !backend.Health.Model:
		fmt.Fprintln(l.Out, paint(l.Color, ansiYellow, c.T("status.model_unavailable")))
	default:
		line := c.T("status.backend_ok")
		if backend.Health.Accuracy > 0 {
			line += fmt.Sprintf(" (accuracy %.2f, %d samples)", backend.Health.Accuracy, backend.Health.NumSamples)
		}
		fmt.Fprintln(l.Out, paint(l.Color, ansiGreen, line))
	}
}

// markUserMessages marks everything already in the log as printed so the
// echo of the line just typed is not repeated.
func (l *Loop) markUserMessages() {
	for _, m := range l.Controller.Snapshot().Messages {
		if m.Origin == conversation.OriginUser {
			l.printed[m.ID] = true
		}
	}
}

// printNew prints final bot messages not shown yet, in log order.
func (l *Loop) printNew() {
	for _, m := range l.Controller.Snapshot().Messages {
		if l.printed[m.ID] || m.IsPending() {
			continue
		}
		l.printed[m.ID] = true
		if m.Origin == conversation.OriginUser {
			continue
		}
		l.printBot(m)
	}
}

func (l *Loop) printBot(m conversation.Message) {
	c := l.Controller
	label := paint(l.Color, ansiGreen, c.T("chat.bot")+":")
	if m.Category != "" {
		label += " " + paint(l.Color, ansiBold, "["+m.Category+"]")
		label += " " + paint(l.Color, ansiDim, c.T("chat.confidence", m.Confidence))
	}
	fmt.Fprintln(l.Out, label)
	fmt.Fprintln(l.Out, indent(m.Text, "  "))
}

func (l *Loop) printErr(err error) {
	l.Logger.Debug("repl command failed", zap.Error(err))
	fmt.Fprintln(l.Out, paint(l.Color, ansiRed, "error: "+err.Error()))
}
