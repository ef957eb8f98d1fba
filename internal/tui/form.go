package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"riskchat/internal/navigator"
)

// authForm 登录/注册表单
// authForm is the login or signup form; signup adds a name field first.
type authForm struct {
	screen navigator.Screen
	labels []string
	fields []textinput.Model
	focus  int
}

func newAuthForm(screen navigator.Screen, t func(string, ...any) string) authForm {
	f := authForm{screen: screen}
	if screen == navigator.ScreenSignup {
		f.add(t("auth.name"), false)
	}
	f.add(t("auth.email"), false)
	f.add(t("auth.password"), true)
	f.fields[0].Focus()
	return f
}

func (f *authForm) add(label string, secret bool) {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 256
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	f.labels = append(f.labels, label)
	f.fields = append(f.fields, in)
}

func (f *authForm) move(delta int) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	f.fields[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	return f.fields[f.focus].Focus()
}

func (f authForm) onLastField() bool {
	return f.focus == len(f.fields)-1
}

func (f authForm) value(i int) string {
	if i < 0 || i >= len(f.fields) {
		return ""
	}
	return f.fields[i].Value()
}

// credentials returns name (empty for login), email and password.
func (f authForm) credentials() (name, email, password string) {
	if f.screen == navigator.ScreenSignup {
		return strings.TrimSpace(f.value(0)), strings.TrimSpace(f.value(1)), f.value(2)
	}
	return "", strings.TrimSpace(f.value(0)), f.value(1)
}

// complete reports whether every field has a value; the password is not trimmed.
func (f authForm) complete() bool {
	name, email, password := f.credentials()
	if f.screen == navigator.ScreenSignup && name == "" {
		return false
	}
	return email != "" && password != ""
}

func (f authForm) update(msg tea.Msg) (authForm, tea.Cmd) {
	if len(f.fields) == 0 {
		return f, nil
	}
	var cmd tea.Cmd
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return f, cmd
}

func (f authForm) view(theme Theme) string {
	rows := make([]string, 0, len(f.fields))
	for i, in := range f.fields {
		style := theme.BlurredField
		marker := "  "
		if i == f.focus {
			style = theme.FocusedField
			marker = "> "
		}
		rows = append(rows, style.Render(marker+f.labels[i]+": ")+in.View())
	}
	return strings.Join(rows, "\n")
}
