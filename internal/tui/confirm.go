package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

var errNoProgram = errors.New("tui: confirm prompt without a running program")

// ConfirmRequestMsg 请求用户确认（y/n 模态框）
// ConfirmRequestMsg asks the model to show the yes/no modal; the answer goes
// to Reply exactly once.
type ConfirmRequestMsg struct {
	Prompt string
	Reply  chan<- bool
}

// promptBridge 让后台 goroutine 中的控制器动作向 UI 请求确认
// promptBridge lets a controller action running in a command goroutine ask
// the UI for confirmation and block until the user answers.
type promptBridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (b *promptBridge) setSend(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *promptBridge) Confirm(ctx context.Context, prompt string) (bool, error) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send == nil {
		return false, errNoProgram
	}
	reply := make(chan bool, 1)
	send(ConfirmRequestMsg{Prompt: prompt, Reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
