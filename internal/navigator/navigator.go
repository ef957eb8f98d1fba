// Package navigator is the finite-state controller selecting the visible screen.
package navigator

import (
	"errors"
	"fmt"
	"sync"
)

type Screen int

const (
	ScreenWelcome Screen = iota
	ScreenLogin
	ScreenSignup
	ScreenChat
)

func (s Screen) String() string {
	switch s {
	case ScreenWelcome:
		return "welcome"
	case ScreenLogin:
		return "login"
	case ScreenSignup:
		return "signup"
	case ScreenChat:
		return "chat"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}

// ErrInvalidTransition is returned for any move the state machine does not allow.
var ErrInvalidTransition = errors.New("navigator: invalid transition")

// Navigator tracks the primary screen plus the history overlay flag, which
// layers over chat instead of replacing it.
type Navigator struct {
	mu          sync.RWMutex
	screen      Screen
	historyOpen bool
}

// New returns a navigator in its startup state: chat when a session was
// restored, welcome otherwise.
func New(authenticated bool) *Navigator {
	n := &Navigator{screen: ScreenWelcome}
	if authenticated {
		n.screen = ScreenChat
	}
	return n
}

func (n *Navigator) Screen() Screen {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.screen
}

func (n *Navigator) HistoryOpen() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.historyOpen
}

// ChooseLogin moves welcome → login.
func (n *Navigator) ChooseLogin() error {
	return n.move(ScreenLogin, ScreenWelcome)
}

// ChooseSignup moves welcome → signup.
func (n *Navigator) ChooseSignup() error {
	return n.move(ScreenSignup, ScreenWelcome)
}

// Authenticated moves login|signup → chat after a successful auth response.
func (n *Navigator) Authenticated() error {
	return n.move(ScreenChat, ScreenLogin, ScreenSignup)
}

// LoggedOut moves chat → welcome and drops the overlay.
func (n *Navigator) LoggedOut() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.screen != ScreenChat {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, n.screen, ScreenWelcome)
	}
	n.screen = ScreenWelcome
	n.historyOpen = false
	return nil
}

// OpenHistory raises the overlay over chat.
func (n *Navigator) OpenHistory() error {
	return n.setOverlay(true)
}

// CloseHistory lowers the overlay.
func (n *Navigator) CloseHistory() error {
	return n.setOverlay(false)
}

func (n *Navigator) setOverlay(open bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.screen != ScreenChat {
		return fmt.Errorf("%w: history overlay outside chat (%s)", ErrInvalidTransition, n.screen)
	}
	n.historyOpen = open
	return nil
}

func (n *Navigator) move(to Screen, from ...Screen) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, f := range from {
		if n.screen == f {
			n.screen = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, n.screen, to)
}
