package controller

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"riskchat/internal/navigator"
	"riskchat/internal/session"
	"riskchat/internal/transport"
)

// ChooseLogin moves welcome → login.
func (c *Controller) ChooseLogin() error {
	return c.choose(c.nav.ChooseLogin)
}

// ChooseSignup moves welcome → signup.
func (c *Controller) ChooseSignup() error {
	return c.choose(c.nav.ChooseSignup)
}

func (c *Controller) choose(move func() error) error {
	c.mu.Lock()
	err := move()
	if err == nil {
		c.auth = AuthStatus{}
	}
	c.mu.Unlock()
	if err == nil {
		c.notify(false)
	}
	return err
}

// Login 登录；空字段静默忽略
// Login authenticates with email and password. Empty fields are ignored
// without a request. Failures end up in the inline auth status.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	if err := c.beginAuth("login.pending"); err != nil {
		return err
	}
	res, err := c.api.Login(ctx, email, password)
	return c.finishAuth("login", res, err)
}

// Signup creates an account and signs in with it.
func (c *Controller) Signup(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil
	}
	if err := c.beginAuth("signup.pending"); err != nil {
		return err
	}
	res, err := c.api.Signup(ctx, name, email, password)
	return c.finishAuth("signup", res, err)
}

func (c *Controller) beginAuth(pendingKey string) error {
	c.mu.Lock()
	if err := c.requireAuthScreen(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.authInFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	c.authInFlight = true
	c.auth = AuthStatus{Text: c.tr.T(pendingKey), Kind: AuthPending}
	c.mu.Unlock()
	c.notify(false)
	return nil
}

func (c *Controller) requireAuthScreen() error {
	switch s := c.nav.Screen(); s {
	case navigator.ScreenLogin, navigator.ScreenSignup:
		return nil
	default:
		return fmt.Errorf("%w: auth from %s", navigator.ErrInvalidTransition, s)
	}
}

func (c *Controller) finishAuth(op string, res transport.AuthResult, callErr error) error {
	logger := c.logger.With(zap.String("op", op))

	c.mu.Lock()
	c.authInFlight = false
	var retErr error
	scroll := false
	switch {
	case callErr != nil:
		logger.Warn("auth request failed", zap.Error(callErr))
		c.auth = AuthStatus{Text: c.tr.T("auth.connect_error"), Kind: AuthError}
	case !res.Success || strings.TrimSpace(res.Token) == "":
		logger.Info("auth rejected", zap.String("message", res.Message))
		c.auth = AuthStatus{Text: firstNonEmpty(res.Message, c.tr.T(op+".failed")), Kind: AuthError}
	default:
		sess := session.Session{Token: res.Token, Name: res.Name}
		if err := c.sessions.Persist(sess); err != nil {
			logger.Error("persist session", zap.Error(err))
			c.auth = AuthStatus{Text: c.tr.T(op + ".failed"), Kind: AuthError}
			retErr = fmt.Errorf("%s: %w", op, err)
			break
		}
		if err := c.nav.Authenticated(); err != nil {
			logger.Warn("navigate after auth", zap.Error(err))
		}
		c.auth = AuthStatus{}
		c.history = HistoryView{}
		c.resetWithGreeting(res.Name)
		c.forgetInFlight()
		scroll = true
		logger.Info("authenticated", zap.String("name", res.Name))
	}
	c.mu.Unlock()
	c.notify(scroll)
	return retErr
}

// Logout 清除会话与对话日志并回到欢迎页
// Logout clears the session and the conversation log and returns to welcome.
// In-memory state is dropped even when deleting the stored copy fails; that
// error is returned.
func (c *Controller) Logout() error {
	c.mu.Lock()
	if err := c.nav.LoggedOut(); err != nil {
		c.mu.Unlock()
		return err
	}
	clearErr := c.sessions.Clear()
	c.log.Reset()
	c.auth = AuthStatus{}
	c.history = HistoryView{}
	c.forgetInFlight()
	c.mu.Unlock()

	if clearErr != nil {
		c.logger.Error("clear stored session", zap.Error(clearErr))
		clearErr = fmt.Errorf("logout: %w", clearErr)
	} else {
		c.logger.Info("logged out")
	}
	c.notify(true)
	return clearErr
}
