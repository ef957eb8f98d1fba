package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"riskchat/internal/navigator"
)

// OpenHistory 打开历史浮层并拉取服务端记录
// OpenHistory raises the overlay in the loading state and fetches the
// server-side history. Entries are shown in the order received. With no
// session the overlay stays closed and no request is made. Reopening while a
// fetch of the same session is outstanding shows loading and lets that fetch
// fill the overlay; reopening during a clear waits for the clear's outcome.
func (c *Controller) OpenHistory(ctx context.Context) error {
	c.mu.Lock()
	if s := c.nav.Screen(); s != navigator.ScreenChat {
		c.mu.Unlock()
		return fmt.Errorf("%w: history from %s", navigator.ErrInvalidTransition, s)
	}
	token := c.sessions.Token()
	if token == "" {
		c.mu.Unlock()
		return ErrNoSession
	}
	if err := c.nav.OpenHistory(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.history = HistoryView{Open: true, State: HistoryLoading, Clearing: c.historyOp == historyClearing}
	if c.historyOp != historyIdle {
		c.mu.Unlock()
		c.notify(false)
		return nil
	}
	c.historyOp = historyFetching
	gen := c.historyGen
	c.mu.Unlock()
	c.notify(false)

	res, err := c.api.History(ctx, token)

	c.mu.Lock()
	if c.historyGen != gen {
		// signed out (or in as someone else) meanwhile
		c.mu.Unlock()
		return nil
	}
	c.historyOp = historyIdle
	switch {
	case err != nil:
		c.logger.Warn("history request failed", zap.Error(err))
		c.history.State = HistoryFailed
		c.history.Entries = nil
	case !res.Success:
		c.logger.Info("history rejected", zap.String("message", res.Message))
		c.history.State = HistoryFailed
		c.history.Entries = nil
	case len(res.Entries) == 0:
		c.history.State = HistoryEmpty
		c.history.Entries = nil
	default:
		c.history.State = HistoryEntries
		c.history.Entries = res.Entries
	}
	c.mu.Unlock()
	c.notify(false)
	return nil
}

// CloseHistory lowers the overlay. No network action.
func (c *Controller) CloseHistory() error {
	c.mu.Lock()
	err := c.nav.CloseHistory()
	if err == nil {
		c.history.Open = false
	}
	c.mu.Unlock()
	if err == nil {
		c.notify(false)
	}
	return err
}

// ClearHistory 经确认后清空服务端历史
// ClearHistory asks confirm first and issues the clear request only on a yes.
// A decline or a confirmer error leaves everything as it was. Any server
// reply, success or not, resets the overlay to empty; a transport failure
// keeps the list and sets a notice instead, or marks the overlay failed when
// it was reopened meanwhile and holds no list.
func (c *Controller) ClearHistory(ctx context.Context, confirm Confirmer) error {
	c.mu.Lock()
	if !c.nav.HistoryOpen() {
		c.mu.Unlock()
		return fmt.Errorf("%w: clear history with overlay closed", navigator.ErrInvalidTransition)
	}
	if c.sessions.Token() == "" {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.historyOp != historyIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	if confirm == nil {
		return nil
	}
	ok, err := confirm.Confirm(ctx, c.tr.T("history.clear_confirm"))
	if err != nil {
		return fmt.Errorf("confirm clear history: %w", err)
	}
	if !ok {
		return nil
	}

	c.mu.Lock()
	token := c.sessions.Token()
	if token == "" {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.historyOp != historyIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.historyOp = historyClearing
	gen := c.historyGen
	c.history.Clearing = true
	c.history.Notice = ""
	c.mu.Unlock()
	c.notify(false)

	env, err := c.api.ClearHistory(ctx, token)

	c.mu.Lock()
	if c.historyGen != gen {
		c.mu.Unlock()
		return nil
	}
	c.historyOp = historyIdle
	c.history.Clearing = false
	if err != nil {
		c.logger.Warn("clear history failed", zap.Error(err))
		c.history.Notice = c.tr.T("history.clear_failed")
		if c.history.State == HistoryLoading {
			// reopened while clearing; nothing was fetched to keep
			c.history.State = HistoryFailed
		}
	} else {
		if !env.Success {
			c.logger.Info("clear history rejected", zap.String("message", env.Message))
		}
		c.history.State = HistoryEmpty
		c.history.Entries = nil
	}
	c.mu.Unlock()
	c.notify(false)
	return nil
}
