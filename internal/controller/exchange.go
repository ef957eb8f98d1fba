package controller

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"riskchat/internal/conversation"
	"riskchat/internal/navigator"
	"riskchat/internal/transport"
)

// Send 发送一条消息并等待回复
// Send runs one chat exchange: optimistic user echo, a single pending
// placeholder, the /chat call (bearer attached when signed in), then the
// placeholder is swapped for the answer or a failure text. Whitespace-only
// input is a silent no-op. A second Send while one is outstanding returns
// ErrBusy and leaves the log untouched. The gate belongs to the placeholder:
// once a logout or a new sign-in resets the log, a new exchange may start
// while the old request is still out.
func (c *Controller) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	if s := c.nav.Screen(); s != navigator.ScreenChat {
		c.mu.Unlock()
		return fmt.Errorf("%w: send from %s", navigator.ErrInvalidTransition, s)
	}
	if c.chatPending != "" {
		c.mu.Unlock()
		return ErrBusy
	}
	c.log.AppendUser(text)
	id, err := c.log.AppendPending()
	if err != nil {
		c.mu.Unlock()
		c.notify(true)
		return fmt.Errorf("append placeholder: %w", err)
	}
	c.chatPending = id
	token := c.sessions.Token()
	c.mu.Unlock()
	c.notify(true)

	res, callErr := c.api.Chat(ctx, token, text)
	final := c.chatOutcome(res, callErr)

	c.mu.Lock()
	if c.chatPending == id {
		c.chatPending = ""
	}
	_, applied := c.log.Resolve(id, final)
	c.mu.Unlock()
	if !applied {
		c.logger.Debug("dropped stale chat resolution", zap.String("pending_id", string(id)))
	}
	c.notify(true)
	return nil
}

func (c *Controller) chatOutcome(res transport.ChatResult, err error) conversation.Message {
	msg := conversation.Message{Origin: conversation.OriginBot}
	switch {
	case err != nil:
		c.logger.Warn("chat request failed", zap.Error(err))
		msg.Text = c.tr.T("chat.connect_error")
	case !res.Success:
		c.logger.Info("chat rejected", zap.String("message", res.Message))
		msg.Text = firstNonEmpty(res.Message, c.tr.T("chat.error"))
	default:
		msg.Text = res.Answer
		msg.Category = res.Category
		msg.Confidence = res.Confidence
	}
	return msg
}
