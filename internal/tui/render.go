package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"riskchat/internal/controller"
	"riskchat/internal/conversation"
	"riskchat/internal/transport"
)

// RenderMarkdown 使用 Glamour 渲染 markdown 文本
// RenderMarkdown renders markdown text using Glamour
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// renderer 缓存已渲染的机器人回复（按消息 ID 与宽度）
// renderer caches rendered bot answers by message id and width; a log entry
// never changes once final, so the cache only grows until Reset.
type renderer struct {
	theme Theme
	t     func(key string, args ...any) string
	rtl   bool
	cache map[string]string
	width int
}

func newRenderer(theme Theme, t func(string, ...any) string, rtl bool) *renderer {
	return &renderer{theme: theme, t: t, rtl: rtl, cache: make(map[string]string)}
}

func (r *renderer) setWidth(width int) {
	if width != r.width {
		r.width = width
		r.cache = make(map[string]string)
	}
}

// Conversation renders the whole log. spinnerFrame is shown for the pending
// placeholder.
func (r *renderer) Conversation(msgs []conversation.Message, spinnerFrame string) string {
	blocks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		blocks = append(blocks, r.message(m, spinnerFrame))
	}
	return strings.Join(blocks, "\n\n")
}

func (r *renderer) message(m conversation.Message, spinnerFrame string) string {
	switch {
	case m.IsPending():
		return r.align(r.theme.BotLabel.Render("🤖 "+r.t("chat.bot")) + "\n" +
			r.theme.PendingStyle.Render(spinnerFrame+" "+r.t("chat.typing")))
	case m.Origin == conversation.OriginUser:
		return r.align(r.theme.UserLabel.Render("👤 "+r.t("chat.you")) + "\n" + m.Text)
	}

	header := r.theme.BotLabel.Render("🤖 " + r.t("chat.bot"))
	if m.Category != "" {
		header += " " + r.theme.BadgeStyle.Render(m.Category)
	}
	if m.Confidence > 0 {
		header += " " + r.theme.MutedStyle.Render(r.t("chat.confidence", m.Confidence))
	}
	body, ok := r.cache[m.ID]
	if !ok {
		body = RenderMarkdown(m.Text, r.width)
		if body == "" {
			body = m.Text
		}
		r.cache[m.ID] = body
	}
	return r.align(header + "\n" + body)
}

func (r *renderer) align(block string) string {
	if !r.rtl || r.width <= 0 {
		return block
	}
	return lipgloss.NewStyle().Width(r.width).Align(lipgloss.Right).Render(block)
}

// History renders the overlay body for the given view.
func (r *renderer) History(view controller.HistoryView, spinnerFrame string) string {
	var b strings.Builder
	if view.Notice != "" {
		b.WriteString(r.theme.ErrorStyle.Render(view.Notice))
		b.WriteString("\n\n")
	}
	if view.Clearing {
		b.WriteString(r.theme.PendingStyle.Render(spinnerFrame + " " + r.t("history.loading")))
		b.WriteString("\n\n")
	}
	switch view.State {
	case controller.HistoryLoading:
		b.WriteString(r.theme.PendingStyle.Render(spinnerFrame + " " + r.t("history.loading")))
	case controller.HistoryEmpty:
		b.WriteString(r.theme.MutedStyle.Render(r.t("history.empty")))
	case controller.HistoryFailed:
		b.WriteString(r.theme.ErrorStyle.Render(r.t("history.failed")))
	case controller.HistoryEntries:
		for i, e := range view.Entries {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(r.historyEntry(i+1, e))
		}
	}
	return b.String()
}

func (r *renderer) historyEntry(n int, e transport.HistoryEntry) string {
	lines := []string{fmt.Sprintf("%d. %s", n, e.Problem)}
	meta := r.theme.BadgeStyle.Render(e.Category)
	if e.Confidence > 0 {
		meta += " " + r.theme.MutedStyle.Render(r.t("chat.confidence", e.Confidence))
	}
	if e.CreatedAt != "" {
		meta += " " + r.theme.MutedStyle.Render(e.CreatedAt)
	}
	lines = append(lines, "   "+meta)
	if len(e.Solutions) > 0 {
		lines = append(lines, "   "+r.theme.TitleStyle.Render(r.t("history.solutions")))
		for _, s := range e.Solutions {
			lines = append(lines, "   • "+s)
		}
	}
	return r.align(strings.Join(lines, "\n"))
}
