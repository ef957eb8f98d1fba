// Package conversation holds the ordered, client-local transcript.
package conversation

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Origin identifies who produced a message.
type Origin string

const (
	OriginUser Origin = "user"
	OriginBot  Origin = "bot"
)

// Status marks a message as final or as the awaiting-answer placeholder.
type Status string

const (
	StatusFinal   Status = "final"
	StatusPending Status = "pending"
)

// PendingID correlates a placeholder with the exchange that will resolve it.
type PendingID string

// ErrPendingExists is returned when a second placeholder is requested.
var ErrPendingExists = errors.New("conversation: a pending message already exists")

// Message is one transcript entry.
type Message struct {
	ID         string
	Text       string
	Origin     Origin
	Category   string
	Confidence float64
	Status     Status
	PendingID  PendingID
}

// IsPending reports whether m is the awaiting-answer placeholder.
func (m Message) IsPending() bool {
	return m.Status == StatusPending
}

// Log is append-only: entries are never reordered or deduplicated. The only
// removals are Resolve (placeholder swapped for its final answer) and Reset.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

func NewLog() *Log {
	return &Log{}
}

// AppendUser appends a final user message.
func (l *Log) AppendUser(text string) Message {
	return l.append(Message{Text: text, Origin: OriginUser, Status: StatusFinal})
}

// AppendBot appends a final bot message.
func (l *Log) AppendBot(text, category string, confidence float64) Message {
	return l.append(Message{
		Text:       text,
		Origin:     OriginBot,
		Category:   category,
		Confidence: confidence,
		Status:     StatusFinal,
	})
}

func (l *Log) append(m Message) Message {
	m.ID = uuid.NewString()
	l.mu.Lock()
	l.messages = append(l.messages, m)
	l.mu.Unlock()
	return m
}

// AppendPending appends the bot placeholder and returns its id. At most one
// placeholder exists at a time.
func (l *Log) AppendPending() (PendingID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m.IsPending() {
			return "", ErrPendingExists
		}
	}
	id := PendingID(uuid.NewString())
	l.messages = append(l.messages, Message{
		ID:        string(id),
		Origin:    OriginBot,
		Status:    StatusPending,
		PendingID: id,
	})
	return id, nil
}

// Resolve removes the placeholder identified by id and appends final in its
// stead, in one step. It reports false, and leaves the log untouched, when no
// such placeholder exists (for example after a Reset).
func (l *Log) Resolve(id PendingID, final Message) (Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := -1
	for i, m := range l.messages {
		if m.IsPending() && m.PendingID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Message{}, false
	}
	l.messages = append(l.messages[:idx], l.messages[idx+1:]...)

	final.ID = uuid.NewString()
	final.Status = StatusFinal
	final.PendingID = ""
	if final.Origin == "" {
		final.Origin = OriginBot
	}
	l.messages = append(l.messages, final)
	return final, true
}

// Reset replaces the transcript with the given messages (possibly none).
func (l *Log) Reset(initial ...Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0:0]
	for _, m := range initial {
		m.ID = uuid.NewString()
		if m.Status == "" {
			m.Status = StatusFinal
		}
		l.messages = append(l.messages, m)
	}
}

// Messages returns a snapshot in display order.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Message(nil), l.messages...)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// PendingCount returns the number of placeholders (0 or 1).
func (l *Log) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, m := range l.messages {
		if m.IsPending() {
			n++
		}
	}
	return n
}
