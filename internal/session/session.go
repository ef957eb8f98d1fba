// Package session owns the authenticated identity and its durable copy.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"riskchat/internal/storage"

	"go.uber.org/zap"
)

// DefaultKey is the fixed storage key holding the persisted session.
const DefaultKey = "user"

// Session is the identity issued by the backend on login or signup.
type Session struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

// Valid reports whether s carries a usable token.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Store keeps the in-memory current session and mirrors it into durable
// storage. Persist and Clear hold the same lock as the in-memory assignment,
// so readers never observe memory and storage disagreeing mid-update.
type Store struct {
	mu      sync.RWMutex
	kv      storage.Store
	key     string
	logger  *zap.Logger
	current *Session
}

// NewStore builds a Store over kv. An empty key falls back to DefaultKey.
func NewStore(kv storage.Store, key string, logger *zap.Logger) *Store {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, key: key, logger: logger}
}

// Restore reads the durable key and makes it the current session. Missing,
// unreadable or malformed data yields nil without an error.
func (s *Store) Restore() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("read stored session failed", zap.Error(err))
		}
		s.current = nil
		return nil
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warn("stored session is malformed, ignoring", zap.Error(err))
		s.current = nil
		return nil
	}
	if !sess.Valid() {
		s.logger.Warn("stored session has no token, ignoring")
		s.current = nil
		return nil
	}
	s.current = &sess
	return clone(s.current)
}

// Persist overwrites the durable key with sess and makes it current. Memory is
// only updated once the write succeeded.
func (s *Store) Persist(sess Session) error {
	if !sess.Valid() {
		return fmt.Errorf("persist session: token is empty")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(s.key, string(data)); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.current = &sess
	return nil
}

// Clear removes the durable key and drops the in-memory session. The
// in-memory session is dropped even when the delete fails.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	if err := s.kv.Delete(s.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns a copy of the in-memory session, or nil.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.current)
}

// Token returns the current token or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

func clone(s *Session) *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
