// Package stubserver is an in-memory implementation of the backend /api
// contract, used for local development and HTTP-level tests.
package stubserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type user struct {
	Name         string
	Email        string
	PasswordHash string
}

// Problem is one classified problem kept for /history.
type Problem struct {
	Problem    string   `json:"problem"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Solutions  []string `json:"solutions,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

// Server 内存版后端
// Server keeps users, tokens and per-user history in memory.
type Server struct {
	mu       sync.Mutex
	users    map[string]*user // by email
	tokens   map[string]string
	problems map[string][]Problem // by email
	logger   *zap.Logger
	now      func() time.Time
}

func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		users:    make(map[string]*user),
		tokens:   make(map[string]string),
		problems: make(map[string][]Problem),
		logger:   logger,
		now:      time.Now,
	}
}

// Handler wires the /api routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Post("/signup", s.handleSignup)
		api.Post("/login", s.handleLogin)
		api.Post("/chat", s.handleChat)
		api.Get("/health", s.handleHealth)

		api.Group(func(authed chi.Router) {
			authed.Use(s.requireToken)
			authed.Get("/history", s.handleHistory)
			authed.Post("/clear-history", s.handleClearHistory)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "طلب غير صالح")
		return
	}
	email := normalizeEmail(req.Email)
	if strings.TrimSpace(req.Name) == "" || email == "" || req.Password == "" {
		respondFailure(w, http.StatusBadRequest, "جميع الحقول مطلوبة")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.logger.Info("signup rejected", zap.Error(err))
		respondFailure(w, http.StatusBadRequest, "كلمة المرور غير صالحة")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		respondFailure(w, http.StatusBadRequest, "البريد مسجل مسبقاً")
		return
	}
	u := &user{Name: strings.TrimSpace(req.Name), Email: email, PasswordHash: hash}
	s.users[email] = u
	token := s.issueToken(email)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "token": token, "name": u.Name})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "طلب غير صالح")
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		respondFailure(w, http.StatusBadRequest, "البريد وكلمة المرور مطلوبان")
		return
	}

	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()
	if !ok || !checkPassword(u.PasswordHash, req.Password) {
		respondFailure(w, http.StatusUnauthorized, "بيانات الدخول غير صحيحة")
		return
	}
	s.mu.Lock()
	token := s.issueToken(email)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "token": token, "name": u.Name})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondFailure(w, http.StatusBadRequest, "طلب غير صالح")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		respondFailure(w, http.StatusBadRequest, "الرسالة مطلوبة")
		return
	}

	c := Classify(message)
	if email, ok := s.lookupToken(bearerToken(r)); ok {
		s.mu.Lock()
		s.problems[email] = append(s.problems[email], Problem{
			Problem:    message,
			Category:   c.Category,
			Confidence: c.Confidence,
			Solutions:  append([]string(nil), c.Info.Solutions...),
			CreatedAt:  s.now().UTC().Format(time.RFC3339),
		})
		s.mu.Unlock()
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"answer":     c.Answer(),
		"category":   c.Category,
		"confidence": c.Confidence,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	email := emailFromContext(r.Context())
	s.mu.Lock()
	problems := append([]Problem{}, s.problems[email]...)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "problems": problems})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	email := emailFromContext(r.Context())
	s.mu.Lock()
	delete(s.problems, email)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "تم مسح السجل"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"model":       true,
		"accuracy":    0,
		"num_samples": 0,
		"categories":  CategoryNames,
	})
}

// issueToken must be called with s.mu held.
func (s *Server) issueToken(email string) string {
	token := uuid.NewString()
	s.tokens[token] = email
	return token
}

func (s *Server) lookupToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.tokens[token]
	return email, ok
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
