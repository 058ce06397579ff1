package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"inkwise/internal/app"
	"inkwise/internal/util"
	"inkwise/pkg/auth"
	"inkwise/pkg/domain"
)

const (
	sessionCookieName = "inkwise_session"
	defaultStyle      = "article"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App       *app.App
	CookieTTL time.Duration
}

// Server exposes the HTTP API.
type Server struct {
	app       *app.App
	cookieTTL time.Duration
	mux       *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:       cfg.App,
		cookieTTL: cfg.CookieTTL,
		mux:       http.NewServeMux(),
	}
	if s.cookieTTL <= 0 {
		s.cookieTTL = 24 * time.Hour
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("inkwise", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/signup", s.handleSignup)
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/logout", s.handleLogout)
	s.mux.Handle("/api/user", s.authenticated(s.handleUser))
	s.mux.Handle("/api/chats", s.authenticated(s.handleChats))
	s.mux.Handle("/api/chats/", s.authenticated(s.handleChatByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := sessionToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

// auth handlers
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	_, token, err := s.app.SignUp(req.Name, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, redirectResponse{Message: "Account created!", Redirect: "/chatbot"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	_, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, redirectResponse{Message: "Welcome back!", Redirect: "/chatbot"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if token, ok := sessionToken(r); ok {
		if err := s.app.Logout(token); err != nil {
			slog.Warn("logout failed", "request_id", util.RequestIDFromRequest(r), "error", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleUser(w http.ResponseWriter, _ *http.Request, user domain.User) {
	writeJSON(w, http.StatusOK, userResponse{Name: user.Name, Email: user.Email})
}

// chat handlers
func (s *Server) handleChats(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		chats, err := s.app.ListChats(user.ID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		out := make([]chatResponse, 0, len(chats))
		for _, c := range chats {
			out = append(out, toChatResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		chat, err := s.app.CreateChat(user.ID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toChatResponse(chat))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleChatByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/chats/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleChat(w, r, user, parts[0])
	case len(parts) == 2 && parts[1] == "messages":
		s.handleMessages(w, r, user, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, user domain.User, chatID string) {
	switch r.Method {
	case http.MethodPut:
		var req renameRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.app.RenameChat(user.ID, chatID, req.Title); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Chat renamed"})
	case http.MethodDelete:
		if err := s.app.DeleteChat(user.ID, chatID); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, user domain.User, chatID string) {
	switch r.Method {
	case http.MethodGet:
		msgs, title, err := s.app.ChatMessages(user.ID, chatID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		out := make([]messageResponse, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, toMessageResponse(m))
		}
		writeJSON(w, http.StatusOK, messagesResponse{Messages: out, Title: title})
	case http.MethodPost:
		var req sendRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		style := req.Style
		if style == "" {
			style = defaultStyle
		}
		ex, err := s.app.SendMessage(r.Context(), user.ID, chatID, req.Message, style)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, exchangeResponse{
			UserMessage:      toMessageResponse(ex.UserMessage),
			AssistantMessage: toMessageResponse(ex.AssistantMessage),
			Title:            ex.Title,
		})
	default:
		methodNotAllowed(w)
	}
}

// session cookies
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cookieTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken resolves the caller's session from the cookie, falling
// back to a bearer token for non-browser clients.
func sessionToken(r *http.Request) (string, bool) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// wire types
type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type redirectResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

type userResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type chatResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type messageResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type messagesResponse struct {
	Messages []messageResponse `json:"messages"`
	Title    string            `json:"title"`
}

type sendRequest struct {
	Message string `json:"message"`
	Style   string `json:"style"`
}

type exchangeResponse struct {
	UserMessage      messageResponse `json:"user_message"`
	AssistantMessage messageResponse `json:"assistant_message"`
	Title            string          `json:"title"`
}

func toChatResponse(c domain.Chat) chatResponse {
	return chatResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// helpers
func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrAllFieldsRequired),
		errors.Is(err, app.ErrInvalidEmail),
		errors.Is(err, app.ErrPasswordMismatch),
		errors.Is(err, app.ErrEmailAndPasswordRequired),
		errors.Is(err, app.ErrMessageRequired),
		errors.Is(err, app.ErrTitleRequired),
		errors.Is(err, auth.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrChatNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "request_id", util.RequestIDFromRequest(r), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
