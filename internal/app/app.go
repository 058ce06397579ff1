package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"inkwise/internal/util"
	"inkwise/pkg/ai"
	"inkwise/pkg/auth"
	"inkwise/pkg/domain"
	"inkwise/pkg/store"
)

const defaultChatTitle = "New Chat"

// titleTokenLimit caps how many topic words feed a derived chat title.
const titleTokenLimit = 5

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL     string
	SessionStrategy string
	RedisAddr       string
	RedisPassword   string
	JWTSecret       string
	SessionTTL      time.Duration

	AIProvider      string
	GeminiAPIKey    string
	AIBaseURL       string
	AIAPIKey        string
	GenerationModel string

	// Test seams; constructed from the fields above when nil.
	Store    store.Store
	Sessions store.SessionStore
	Writer   *ai.Writer
}

// App is the core application service wiring together storage, sessions,
// and text generation.
type App struct {
	store    store.Store
	sessions store.SessionStore
	writer   *ai.Writer
}

// New constructs the application with database storage, session management,
// and the generation backend. A missing AI credential disables generation
// for the process lifetime instead of failing startup.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			slog.Warn("no database URL configured, using in-memory store")
			dataStore = store.NewMemoryStore()
		} else {
			var err error
			dataStore, err = store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		var err error
		sessionStore, err = newSessionStore(cfg)
		if err != nil {
			return nil, err
		}
	}

	writer := cfg.Writer
	if writer == nil {
		writer = newWriter(cfg)
	}

	return &App{
		store:    dataStore,
		sessions: sessionStore,
		writer:   writer,
	}, nil
}

func newSessionStore(cfg Config) (store.SessionStore, error) {
	strategy := strings.ToLower(strings.TrimSpace(cfg.SessionStrategy))
	switch strategy {
	case "", "memory":
		return store.NewMemorySessionStore(), nil
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redisAddr is required for redis session strategy")
		}
		return store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL), nil
	case "jwt":
		jwtStore, err := store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
		return jwtStore, nil
	default:
		return nil, fmt.Errorf("unknown session strategy: %s", strategy)
	}
}

func newWriter(cfg Config) *ai.Writer {
	provider := strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	if provider == "" {
		provider = "gemini"
	}
	model := strings.TrimSpace(cfg.GenerationModel)

	var gen ai.TextGenerator
	switch provider {
	case "gemini":
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey, model)
		if err == nil {
			gen = client
		}
	case "openai":
		if strings.TrimSpace(cfg.AIBaseURL) != "" && model != "" {
			gen = ai.NewOpenAIGenerator(cfg.AIBaseURL, cfg.AIAPIKey, model)
		}
	case "ollama":
		if model != "" {
			gen = ai.NewOllamaGenerator(cfg.AIBaseURL, model)
		}
	}
	if gen == nil {
		slog.Warn("AI generation backend not configured, responses disabled", "provider", provider)
	}
	return ai.NewWriter(gen)
}

// GenerationEnabled reports whether the AI backend is configured.
func (a *App) GenerationEnabled() bool {
	return a.writer.Enabled()
}

// SignUp registers a new user and issues a session token.
func (a *App) SignUp(name, email, password, confirm string) (domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return domain.User{}, "", ErrAllFieldsRequired
	}
	if !emailPattern.MatchString(email) {
		return domain.User{}, "", ErrInvalidEmail
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", err
	}
	if password != confirm {
		return domain.User{}, "", ErrPasswordMismatch
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           util.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		// Concurrent signup with the same email can slip past the
		// existence check and land on the unique index instead.
		if errors.Is(err, store.ErrEmailTaken) {
			return domain.User{}, "", ErrEmailAlreadyExists
		}
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, "", ErrEmailAndPasswordRequired
	}
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// Logout invalidates a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// CreateChat creates a new empty chat for the user.
func (a *App) CreateChat(userID string) (domain.Chat, error) {
	now := time.Now().UTC()
	chat := domain.Chat{
		ID:        util.NewID(),
		UserID:    userID,
		Title:     defaultChatTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateChat(chat); err != nil {
		return domain.Chat{}, fmt.Errorf("create chat: %w", err)
	}
	return chat, nil
}

// ListChats returns the user's chats, most recently updated first.
func (a *App) ListChats(userID string) ([]domain.Chat, error) {
	chats, err := a.store.ListChats(userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// RenameChat sets a new title on an owned chat.
func (a *App) RenameChat(userID, chatID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	ok, err := a.store.RenameChat(userID, chatID, title, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rename chat: %w", err)
	}
	if !ok {
		return ErrChatNotFound
	}
	return nil
}

// DeleteChat removes an owned chat and all its messages.
func (a *App) DeleteChat(userID, chatID string) error {
	ok, err := a.store.DeleteChat(userID, chatID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if !ok {
		return ErrChatNotFound
	}
	return nil
}

// ChatMessages returns an owned chat's messages in conversation order,
// along with its title.
func (a *App) ChatMessages(userID, chatID string) ([]domain.Message, string, error) {
	chat, ok, err := a.store.GetChat(userID, chatID)
	if err != nil {
		return nil, "", fmt.Errorf("load chat: %w", err)
	}
	if !ok {
		return nil, "", ErrChatNotFound
	}
	msgs, err := a.store.ListMessages(chat.ID)
	if err != nil {
		return nil, "", fmt.Errorf("list messages: %w", err)
	}
	return msgs, chat.Title, nil
}

// SendMessage performs one exchange: it stores the user's topic, asks the
// Writer for styled text, stores the assistant reply, and on a chat's first
// message derives the title from the topic. Generation failures become
// assistant message content, never a transport error.
func (a *App) SendMessage(ctx context.Context, userID, chatID, topic, styleID string) (domain.Exchange, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.Exchange{}, ErrMessageRequired
	}
	chat, ok, err := a.store.GetChat(userID, chatID)
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("load chat: %w", err)
	}
	if !ok {
		return domain.Exchange{}, ErrChatNotFound
	}

	// Pre-update state decides the title; only an empty chat gets one.
	count, err := a.store.CountMessages(chat.ID)
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("count messages: %w", err)
	}
	title := chat.Title
	if count == 0 {
		title = deriveTitle(topic)
	}

	userMsg := domain.Message{
		ID:        util.NewID(),
		ChatID:    chat.ID,
		Role:      domain.RoleUser,
		Content:   topic,
		CreatedAt: time.Now().UTC(),
	}

	text, genErr := a.writer.Compose(ctx, topic, styleID)
	if genErr != nil {
		util.LoggerFromContext(ctx).Error("generation failed", "chat_id", chat.ID, "err", genErr)
		text = "Sorry, an error occurred: " + genErr.Error()
	}

	assistantMsg := domain.Message{
		ID:        util.NewID(),
		ChatID:    chat.ID,
		Role:      domain.RoleAssistant,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}

	if err := a.store.AppendExchange(chat.ID, userMsg, assistantMsg, title, assistantMsg.CreatedAt); err != nil {
		if errors.Is(err, store.ErrChatNotFound) {
			return domain.Exchange{}, ErrChatNotFound
		}
		return domain.Exchange{}, fmt.Errorf("append exchange: %w", err)
	}
	return domain.Exchange{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Title:            title,
	}, nil
}

// deriveTitle builds a chat title from the first words of the topic,
// marking truncation with a literal ellipsis.
func deriveTitle(topic string) string {
	words := strings.Fields(topic)
	if len(words) <= titleTokenLimit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:titleTokenLimit], " ") + "..."
}
