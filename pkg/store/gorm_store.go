package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"inkwise/pkg/domain"
)

const migrateLockID int64 = 48211337

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &ChatModel{}, &MessageModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				DELETE FROM message_models m
				WHERE NOT EXISTS (SELECT 1 FROM chat_models c WHERE c.id = m.chat_id);
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'message_models'
					AND constraint_name = 'message_models_chat_id_fkey'
				) THEN
					ALTER TABLE message_models
					ADD CONSTRAINT message_models_chat_id_fkey
					FOREIGN KEY (chat_id) REFERENCES chat_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure chat foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers a user. A duplicate email hitting the unique index is
// reported as ErrEmailTaken so callers can treat the race as a conflict.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateChat creates a new chat record.
func (s *GormStore) CreateChat(chat domain.Chat) error {
	model := chatToModel(chat)
	return s.db.Create(&model).Error
}

// ListChats returns a user's chats ordered by last update, newest first.
// Messages are never loaded here.
func (s *GormStore) ListChats(userID string) ([]domain.Chat, error) {
	var models []ChatModel
	if err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	chats := make([]domain.Chat, 0, len(models))
	for _, model := range models {
		chats = append(chats, chatFromModel(model))
	}
	return chats, nil
}

// GetChat returns one chat scoped by owner.
func (s *GormStore) GetChat(userID, chatID string) (domain.Chat, bool, error) {
	var model ChatModel
	if err := s.db.Where("id = ? AND user_id = ?", chatID, userID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Chat{}, false, nil
		}
		return domain.Chat{}, false, err
	}
	return chatFromModel(model), true, nil
}

// RenameChat updates the title of an owned chat. Returns false when the
// chat does not exist or belongs to another user.
func (s *GormStore) RenameChat(userID, chatID, title string, updatedAt time.Time) (bool, error) {
	res := s.db.Model(&ChatModel{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Updates(map[string]any{
			"title":      title,
			"updated_at": updatedAt.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteChat removes an owned chat and its messages (FK cascade).
// Returns false when nothing matched.
func (s *GormStore) DeleteChat(userID, chatID string) (bool, error) {
	res := s.db.Delete(&ChatModel{}, "id = ? AND user_id = ?", chatID, userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListMessages returns a chat's messages in conversation order. seq breaks
// created_at ties so insertion order survives timestamp collisions.
func (s *GormStore) ListMessages(chatID string) ([]domain.Message, error) {
	var models []MessageModel
	if err := s.db.Where("chat_id = ?", chatID).
		Order("created_at ASC, seq ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for _, model := range models {
		msgs = append(msgs, messageFromModel(model))
	}
	return msgs, nil
}

// CountMessages returns the number of messages in a chat.
func (s *GormStore) CountMessages(chatID string) (int64, error) {
	var count int64
	if err := s.db.Model(&MessageModel{}).Where("chat_id = ?", chatID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AppendExchange records the user/assistant pair, title, and updated_at in
// one transaction so a partially written exchange is never visible. Returns
// ErrChatNotFound when the chat was deleted since the caller's lookup.
func (s *GormStore) AppendExchange(chatID string, userMsg, assistantMsg domain.Message, title string, updatedAt time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&ChatModel{}).
			Where("id = ?", chatID).
			Updates(map[string]any{
				"title":      title,
				"updated_at": updatedAt.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrChatNotFound
		}
		um := messageToModel(userMsg)
		um.ChatID = chatID
		if err := tx.Create(&um).Error; err != nil {
			return err
		}
		am := messageToModel(assistantMsg)
		am.ChatID = chatID
		return tx.Create(&am).Error
	})
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

func chatToModel(c domain.Chat) ChatModel {
	return ChatModel{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func chatFromModel(m ChatModel) domain.Chat {
	return domain.Chat{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func messageToModel(msg domain.Message) MessageModel {
	return MessageModel{
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Role:      domain.Role(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
