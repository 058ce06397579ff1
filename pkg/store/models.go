package store

import "time"

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type ChatModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	Title     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

type MessageModel struct {
	ID     string `gorm:"primaryKey"`
	ChatID string `gorm:"not null;index"`
	Role   string `gorm:"not null"`
	// Seq is DB-assigned and breaks created_at ties, keeping the user
	// message ahead of its reply when both carry the same timestamp.
	Seq       int64     `gorm:"autoIncrement"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}
