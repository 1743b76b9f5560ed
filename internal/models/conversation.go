package models

import (
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// Sender roles for a Message
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ConversationStatusOpen is the status every conversation starts with
const ConversationStatusOpen = "open"

// Conversation is a titled thread of messages owned by one (user, bot) pair
type Conversation struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"size:128;not null;index:idx_conversations_scope,priority:1" json:"userId"`
	BotID     uint64    `gorm:"not null;index:idx_conversations_scope,priority:2" json:"botId"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Status    string    `gorm:"size:32;not null;default:'open'" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      User      `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Bot       Bot       `gorm:"foreignKey:BotID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// Message is one chat turn. Messages are append-only; they are removed only through
// their conversation.
type Message struct {
	ID             uint64       `gorm:"primaryKey;autoIncrement"`
	UserID         string       `gorm:"size:128;not null;index:idx_messages_scope,priority:1"`
	BotID          uint64       `gorm:"not null;index:idx_messages_scope,priority:2"`
	ConversationID uint64       `gorm:"not null;index:idx_messages_scope,priority:3"`
	Sender         string       `gorm:"size:16;not null;check:chk_messages_sender,sender IN ('user','bot')"`
	Text           string       `gorm:"type:text;not null"`
	SearchText     string       `gorm:"column:search_text;type:text"`
	Context        JSON         `gorm:"column:context"`
	CreatedAt      time.Time    `gorm:"index:idx_messages_scope,priority:4"`
	Conversation   Conversation `gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User           User         `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Bot            Bot          `gorm:"foreignKey:BotID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName overrides the table name for Message
func (Message) TableName() string {
	return "messages"
}

// BeforeSave keeps SearchText in step with Text
func (m *Message) BeforeSave(tx *gorm.DB) error {
	m.SearchText = FoldText(m.Text)
	return nil
}

// FoldText case-folds s for case-insensitive matching. SQL LOWER only folds ASCII on
// SQLite, so matching runs against text folded here instead.
func FoldText(s string) string {
	return cases.Fold().String(s)
}

// Turn is a message reduced to what prompt construction needs
type Turn struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}
