package models

import "time"

// Bot is a catalog entry. Bots are managed by administrators only.
type Bot struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Price        float64   `gorm:"not null;default:0" json:"price"`
	Category     string    `gorm:"size:100;index" json:"category"`
	ImageURL     string    `gorm:"size:1024" json:"imageUrl"`
	SystemPrompt string    `gorm:"type:text" json:"systemPrompt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName overrides the table name for Bot
func (Bot) TableName() string {
	return "bots"
}
