package models

import "time"

// UserBot records that a user has unlocked a bot. Rows are only ever added by key
// redemption; they disappear only when the owning user or bot is deleted.
type UserBot struct {
	UserID    string    `gorm:"primaryKey;size:128"`
	BotID     uint64    `gorm:"primaryKey"`
	CreatedAt time.Time
	User      User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Bot       Bot  `gorm:"foreignKey:BotID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName overrides the table name for UserBot
func (UserBot) TableName() string {
	return "user_bots"
}

// ActivationKey is a single-use token bound to one bot at issuance.
type ActivationKey struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	Key       string     `gorm:"size:64;not null;uniqueIndex"`
	BotID     uint64     `gorm:"not null;index"`
	Used      bool       `gorm:"not null;default:false"`
	UsedBy    *string    `gorm:"size:128"`
	UsedAt    *time.Time
	CreatedAt time.Time
	Bot       Bot `gorm:"foreignKey:BotID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName overrides the table name for ActivationKey
func (ActivationKey) TableName() string {
	return "activation_keys"
}
