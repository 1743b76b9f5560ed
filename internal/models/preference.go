package models

import "time"

// UserBotPreference holds an opaque JSON blob per (user, bot). Writes replace the
// whole blob.
type UserBotPreference struct {
	UserID      string `gorm:"primaryKey;size:128"`
	BotID       uint64 `gorm:"primaryKey"`
	Preferences JSON
	UpdatedAt   time.Time
	User        User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Bot         Bot  `gorm:"foreignKey:BotID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName overrides the table name for UserBotPreference
func (UserBotPreference) TableName() string {
	return "user_bot_preferences"
}

// SchemaMigration records one applied schema version
type SchemaMigration struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:255;not null"`
	AppliedAt time.Time
}

// TableName overrides the table name for SchemaMigration
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}
