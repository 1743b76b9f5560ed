package models

import "time"

// User is an identity issued by the auth provider. The ID is the provider's stable
// subject and never changes; ExternalRef is the only field mutated after creation.
type User struct {
	ID          string    `gorm:"primaryKey;size:128" json:"id"`
	Name        string    `gorm:"size:255" json:"name"`
	Email       string    `gorm:"size:255;index" json:"email"`
	ExternalRef *string   `gorm:"size:255" json:"externalRef,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
