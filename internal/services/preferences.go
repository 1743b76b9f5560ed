package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/botdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceService stores the opaque per (user, bot) preference document
type PreferenceService struct {
	DB *gorm.DB
}

// NewPreferenceService creates a PreferenceService
func NewPreferenceService(db *gorm.DB) *PreferenceService {
	return &PreferenceService{DB: db}
}

// Upsert replaces the preference document. Last write wins.
func (s *PreferenceService) Upsert(ctx context.Context, userID string, botID uint64, doc json.RawMessage) error {
	if userID == "" || botID == 0 || len(doc) == 0 || !json.Valid(doc) {
		return ErrInvalidInput
	}

	pref := models.UserBotPreference{
		UserID:      userID,
		BotID:       botID,
		Preferences: models.NewJSON(doc),
		UpdatedAt:   time.Now().UTC(),
	}
	err := s.DB.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "bot_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"preferences", "updated_at"}),
		}).
		Create(&pref).Error
	if err != nil {
		return fmt.Errorf("failed to store preferences: %w", err)
	}
	return nil
}

// Get returns the stored preference document
func (s *PreferenceService) Get(ctx context.Context, userID string, botID uint64) (json.RawMessage, error) {
	var pref models.UserBotPreference
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND bot_id = ?", userID, botID).
		First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	if pref.Preferences.IsEmpty() {
		return nil, ErrNotFound
	}
	return pref.Preferences.Raw(), nil
}
