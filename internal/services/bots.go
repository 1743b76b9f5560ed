package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/localnerve/botdesk/internal/models"
	"gorm.io/gorm"
)

// BotInput holds the editable fields of a catalog entry
type BotInput struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Category     string  `json:"category"`
	ImageURL     string  `json:"imageUrl"`
	SystemPrompt string  `json:"systemPrompt"`
}

func (in BotInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || in.Price < 0 {
		return ErrInvalidInput
	}
	return nil
}

func (in BotInput) apply(bot *models.Bot) {
	bot.Name = strings.TrimSpace(in.Name)
	bot.Description = in.Description
	bot.Price = in.Price
	bot.Category = strings.TrimSpace(in.Category)
	bot.ImageURL = in.ImageURL
	bot.SystemPrompt = in.SystemPrompt
}

// BotService manages the bot catalog
type BotService struct {
	DB *gorm.DB
}

// NewBotService creates a BotService
func NewBotService(db *gorm.DB) *BotService {
	return &BotService{DB: db}
}

// Create adds one bot to the catalog
func (s *BotService) Create(ctx context.Context, in BotInput) (*models.Bot, error) {
	bots, err := s.CreateMany(ctx, []BotInput{in})
	if err != nil {
		return nil, err
	}
	return &bots[0], nil
}

// CreateMany adds bots to the catalog in one transaction
func (s *BotService) CreateMany(ctx context.Context, inputs []BotInput) ([]models.Bot, error) {
	if len(inputs) == 0 {
		return nil, ErrInvalidInput
	}

	bots := make([]models.Bot, len(inputs))
	for i, in := range inputs {
		if err := in.validate(); err != nil {
			return nil, err
		}
		in.apply(&bots[i])
	}

	if err := s.DB.WithContext(ctx).Create(&bots).Error; err != nil {
		return nil, fmt.Errorf("failed to create bots: %w", err)
	}
	return bots, nil
}

// List returns the catalog ordered by id, optionally restricted to one category
func (s *BotService) List(ctx context.Context, category string) ([]models.Bot, error) {
	bots := []models.Bot{}
	query := s.DB.WithContext(ctx).Order("id ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&bots).Error; err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	return bots, nil
}

// Count returns the number of catalog entries
func (s *BotService) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Bot{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count bots: %w", err)
	}
	return count, nil
}

// Get returns one bot
func (s *BotService) Get(ctx context.Context, id uint64) (*models.Bot, error) {
	var bot models.Bot
	if err := s.DB.WithContext(ctx).First(&bot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read bot: %w", err)
	}
	return &bot, nil
}

// Update replaces the editable fields of a bot
func (s *BotService) Update(ctx context.Context, id uint64, in BotInput) (*models.Bot, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var bot models.Bot
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bot, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to read bot: %w", err)
		}
		in.apply(&bot)
		if err := tx.Save(&bot).Error; err != nil {
			return fmt.Errorf("failed to update bot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// Delete removes a bot together with everything scoped to it. It reports false when
// the bot did not exist.
func (s *BotService) Delete(ctx context.Context, id uint64) (bool, error) {
	var deleted bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Children first, matching the foreign key cascade
		for _, model := range []interface{}{
			&models.Message{},
			&models.Conversation{},
			&models.UserBotPreference{},
			&models.UserBot{},
			&models.ActivationKey{},
		} {
			if err := tx.Where("bot_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete bot data: %w", err)
			}
		}

		res := tx.Delete(&models.Bot{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete bot: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}
