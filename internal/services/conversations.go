// conversations.go
//
// Chatbot-as-a-service backend: bot catalog, activation keys and conversation history
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of botdesk.
// botdesk is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// botdesk is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with botdesk.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/localnerve/botdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultConversationTitle is used when a conversation is created without a title
const DefaultConversationTitle = "New conversation"

const maxTitleRunes = 255

// ConversationSummary is the list view of a conversation
type ConversationSummary struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationService owns conversation lifecycle scoped to (user, bot)
type ConversationService struct {
	DB *gorm.DB
}

// NewConversationService creates a ConversationService
func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{DB: db}
}

// ResolveOrCreate returns conversationID when it names an existing conversation of
// (userID, botID). Otherwise it creates a conversation titled titleIfNew and returns
// the new id.
func (s *ConversationService) ResolveOrCreate(ctx context.Context, userID string, botID, conversationID uint64, titleIfNew string) (uint64, error) {
	if userID == "" || botID == 0 {
		return 0, ErrInvalidInput
	}

	db := s.DB.WithContext(ctx)

	if conversationID > 0 {
		var count int64
		err := db.Model(&models.Conversation{}).
			Where("id = ? AND user_id = ? AND bot_id = ?", conversationID, userID, botID).
			Count(&count).Error
		if err != nil {
			return 0, fmt.Errorf("failed to read conversation: %w", err)
		}
		if count > 0 {
			return conversationID, nil
		}
	}

	conv := models.Conversation{
		UserID: userID,
		BotID:  botID,
		Title:  normalizeTitle(titleIfNew),
		Status: models.ConversationStatusOpen,
	}
	if err := db.Omit(clause.Associations).Create(&conv).Error; err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv.ID, nil
}

// Rename sets the title and bumps updated_at. It reports false when no conversation
// matched the scope.
func (s *ConversationService) Rename(ctx context.Context, userID string, botID, conversationID uint64, title string) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, ErrInvalidInput
	}

	res := s.DB.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ? AND user_id = ? AND bot_id = ?", conversationID, userID, botID).
		Updates(map[string]interface{}{
			"title":      truncateRunes(title, maxTitleRunes),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to rename conversation: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// List returns the conversations of (userID, botID), newest first
func (s *ConversationService) List(ctx context.Context, userID string, botID uint64) ([]ConversationSummary, error) {
	var convs []models.Conversation
	err := s.DB.WithContext(ctx).
		Select("id", "title", "status", "created_at").
		Where("user_id = ? AND bot_id = ?", userID, botID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	summaries := make([]ConversationSummary, len(convs))
	for i, c := range convs {
		summaries[i] = ConversationSummary{ID: c.ID, Title: c.Title, Status: c.Status, CreatedAt: c.CreatedAt}
	}
	return summaries, nil
}

// Delete removes the conversation and all of its messages. It reports false when no
// conversation matched the scope.
func (s *ConversationService) Delete(ctx context.Context, userID string, botID, conversationID uint64) (bool, error) {
	var deleted bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Explicit for dialects or connections without foreign key enforcement
		if err := tx.Where("conversation_id = ? AND user_id = ? AND bot_id = ?", conversationID, userID, botID).
			Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}

		res := tx.Where("id = ? AND user_id = ? AND bot_id = ?", conversationID, userID, botID).
			Delete(&models.Conversation{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete conversation: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// GetByID looks a conversation up by id alone. Callers that need user or bot
// isolation must check the owner fields themselves, or use Get.
func (s *ConversationService) GetByID(ctx context.Context, conversationID uint64) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.DB.WithContext(ctx).First(&conv, conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}
	return &conv, nil
}

// Get looks a conversation up within the (userID, botID) scope
func (s *ConversationService) Get(ctx context.Context, userID string, botID, conversationID uint64) (*models.Conversation, error) {
	conv, err := s.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID || conv.BotID != botID {
		return nil, ErrNotFound
	}
	return conv, nil
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultConversationTitle
	}
	return truncateRunes(title, maxTitleRunes)
}

// truncateRunes cuts s to at most n runes
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
