package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/localnerve/botdesk/internal/metrics"
	"github.com/localnerve/botdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// DefaultHistoryLimit is the window History uses when limit is not positive
const DefaultHistoryLimit = 10

// SearchHit is a message matched by Search
type SearchHit struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageService is the append-only log of chat turns
type MessageService struct {
	DB *gorm.DB
}

// NewMessageService creates a MessageService
func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{DB: db}
}

// Append stores one chat turn and returns its id. Quota is not checked here.
func (s *MessageService) Append(ctx context.Context, userID string, botID, conversationID uint64, sender, text string, msgContext json.RawMessage) (uint64, error) {
	if sender != models.SenderUser && sender != models.SenderBot {
		return 0, ErrInvalidSender
	}
	if len(msgContext) > 0 && !json.Valid(msgContext) {
		return 0, ErrInvalidInput
	}

	msg := models.Message{
		UserID:         userID,
		BotID:          botID,
		ConversationID: conversationID,
		Sender:         sender,
		Text:           text,
		Context:        models.NewJSON(msgContext),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(&msg).Error; err != nil {
		return 0, fmt.Errorf("failed to append message: %w", err)
	}

	metrics.MessagesAppended.WithLabelValues(sender).Inc()
	return msg.ID, nil
}

// History returns the most recent limit messages of the conversation, oldest first
func (s *MessageService) History(ctx context.Context, userID string, botID, conversationID uint64, limit int) ([]models.Turn, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var turns []models.Turn
	err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Clauses(hints.CommentBefore("select", "botdesk:history")).
		Select("sender", "text").
		Where("user_id = ? AND bot_id = ? AND conversation_id = ?", userID, botID, conversationID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Scan(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	// Fetched newest first; deliver in transcript order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	return turns, nil
}

// Search returns the messages of the conversation whose text contains query,
// case-insensitively, oldest first. LIKE wildcards in query match literally.
func (s *MessageService) Search(ctx context.Context, userID string, botID, conversationID uint64, query string) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}

	pattern := "%" + escapeLike(models.FoldText(query)) + "%"

	var msgs []models.Message
	err := s.DB.WithContext(ctx).
		Clauses(hints.CommentBefore("select", "botdesk:search")).
		Select("id", "sender", "text", "created_at").
		Where("user_id = ? AND bot_id = ? AND conversation_id = ?", userID, botID, conversationID).
		Where("search_text LIKE ? ESCAPE '!'", pattern).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	hits := make([]SearchHit, len(msgs))
	for i, m := range msgs {
		hits[i] = SearchHit{Sender: m.Sender, Text: m.Text, Timestamp: m.CreatedAt}
	}
	return hits, nil
}

// CountUserMessages counts user-sent messages for (userID, botID) across all
// conversations
func (s *MessageService) CountUserMessages(ctx context.Context, userID string, botID uint64) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("user_id = ? AND bot_id = ? AND sender = ?", userID, botID, models.SenderUser).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// '!' rather than backslash: MySQL treats backslash in the ESCAPE literal as an escape
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike makes LIKE metacharacters literal, using ! as the escape character
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
