package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/localnerve/botdesk/internal/metrics"
	"github.com/localnerve/botdesk/internal/models"
)

const chatTitleRunes = 50

// Completer produces the bot's reply to message given the bot's system prompt and the
// prior turns, oldest first. Failures should wrap ErrUpstream or ErrUpstreamLimit.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []models.Turn, message string) (string, error)
}

// ChatRequest is one inbound chat turn
type ChatRequest struct {
	User           *models.User
	BotID          uint64
	ConversationID uint64
	Message        string
	Context        json.RawMessage
}

// ChatResult is the reply to a chat turn
type ChatResult struct {
	Reply          string `json:"reply"`
	ConversationID uint64 `json:"conversationId"`
	Quota          Quota  `json:"quota"`
}

// ChatService runs a chat turn across the stores and the completion API
type ChatService struct {
	Bots          *BotService
	Quota         *QuotaService
	Conversations *ConversationService
	Messages      *MessageService
	Completer     Completer
	HistoryLimit  int
}

// Send checks quota, resolves the conversation, asks the completer for a reply and
// appends both turns. The appends are independent: if the reply append fails the user
// turn stays recorded.
func (s *ChatService) Send(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if req.User == nil || req.BotID == 0 || message == "" {
		return nil, ErrInvalidInput
	}
	if len(req.Context) > 0 && !json.Valid(req.Context) {
		return nil, ErrInvalidInput
	}

	bot, err := s.Bots.Get(ctx, req.BotID)
	if err != nil {
		return nil, err
	}

	quota, err := s.Quota.CheckLimit(ctx, req.User.ID, bot.ID, req.User.Email)
	if err != nil {
		return nil, err
	}
	if !quota.CanSend {
		return nil, ErrQuotaExceeded
	}

	conversationID, err := s.Conversations.ResolveOrCreate(ctx, req.User.ID, bot.ID, req.ConversationID, truncateRunes(message, chatTitleRunes))
	if err != nil {
		return nil, err
	}

	history, err := s.Messages.History(ctx, req.User.ID, bot.ID, conversationID, s.HistoryLimit)
	if err != nil {
		return nil, err
	}

	reply, err := s.Completer.Complete(ctx, bot.SystemPrompt, history, message)
	if err != nil {
		metrics.Completions.WithLabelValues(completionOutcome(err)).Inc()
		if !errors.Is(err, ErrUpstream) && !errors.Is(err, ErrUpstreamLimit) {
			err = fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return nil, err
	}
	metrics.Completions.WithLabelValues("ok").Inc()

	if _, err := s.Messages.Append(ctx, req.User.ID, bot.ID, conversationID, models.SenderUser, message, req.Context); err != nil {
		return nil, err
	}
	if _, err := s.Messages.Append(ctx, req.User.ID, bot.ID, conversationID, models.SenderBot, reply, nil); err != nil {
		log.Printf("Reply for conversation %d not stored after user turn: %v", conversationID, err)
		return nil, err
	}

	if quota.Remaining != nil {
		remaining := *quota.Remaining - 1
		if remaining < 0 {
			remaining = 0
		}
		quota.Remaining = &remaining
		quota.CanSend = remaining > 0
	}

	return &ChatResult{Reply: reply, ConversationID: conversationID, Quota: quota}, nil
}

func completionOutcome(err error) string {
	if errors.Is(err, ErrUpstreamLimit) {
		return "limit"
	}
	return "error"
}
