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

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/localnerve/botdesk/internal/utils"
)

// ConversationHandler handles the conversation and message history routes
type ConversationHandler struct {
	Conversations *services.ConversationService
	Messages      *services.MessageService
}

// TitleRequest carries a conversation title
type TitleRequest struct {
	Title string `json:"title"`
}

// CreatedResponse carries the id of a created resource
type CreatedResponse struct {
	ID uint64 `json:"id"`
}

// scope reads the signed-in user and the botId path parameter
func scope(c *fiber.Ctx) (string, uint64, error) {
	user, err := currentUser(c)
	if err != nil {
		return "", 0, err
	}
	botID, err := parseID(c, "botId")
	if err != nil {
		return "", 0, err
	}
	return user.ID, botID, nil
}

// ListConversations handles GET /api/bots/:botId/conversations
// @Summary List conversations
// @Description List the signed-in user's conversations with the bot, newest first
// @Tags Conversations
// @Produce json
// @Param botId path int true "Bot ID"
// @Success 200 {array} services.ConversationSummary
// @Security CookieAuth
// @Router /bots/{botId}/conversations [get]
func (h *ConversationHandler) ListConversations(c *fiber.Ctx) error {
	userID, botID, err := scope(c)
	if err != nil {
		return respondError(c, err, "conversations.list")
	}

	list, err := h.Conversations.List(c.UserContext(), userID, botID)
	if err != nil {
		return respondError(c, err, "conversations.list")
	}
	return utils.SuccessResponse(c, list, fiber.StatusOK)
}

// CreateConversation handles POST /api/bots/:botId/conversations
// @Summary Create conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Param botId path int true "Bot ID"
// @Param body body TitleRequest false "Title"
// @Success 201 {object} CreatedResponse
// @Security CookieAuth
// @Router /bots/{botId}/conversations [post]
func (h *ConversationHandler) CreateConversation(c *fiber.Ctx) error {
	userID, botID, err := scope(c)
	if err != nil {
		return respondError(c, err, "conversations.create")
	}

	var body TitleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
		}
	}

	id, err := h.Conversations.ResolveOrCreate(c.UserContext(), userID, botID, 0, body.Title)
	if err != nil {
		return respondError(c, err, "conversations.create")
	}
	return utils.SuccessResponse(c, CreatedResponse{ID: id}, fiber.StatusCreated)
}

// GetConversation handles GET /api/bots/:botId/conversations/:conversationId
// @Summary Get conversation
// @Tags Conversations
// @Produce json
// @Param botId path int true "Bot ID"
// @Param conversationId path int true "Conversation ID"
// @Success 200 {object} models.Conversation
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId}/conversations/{conversationId} [get]
func (h *ConversationHandler) GetConversation(c *fiber.Ctx) error {
	userID, botID, err := scope(c)
	if err != nil {
		return respondError(c, err, "conversations.get")
	}
	conversationID, err := parseID(c, "conversationId")
	if err != nil {
		return respondError(c, err, "conversations.get")
	}

	conv, err := h.Conversations.Get(c.UserContext(), userID, botID, conversationID)
	if err != nil {
		return respondError(c, err, "conversations.get")
	}
	return utils.SuccessResponse(c, conv, fiber.StatusOK)
}

// RenameConversation handles PATCH /api/bots/:botId/conversations/:conversationId
// @Summary Rename conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Param botId path int true "Bot ID"
// @Param conversationId path int true "Conversation ID"
// @Param body body TitleRequest true "New title"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId}/conversations/{conversationId} [patch]
func (h *ConversationHandler) RenameConversation(c *fiber.Ctx) error {
	userID, botID, err := scope(c)
	if err != nil {
		return respondError(c, err, "conversations.rename")
	}
	conversationID, err := parseID(c, "conversationId")
	if err != nil {
		return respondError(c, err, "conversations.rename")
	}

	var body TitleRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	renamed, err := h.Conversations.Rename(c.UserContext(), userID, botID, conversationID, body.Title)
	if err != nil {
		return respondError(c, err, "conversations.rename")
	}
	if !renamed {
		return utils.NotFoundResponse(c, "Conversation not found")
	}
	return utils.MutationSuccessResponse(c, true)
}

// DeleteConversation handles DELETE /api/bots/:botId/conversations/:conversationId
// @Summary Delete conversation
// @Description Delete a conversation and its messages
// @Tags Conversations
// @Produce json
// @Param botId path int true "Bot ID"
// @Param conversationId path int true "Conversation ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId}/conversations/{conversationId} [delete]
func (h *ConversationHandler) DeleteConversation(c *fiber.Ctx) error {
	userID, botID, err := scope(c)
	if err != nil {
		return respondError(c, err, "conversations.delete")
	}
	conversationID, err := parseID(c, "conversationId")
	if err != nil {
		return respondError(c, err, "conversations.delete")
	}

	deleted, err := h.Conversations.Delete(c.UserContext(), userID, botID, conversationID)
	if err != nil {
		return respondError(c, err, "conversations.delete")
	}
	if !deleted {
		return utils.NotFoundResponse(c, "Conversation not found")
	}
	return utils.MutationSuccessResponse(c, true)
}

// GetHistory handles GET /api/bots/:botId/conversations/:conversationId/messages
// @Summary Conversation history
// @Description The most recent messages of the conversation, oldest first
// @Tags Conversations
// @Produce json
// @Param botId path int true "Bot ID"
// @Param conversationId path int true "Conversation ID"
// @Param limit query int false "Number of messages" default(10)
// @Success 200 {array} models.Turn
// @Security CookieAuth
// @Router /bots/{botId}/conversations/{conversationId}/messages [get]
func (h *ConversationHandler) GetHistory(c *fiber.Ctx) error {
	userID, botID, err := scope(c)
	if err != nil {
		return respondError(c, err, "messages.history")
	}
	conversationID, err := parseID(c, "conversationId")
	if err != nil {
		return respondError(c, err, "messages.history")
	}

	turns, err := h.Messages.History(c.UserContext(), userID, botID, conversationID, c.QueryInt("limit", services.DefaultHistoryLimit))
	if err != nil {
		return respondError(c, err, "messages.history")
	}
	return utils.SuccessResponse(c, turns, fiber.StatusOK)
}

// SearchMessages handles GET /api/bots/:botId/conversations/:conversationId/search
// @Summary Search conversation
// @Description Case-insensitive substring search over the conversation's messages
// @Tags Conversations
// @Produce json
// @Param botId path int true "Bot ID"
// @Param conversationId path int true "Conversation ID"
// @Param q query string true "Text to find"
// @Success 200 {array} services.SearchHit
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId}/conversations/{conversationId}/search [get]
func (h *ConversationHandler) SearchMessages(c *fiber.Ctx) error {
	userID, botID, err := scope(c)
	if err != nil {
		return respondError(c, err, "messages.search")
	}
	conversationID, err := parseID(c, "conversationId")
	if err != nil {
		return respondError(c, err, "messages.search")
	}

	hits, err := h.Messages.Search(c.UserContext(), userID, botID, conversationID, c.Query("q"))
	if err != nil {
		return respondError(c, err, "messages.search")
	}
	return utils.SuccessResponse(c, hits, fiber.StatusOK)
}
