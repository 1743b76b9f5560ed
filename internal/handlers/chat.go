// chat.go
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
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/localnerve/botdesk/internal/types"
	"github.com/localnerve/botdesk/internal/utils"
)

// ChatHandler handles chat turns
type ChatHandler struct {
	Service *services.ChatService
}

// ChatRequest is the body of POST /bots/:botId/chat
type ChatRequest struct {
	Message        string           `json:"message"`
	ConversationID types.FlexUint64 `json:"conversationId" swaggertype:"integer"`
	Context        json.RawMessage  `json:"context,omitempty" swaggertype:"object"`
}

// Chat handles POST /api/bots/:botId/chat
// @Summary Send a chat message
// @Description Send a message to the bot and receive its reply. A missing or unknown conversationId starts a new conversation.
// @Tags Chat
// @Accept json
// @Produce json
// @Param botId path int true "Bot ID"
// @Param body body ChatRequest true "Message"
// @Success 200 {object} services.ChatResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId}/chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	botID, err := parseID(c, "botId")
	if err != nil {
		return respondError(c, err, "chat")
	}

	var body ChatRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	result, err := h.Service.Send(c.UserContext(), services.ChatRequest{
		User:           user,
		BotID:          botID,
		ConversationID: body.ConversationID.Uint64(),
		Message:        body.Message,
		Context:        body.Context,
	})
	if err != nil {
		return respondError(c, err, "chat")
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}
