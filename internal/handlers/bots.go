// bots.go
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
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/localnerve/botdesk/internal/types"
	"github.com/localnerve/botdesk/internal/utils"
)

// BotHandler handles the bot catalog and activation key issuance
type BotHandler struct {
	Bots         *services.BotService
	Entitlements *services.EntitlementService
}

// IssueKeysRequest is the body of POST /bots/:botId/keys
type IssueKeysRequest struct {
	Count int `json:"count"`
}

// IssueKeysResponse lists freshly issued activation keys
type IssueKeysResponse struct {
	BotID uint64   `json:"botId"`
	Keys  []string `json:"keys"`
}

// ListBots handles GET /api/bots
// @Summary List bots
// @Description List the bot catalog, optionally filtered by category
// @Tags Bots
// @Produce json
// @Param category query string false "Category filter"
// @Success 200 {array} models.Bot
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /bots [get]
func (h *BotHandler) ListBots(c *fiber.Ctx) error {
	bots, err := h.Bots.List(c.UserContext(), c.Query("category"))
	if err != nil {
		return respondError(c, err, "bots.list")
	}
	return utils.SuccessResponse(c, bots, fiber.StatusOK)
}

// GetBot handles GET /api/bots/:botId
// @Summary Get bot
// @Tags Bots
// @Produce json
// @Param botId path int true "Bot ID"
// @Success 200 {object} models.Bot
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /bots/{botId} [get]
func (h *BotHandler) GetBot(c *fiber.Ctx) error {
	botID, err := parseID(c, "botId")
	if err != nil {
		return respondError(c, err, "bots.get")
	}

	bot, err := h.Bots.Get(c.UserContext(), botID)
	if err != nil {
		return respondError(c, err, "bots.get")
	}
	return utils.SuccessResponse(c, bot, fiber.StatusOK)
}

// CreateBots handles POST /api/bots
// @Summary Create bots
// @Description Create one bot from an object body, or several from an array body
// @Tags Bots
// @Accept json
// @Produce json
// @Param body body services.BotInput true "Bot or array of bots"
// @Success 201 {object} models.Bot
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots [post]
func (h *BotHandler) CreateBots(c *fiber.Ctx) error {
	body := bytes.TrimSpace(c.Body())

	var inputs types.FlexList[services.BotInput]
	if err := json.Unmarshal(body, &inputs); err != nil || len(inputs) == 0 {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	if body[0] == '[' {
		bots, err := h.Bots.CreateMany(c.UserContext(), inputs.Slice())
		if err != nil {
			return respondError(c, err, "bots.create")
		}
		return utils.SuccessResponse(c, bots, fiber.StatusCreated)
	}

	bot, err := h.Bots.Create(c.UserContext(), inputs[0])
	if err != nil {
		return respondError(c, err, "bots.create")
	}
	return utils.SuccessResponse(c, bot, fiber.StatusCreated)
}

// UpdateBot handles PUT /api/bots/:botId
// @Summary Update bot
// @Tags Bots
// @Accept json
// @Produce json
// @Param botId path int true "Bot ID"
// @Param body body services.BotInput true "Bot fields"
// @Success 200 {object} models.Bot
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId} [put]
func (h *BotHandler) UpdateBot(c *fiber.Ctx) error {
	botID, err := parseID(c, "botId")
	if err != nil {
		return respondError(c, err, "bots.update")
	}

	var input services.BotInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	bot, err := h.Bots.Update(c.UserContext(), botID, input)
	if err != nil {
		return respondError(c, err, "bots.update")
	}
	return utils.SuccessResponse(c, bot, fiber.StatusOK)
}

// DeleteBot handles DELETE /api/bots/:botId
// @Summary Delete bot
// @Description Delete a bot together with its keys, entitlements, preferences and history
// @Tags Bots
// @Produce json
// @Param botId path int true "Bot ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId} [delete]
func (h *BotHandler) DeleteBot(c *fiber.Ctx) error {
	botID, err := parseID(c, "botId")
	if err != nil {
		return respondError(c, err, "bots.delete")
	}

	deleted, err := h.Bots.Delete(c.UserContext(), botID)
	if err != nil {
		return respondError(c, err, "bots.delete")
	}
	if !deleted {
		return utils.NotFoundResponse(c, "Bot not found")
	}
	return utils.MutationSuccessResponse(c, true)
}

// IssueKeys handles POST /api/bots/:botId/keys
// @Summary Issue activation keys
// @Tags Bots
// @Accept json
// @Produce json
// @Param botId path int true "Bot ID"
// @Param body body IssueKeysRequest true "Number of keys"
// @Success 201 {object} IssueKeysResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId}/keys [post]
func (h *BotHandler) IssueKeys(c *fiber.Ctx) error {
	botID, err := parseID(c, "botId")
	if err != nil {
		return respondError(c, err, "keys.issue")
	}

	var body IssueKeysRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	keys, err := h.Entitlements.IssueKeys(c.UserContext(), botID, body.Count)
	if err != nil {
		return respondError(c, err, "keys.issue")
	}
	return utils.SuccessResponse(c, IssueKeysResponse{BotID: botID, Keys: keys}, fiber.StatusCreated)
}
