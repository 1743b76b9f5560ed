// activation.go
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

// EntitlementHandler handles activation and quota routes for the signed-in user
type EntitlementHandler struct {
	Entitlements *services.EntitlementService
	Quota        *services.QuotaService
}

// ActivateRequest is the body of POST /bots/:botId/activate
type ActivateRequest struct {
	Key string `json:"key"`
}

// ActivationStatus is the body returned by GET /bots/:botId/activation
type ActivationStatus struct {
	BotID     uint64 `json:"botId"`
	Activated bool   `json:"activated"`
}

// GetActivation handles GET /api/bots/:botId/activation
// @Summary Activation status
// @Description Report whether the signed-in user has unlocked the bot
// @Tags Activation
// @Produce json
// @Param botId path int true "Bot ID"
// @Success 200 {object} ActivationStatus
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId}/activation [get]
func (h *EntitlementHandler) GetActivation(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	botID, err := parseID(c, "botId")
	if err != nil {
		return respondError(c, err, "activation.status")
	}

	activated, err := h.Entitlements.IsActivated(c.UserContext(), user.ID, botID)
	if err != nil {
		return respondError(c, err, "activation.status")
	}
	return utils.SuccessResponse(c, ActivationStatus{BotID: botID, Activated: activated}, fiber.StatusOK)
}

// Activate handles POST /api/bots/:botId/activate
// @Summary Redeem activation key
// @Description Redeem a single-use activation key to unlock the bot
// @Tags Activation
// @Accept json
// @Produce json
// @Param botId path int true "Bot ID"
// @Param body body ActivateRequest true "Activation key"
// @Success 200 {object} services.Activation
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId}/activate [post]
func (h *EntitlementHandler) Activate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	botID, err := parseID(c, "botId")
	if err != nil {
		return respondError(c, err, "activation.redeem")
	}

	var body ActivateRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	result, err := h.Entitlements.Activate(c.UserContext(), user.ID, botID, body.Key)
	if err != nil {
		return respondError(c, err, "activation.redeem")
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// GetQuota handles GET /api/bots/:botId/quota
// @Summary Message quota
// @Description Report whether the signed-in user may send another message to the bot
// @Tags Activation
// @Produce json
// @Param botId path int true "Bot ID"
// @Success 200 {object} services.Quota
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId}/quota [get]
func (h *EntitlementHandler) GetQuota(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	botID, err := parseID(c, "botId")
	if err != nil {
		return respondError(c, err, "quota")
	}

	quota, err := h.Quota.CheckLimit(c.UserContext(), user.ID, botID, user.Email)
	if err != nil {
		return respondError(c, err, "quota")
	}
	return utils.SuccessResponse(c, quota, fiber.StatusOK)
}
