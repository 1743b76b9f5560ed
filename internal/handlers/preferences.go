// preferences.go
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
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/localnerve/botdesk/internal/utils"
)

// PreferenceHandler handles the per-bot preference document
type PreferenceHandler struct {
	Preferences *services.PreferenceService
}

// GetPreferences handles GET /api/bots/:botId/preferences
// @Summary Get preferences
// @Description The stored preference document, or an empty object
// @Tags Preferences
// @Produce json
// @Param botId path int true "Bot ID"
// @Success 200 {object} map[string]interface{}
// @Security CookieAuth
// @Router /bots/{botId}/preferences [get]
func (h *PreferenceHandler) GetPreferences(c *fiber.Ctx) error {
	userID, botID, err := scope(c)
	if err != nil {
		return respondError(c, err, "preferences.get")
	}

	doc, err := h.Preferences.Get(c.UserContext(), userID, botID)
	if errors.Is(err, services.ErrNotFound) {
		doc = []byte("{}")
	} else if err != nil {
		return respondError(c, err, "preferences.get")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(doc)
}

// PutPreferences handles PUT /api/bots/:botId/preferences
// @Summary Replace preferences
// @Tags Preferences
// @Accept json
// @Produce json
// @Param botId path int true "Bot ID"
// @Param body body object true "Preference document"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /bots/{botId}/preferences [put]
func (h *PreferenceHandler) PutPreferences(c *fiber.Ctx) error {
	userID, botID, err := scope(c)
	if err != nil {
		return respondError(c, err, "preferences.put")
	}

	// Body is reused by fasthttp after the handler returns
	doc := append([]byte(nil), c.Body()...)
	if err := h.Preferences.Upsert(c.UserContext(), userID, botID, doc); err != nil {
		return respondError(c, err, "preferences.put")
	}
	return utils.MutationSuccessResponse(c, true)
}
