// users.go
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

// UserHandler handles the signed-in user's own record
type UserHandler struct {
	Users *services.UserService
}

// ExternalRefRequest is the body of PUT /me/external-ref
type ExternalRefRequest struct {
	ExternalRef string `json:"externalRef"`
}

// GetMe handles GET /api/me
// @Summary Current user
// @Tags Users
// @Produce json
// @Success 200 {object} models.User
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /me [get]
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, user, fiber.StatusOK)
}

// SetExternalRef handles PUT /api/me/external-ref
// @Summary Link external account
// @Description Store or clear (empty value) the user's external account reference
// @Tags Users
// @Accept json
// @Produce json
// @Param body body ExternalRefRequest true "External reference"
// @Success 200 {object} utils.SuccessResponseStruct
// @Security CookieAuth
// @Router /me/external-ref [put]
func (h *UserHandler) SetExternalRef(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var body ExternalRefRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	changed, err := h.Users.SetExternalRef(c.UserContext(), user.ID, body.ExternalRef)
	if err != nil {
		return respondError(c, err, "users.externalRef")
	}
	if !changed {
		return utils.NotFoundResponse(c, "User not found")
	}
	return utils.MutationSuccessResponse(c, true)
}
