// common.go
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
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/botdesk/internal/middleware"
	"github.com/localnerve/botdesk/internal/models"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/localnerve/botdesk/internal/types"
	"github.com/localnerve/botdesk/internal/utils"
)

// currentUser returns the user the AuthUser middleware stored on the request
func currentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(middleware.LocalUser).(*models.User)
	if !ok || user == nil {
		return nil, types.NewError(fiber.StatusForbidden, "No authenticated user", "auth.user")
	}
	return user, nil
}

// parseID reads a positive numeric path parameter
func parseID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, types.NewError(fiber.StatusBadRequest, "Invalid "+name, "validation.input")
	}
	return id, nil
}

// mapError converts a service error into the HTTP error it is reported as. errorType
// names the operation for errors that carry no type of their own.
func mapError(err error, errorType string) *types.CustomError {
	var custom *types.CustomError
	if errors.As(err, &custom) {
		return custom
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		return types.NewError(fiber.StatusNotFound, "Not found", errorType)
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidSender):
		return types.NewError(fiber.StatusBadRequest, "Invalid input", "validation.input")
	case errors.Is(err, services.ErrInvalidKey):
		return types.NewError(fiber.StatusBadRequest, "Invalid activation key", "activation.key")
	case errors.Is(err, services.ErrKeyBotMismatch):
		return types.NewError(fiber.StatusBadRequest, "Activation key is for another bot", "activation.mismatch")
	case errors.Is(err, services.ErrKeyAlreadyUsed):
		return types.NewError(fiber.StatusConflict, "Activation key already used", "activation.used")
	case errors.Is(err, services.ErrKeyCollision):
		return types.NewError(fiber.StatusConflict, "Activation key collision, retry", "activation.collision")
	case errors.Is(err, services.ErrQuotaExceeded):
		return types.NewError(fiber.StatusTooManyRequests, "Message limit reached", "chat.quota")
	case errors.Is(err, services.ErrUpstreamLimit):
		return types.NewError(fiber.StatusTooManyRequests, "Completion provider limit reached", "chat.upstream.limit")
	case errors.Is(err, services.ErrUpstream):
		return types.NewError(fiber.StatusBadGateway, "Completion service unavailable", "chat.upstream")
	}

	return types.NewError(fiber.StatusInternalServerError, err.Error(), errorType)
}

// respondError writes err through the standard error envelope
func respondError(c *fiber.Ctx, err error, errorType string) error {
	e := mapError(err, errorType)
	if e.Code == fiber.StatusNotFound {
		return utils.NotFoundResponse(c, e.Message)
	}
	return utils.ErrorResponse(c, e.Message, e.Code, e.Type)
}

// ErrorHandler renders errors that reach Fiber, from middleware or unmatched routes
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.ErrorResponse(c, fe.Message, fe.Code, "unknown")
	}
	return respondError(c, err, "unknown")
}
