package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/localnerve/botdesk/internal/types"
)

// SessionCookie is the Authorizer session cookie name
const SessionCookie = "cookie_session"

// Locals keys set by the auth middleware
const (
	LocalUser     = "user"
	LocalIdentity = "identity"
)

// AuthAdmin validates that the request has admin role authorization
func AuthAdmin(validator services.SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := authorize(c, validator, []string{"admin"}, "auth.admin")
		if err != nil {
			return err
		}
		c.Locals(LocalIdentity, identity)
		return c.Next()
	}
}

// AuthUser validates that the request has user role authorization, then loads or
// creates the local user record
func AuthUser(validator services.SessionValidator, users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := authorize(c, validator, []string{"user"}, "auth.user")
		if err != nil {
			return err
		}

		user, err := users.FindOrCreate(c.UserContext(), identity)
		if err != nil {
			return types.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to load user: %v", err), "auth.user")
		}

		c.Locals(LocalIdentity, identity)
		c.Locals(LocalUser, user)
		return c.Next()
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, validator services.SessionValidator, roles []string, errorType string) (services.Identity, error) {
	session := c.Cookies(SessionCookie)
	if session == "" {
		return services.Identity{}, types.NewError(fiber.StatusForbidden,
			fmt.Sprintf("Authorizer cookie %q not found", SessionCookie), errorType)
	}

	identity, err := validator.ValidateSession(c.Protocol()+"://"+c.Hostname(), session, roles)
	if err != nil {
		return services.Identity{}, types.NewError(fiber.StatusForbidden, fmt.Sprintf("Invalid session: %v", err), errorType)
	}

	return identity, nil
}
