package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/botdesk/internal/types"
)

// SupportedMajorVersion is the only API major version served
const SupportedMajorVersion = "1"

// VersionMiddleware parses the X-Api-Version header and stores it in context
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", "1.0.0")

		// Support version aliases
		switch version {
		case "1", "1.0":
			version = "1.0.0"
		}

		major := strings.TrimPrefix(strings.SplitN(version, ".", 2)[0], "v")
		if major != SupportedMajorVersion {
			return types.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("Unsupported API version %q", version), "api.version")
		}

		c.Locals("apiVersion", version)

		return c.Next()
	}
}
