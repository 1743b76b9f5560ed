package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/botdesk/internal/models"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/localnerve/botdesk/internal/testutil"
	"github.com/localnerve/botdesk/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	identity services.Identity
	err      error

	origin string
	roles  []string
}

func (s *stubValidator) ValidateSession(origin, _ string, roles []string) (services.Identity, error) {
	s.origin = origin
	s.roles = roles
	return s.identity, s.err
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var ce *types.CustomError
			if errors.As(err, &ce) {
				return c.Status(ce.Code).SendString(ce.Type)
			}
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
	})
}

func withSession(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "token"})
	return req
}

func TestAuthUser(t *testing.T) {
	db := testutil.NewDB(t)
	users := services.NewUserService(db)
	validator := &stubValidator{identity: services.Identity{ID: "u1", Name: "Uma", Email: "uma@example.com", Roles: []string{"user"}}}

	app := newApp()
	app.Get("/me", AuthUser(validator, users), func(c *fiber.Ctx) error {
		user := c.Locals(LocalUser).(*models.User)
		return c.SendString(user.ID + ":" + user.Email)
	})

	resp, err := app.Test(withSession(httptest.NewRequest("GET", "http://bots.example.com/me", nil)))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"user"}, validator.roles)
	assert.Equal(t, "http://bots.example.com", validator.origin)

	stored, err := users.Get(t.Context(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Uma", stored.Name)
}

func TestAuthUser_NoCookie(t *testing.T) {
	db := testutil.NewDB(t)
	validator := &stubValidator{}

	app := newApp()
	app.Get("/me", AuthUser(validator, services.NewUserService(db)), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Nil(t, validator.roles, "validator must not be called without a cookie")
}

func TestAuthAdmin_Rejected(t *testing.T) {
	validator := &stubValidator{err: services.ErrInvalidSession}

	app := newApp()
	app.Post("/bots", AuthAdmin(validator), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	resp, err := app.Test(withSession(httptest.NewRequest("POST", "/bots", nil)))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, []string{"admin"}, validator.roles)
}

func TestVersionMiddleware(t *testing.T) {
	app := newApp()
	app.Use(VersionMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("apiVersion").(string))
	})

	tests := []struct {
		header string
		status int
	}{
		{"", fiber.StatusOK},
		{"1.0", fiber.StatusOK},
		{"1.2.3", fiber.StatusOK},
		{"v1.0.0", fiber.StatusOK},
		{"2.0.0", fiber.StatusBadRequest},
		{"0.9", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("X-Api-Version", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
