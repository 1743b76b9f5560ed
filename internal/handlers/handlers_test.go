package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/botdesk/internal/config"
	"github.com/localnerve/botdesk/internal/handlers"
	"github.com/localnerve/botdesk/internal/models"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/localnerve/botdesk/internal/testutil"
	"github.com/localnerve/botdesk/internal/types"
	"github.com/localnerve/botdesk/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	adminCookie = "admin-session"
	aliceCookie = "alice-session"
	bobCookie   = "bob-session"
)

// fakeValidator accepts the cookies it knows
type fakeValidator map[string]services.Identity

func (f fakeValidator) ValidateSession(_, cookie string, roles []string) (services.Identity, error) {
	id, ok := f[cookie]
	if !ok {
		return services.Identity{}, services.ErrInvalidSession
	}
	for _, role := range roles {
		if !id.HasRole(role) {
			return services.Identity{}, fmt.Errorf("missing role %s", role)
		}
	}
	return id, nil
}

// echoCompleter replies with the message it was sent, or fails with err
type echoCompleter struct {
	err     error
	history []models.Turn
}

func (e *echoCompleter) Complete(_ context.Context, _ string, history []models.Turn, message string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	e.history = history
	return "echo: " + message, nil
}

type testApp struct {
	app       *fiber.App
	db        *gorm.DB
	completer *echoCompleter
}

func setupApp(t *testing.T, tweak func(*config.Config)) *testApp {
	cfg := testutil.TestConfig()
	cfg.AdminEmail = "admin@example.com"
	if tweak != nil {
		tweak(cfg)
	}

	db := testutil.NewDB(t)
	completer := &echoCompleter{}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.SetupRoutes(app, handlers.Deps{
		Config: cfg,
		DB:     db,
		Validator: fakeValidator{
			adminCookie: {ID: "admin", Name: "Admin", Email: "admin@example.com", Roles: []string{"admin", "user"}},
			aliceCookie: {ID: "alice", Name: "Alice", Email: "alice@example.com", Roles: []string{"user"}},
			bobCookie:   {ID: "bob", Name: "Bob", Email: "bob@example.com", Roles: []string{"user"}},
		},
		Completer: completer,
	})

	return &testApp{app: app, db: db, completer: completer}
}

func (ta *testApp) do(t *testing.T, method, path, cookie string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "cookie_session", Value: cookie})
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func (ta *testApp) createBot(t *testing.T, name string) models.Bot {
	t.Helper()

	resp := ta.do(t, "POST", "/api/bots", adminCookie, services.BotInput{Name: name, Category: "games", SystemPrompt: "Be " + name})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var bot models.Bot
	decode(t, resp, &bot)
	return bot
}

func TestCatalog(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.do(t, "POST", "/api/bots", adminCookie, []services.BotInput{
		{Name: "Chess Coach", Category: "games"},
		{Name: "Chef", Category: "food"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created []models.Bot
	decode(t, resp, &created)
	require.Len(t, created, 2)

	resp = ta.do(t, "GET", "/api/bots", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var all []models.Bot
	decode(t, resp, &all)
	assert.Len(t, all, 2)

	resp = ta.do(t, "GET", "/api/bots?category=food", "", nil)
	var food []models.Bot
	decode(t, resp, &food)
	require.Len(t, food, 1)
	assert.Equal(t, "Chef", food[0].Name)

	resp = ta.do(t, "GET", fmt.Sprintf("/api/bots/%d", created[0].ID), "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = ta.do(t, "GET", "/api/bots/9999", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ta.do(t, "GET", "/api/bots/abc", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = ta.do(t, "PUT", fmt.Sprintf("/api/bots/%d", created[1].ID), adminCookie, services.BotInput{Name: "Pastry Chef", Category: "food"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var updated models.Bot
	decode(t, resp, &updated)
	assert.Equal(t, "Pastry Chef", updated.Name)

	resp = ta.do(t, "DELETE", fmt.Sprintf("/api/bots/%d", created[1].ID), adminCookie, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = ta.do(t, "DELETE", fmt.Sprintf("/api/bots/%d", created[1].ID), adminCookie, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCatalogWritesRequireAdmin(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.do(t, "POST", "/api/bots", "", services.BotInput{Name: "Nope"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = ta.do(t, "POST", "/api/bots", aliceCookie, services.BotInput{Name: "Nope"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	var body utils.ErrorResponseStruct
	decode(t, resp, &body)
	assert.Equal(t, "auth.admin", body.Type)

	resp = ta.do(t, "POST", "/api/bots/1/keys", aliceCookie, handlers.IssueKeysRequest{Count: 1})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestActivationFlow(t *testing.T) {
	ta := setupApp(t, nil)
	bot := ta.createBot(t, "Tutor")
	base := fmt.Sprintf("/api/bots/%d", bot.ID)

	resp := ta.do(t, "POST", base+"/keys", adminCookie, handlers.IssueKeysRequest{Count: 2})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var issued handlers.IssueKeysResponse
	decode(t, resp, &issued)
	require.Len(t, issued.Keys, 2)

	var status handlers.ActivationStatus
	decode(t, ta.do(t, "GET", base+"/activation", aliceCookie, nil), &status)
	assert.False(t, status.Activated)

	resp = ta.do(t, "POST", base+"/activate", aliceCookie, handlers.ActivateRequest{Key: issued.Keys[0]})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var activation services.Activation
	decode(t, resp, &activation)
	assert.True(t, activation.Granted)

	decode(t, ta.do(t, "GET", base+"/activation", aliceCookie, nil), &status)
	assert.True(t, status.Activated)

	var quota services.Quota
	decode(t, ta.do(t, "GET", base+"/quota", aliceCookie, nil), &quota)
	assert.True(t, quota.Unlimited)
	assert.Nil(t, quota.Remaining)

	// Each rejection keeps its own type
	var failure utils.ErrorResponseStruct

	resp = ta.do(t, "POST", base+"/activate", bobCookie, handlers.ActivateRequest{Key: issued.Keys[0]})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	decode(t, resp, &failure)
	assert.Equal(t, "activation.used", failure.Type)

	resp = ta.do(t, "POST", base+"/activate", bobCookie, handlers.ActivateRequest{Key: "no-such-key"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	failure = utils.ErrorResponseStruct{}
	decode(t, resp, &failure)
	assert.Equal(t, "activation.key", failure.Type)
	assert.Equal(t, "Invalid activation key", failure.Message)

	other := ta.createBot(t, "Other")
	resp = ta.do(t, "POST", fmt.Sprintf("/api/bots/%d/activate", other.ID), bobCookie, handlers.ActivateRequest{Key: issued.Keys[1]})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	failure = utils.ErrorResponseStruct{}
	decode(t, resp, &failure)
	assert.Equal(t, "activation.mismatch", failure.Type)
	assert.Equal(t, "Activation key is for another bot", failure.Message)

	resp = ta.do(t, "GET", base+"/activation", "", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestChatFlow(t *testing.T) {
	ta := setupApp(t, nil)
	bot := ta.createBot(t, "Guide")
	base := fmt.Sprintf("/api/bots/%d", bot.ID)

	resp := ta.do(t, "POST", base+"/chat", aliceCookie, handlers.ChatRequest{Message: "Plan a trip to 100% Lisbon"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var first services.ChatResult
	decode(t, resp, &first)
	assert.Equal(t, "echo: Plan a trip to 100% Lisbon", first.Reply)
	require.NotZero(t, first.ConversationID)
	require.NotNil(t, first.Quota.Remaining)
	assert.Equal(t, 99, *first.Quota.Remaining)

	resp = ta.do(t, "POST", base+"/chat", aliceCookie, handlers.ChatRequest{Message: "And Porto?", ConversationID: types.FlexUint64(first.ConversationID)})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var second services.ChatResult
	decode(t, resp, &second)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, []models.Turn{
		{Sender: models.SenderUser, Text: "Plan a trip to 100% Lisbon"},
		{Sender: models.SenderBot, Text: "echo: Plan a trip to 100% Lisbon"},
	}, ta.completer.history)

	conv := fmt.Sprintf("%s/conversations/%d", base, first.ConversationID)

	var turns []models.Turn
	decode(t, ta.do(t, "GET", conv+"/messages?limit=3", aliceCookie, nil), &turns)
	require.Len(t, turns, 3)
	assert.Equal(t, "echo: Plan a trip to 100% Lisbon", turns[0].Text)
	assert.Equal(t, "echo: And Porto?", turns[2].Text)

	var hits []services.SearchHit
	decode(t, ta.do(t, "GET", conv+"/search?q=100%25", aliceCookie, nil), &hits)
	assert.Len(t, hits, 2)

	resp = ta.do(t, "GET", conv+"/search", aliceCookie, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var list []services.ConversationSummary
	decode(t, ta.do(t, "GET", base+"/conversations", aliceCookie, nil), &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Plan a trip to 100% Lisbon", list[0].Title)

	// Other users see nothing of alice's conversation
	resp = ta.do(t, "GET", conv, bobCookie, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	decode(t, ta.do(t, "GET", conv+"/messages", bobCookie, nil), &turns)
	assert.Empty(t, turns)

	resp = ta.do(t, "PATCH", conv, aliceCookie, handlers.TitleRequest{Title: "Portugal"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got models.Conversation
	decode(t, ta.do(t, "GET", conv, aliceCookie, nil), &got)
	assert.Equal(t, "Portugal", got.Title)

	resp = ta.do(t, "PATCH", conv, aliceCookie, handlers.TitleRequest{Title: "  "})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = ta.do(t, "DELETE", conv, aliceCookie, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = ta.do(t, "DELETE", conv, aliceCookie, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateConversation(t *testing.T) {
	ta := setupApp(t, nil)
	bot := ta.createBot(t, "Blank")
	base := fmt.Sprintf("/api/bots/%d/conversations", bot.ID)

	resp := ta.do(t, "POST", base, aliceCookie, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created handlers.CreatedResponse
	decode(t, resp, &created)

	var conv models.Conversation
	decode(t, ta.do(t, "GET", fmt.Sprintf("%s/%d", base, created.ID), aliceCookie, nil), &conv)
	assert.Equal(t, services.DefaultConversationTitle, conv.Title)
	assert.Equal(t, models.ConversationStatusOpen, conv.Status)
}

func TestChatQuotaExceeded(t *testing.T) {
	ta := setupApp(t, func(cfg *config.Config) { cfg.MessageLimit = 1 })
	bot := ta.createBot(t, "Limited")
	path := fmt.Sprintf("/api/bots/%d/chat", bot.ID)

	resp := ta.do(t, "POST", path, aliceCookie, handlers.ChatRequest{Message: "one"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = ta.do(t, "POST", path, aliceCookie, handlers.ChatRequest{Message: "two"})
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	var body utils.ErrorResponseStruct
	decode(t, resp, &body)
	assert.Equal(t, "chat.quota", body.Type)
	assert.Equal(t, "Message limit reached", body.Message)

	// Administrator is never limited
	resp = ta.do(t, "POST", path, adminCookie, handlers.ChatRequest{Message: "one"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = ta.do(t, "POST", path, adminCookie, handlers.ChatRequest{Message: "two"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestChatUpstreamErrors(t *testing.T) {
	ta := setupApp(t, nil)
	bot := ta.createBot(t, "Flaky")
	path := fmt.Sprintf("/api/bots/%d/chat", bot.ID)

	ta.completer.err = errors.New("connection reset")
	resp := ta.do(t, "POST", path, aliceCookie, handlers.ChatRequest{Message: "hi"})
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	var body utils.ErrorResponseStruct
	decode(t, resp, &body)
	assert.Equal(t, "chat.upstream", body.Type)

	ta.completer.err = fmt.Errorf("%w: Message limit reached", services.ErrUpstreamLimit)
	resp = ta.do(t, "POST", path, aliceCookie, handlers.ChatRequest{Message: "hi"})
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	decode(t, resp, &body)
	assert.Equal(t, "chat.upstream.limit", body.Type)

	// Nothing was stored for the failed turns
	var count int64
	require.NoError(t, ta.db.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count)

	resp = ta.do(t, "POST", path, aliceCookie, handlers.ChatRequest{Message: "   "})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = ta.do(t, "POST", "/api/bots/4242/chat", aliceCookie, handlers.ChatRequest{Message: "hi"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPreferences(t *testing.T) {
	ta := setupApp(t, nil)
	bot := ta.createBot(t, "Stylist")
	path := fmt.Sprintf("/api/bots/%d/preferences", bot.ID)

	var prefs map[string]interface{}
	decode(t, ta.do(t, "GET", path, aliceCookie, nil), &prefs)
	assert.Empty(t, prefs)

	resp := ta.do(t, "PUT", path, aliceCookie, map[string]interface{}{"theme": "dark", "fontSize": 14})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	decode(t, ta.do(t, "GET", path, aliceCookie, nil), &prefs)
	assert.Equal(t, "dark", prefs["theme"])
	assert.EqualValues(t, 14, prefs["fontSize"])

	// Scoped per user
	var bobPrefs map[string]interface{}
	decode(t, ta.do(t, "GET", path, bobCookie, nil), &bobPrefs)
	assert.Empty(t, bobPrefs)
}

func TestMe(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.do(t, "GET", "/api/me", aliceCookie, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var me models.User
	decode(t, resp, &me)
	assert.Equal(t, "alice", me.ID)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Nil(t, me.ExternalRef)

	resp = ta.do(t, "PUT", "/api/me/external-ref", aliceCookie, handlers.ExternalRefRequest{ExternalRef: "tg:12345"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	decode(t, ta.do(t, "GET", "/api/me", aliceCookie, nil), &me)
	require.NotNil(t, me.ExternalRef)
	assert.Equal(t, "tg:12345", *me.ExternalRef)

	resp = ta.do(t, "GET", "/api/me", "forged", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.do(t, "GET", "/api/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var result services.HealthCheckResult
	decode(t, resp, &result)
	assert.Equal(t, "healthy", result.Status)
	assert.Equal(t, "not configured", result.Authorizer)
	assert.Equal(t, 9, result.SchemaVersion)
}

func TestVersionHeader(t *testing.T) {
	ta := setupApp(t, nil)

	req := httptest.NewRequest("GET", "/api/bots", nil)
	req.Header.Set("X-Api-Version", "2.0.0")
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/bots", nil)
	req.Header.Set("X-Api-Version", "1.4.2")
	resp, err = ta.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
