// routes.go
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
	"github.com/localnerve/botdesk/internal/config"
	"github.com/localnerve/botdesk/internal/middleware"
	"github.com/localnerve/botdesk/internal/services"
	"gorm.io/gorm"
)

// Deps are the collaborators the API routes are built from
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Validator services.SessionValidator
	Completer services.Completer
}

// SetupRoutes mounts the API under /api
func SetupRoutes(app *fiber.App, deps Deps) {
	cfg := deps.Config

	users := services.NewUserService(deps.DB)
	bots := services.NewBotService(deps.DB)
	entitlements := services.NewEntitlementService(deps.DB)
	conversations := services.NewConversationService(deps.DB)
	messages := services.NewMessageService(deps.DB)
	preferences := services.NewPreferenceService(deps.DB)
	quota := services.NewQuotaService(entitlements, messages, cfg.AdminEmail, cfg.MessageLimit)
	chat := &services.ChatService{
		Bots:          bots,
		Quota:         quota,
		Conversations: conversations,
		Messages:      messages,
		Completer:     deps.Completer,
		HistoryLimit:  cfg.HistoryLimit,
	}

	healthHandler := &HealthHandler{Config: cfg, DB: deps.DB}
	userHandler := &UserHandler{Users: users}
	botHandler := &BotHandler{Bots: bots, Entitlements: entitlements}
	entitlementHandler := &EntitlementHandler{Entitlements: entitlements, Quota: quota}
	preferenceHandler := &PreferenceHandler{Preferences: preferences}
	conversationHandler := &ConversationHandler{Conversations: conversations, Messages: messages}
	chatHandler := &ChatHandler{Service: chat}

	authUser := middleware.AuthUser(deps.Validator, users)
	authAdmin := middleware.AuthAdmin(deps.Validator)

	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	api.Get("/health", healthHandler.GetHealth)

	api.Get("/me", authUser, userHandler.GetMe)
	api.Put("/me/external-ref", authUser, userHandler.SetExternalRef)

	// Catalog is public to read, admin to write
	api.Get("/bots", botHandler.ListBots)
	api.Get("/bots/:botId", botHandler.GetBot)
	api.Post("/bots", authAdmin, botHandler.CreateBots)
	api.Put("/bots/:botId", authAdmin, botHandler.UpdateBot)
	api.Delete("/bots/:botId", authAdmin, botHandler.DeleteBot)
	api.Post("/bots/:botId/keys", authAdmin, botHandler.IssueKeys)

	// Group middleware would also match /bots/:botId itself, so auth is per route
	bot := api.Group("/bots/:botId")
	bot.Get("/activation", authUser, entitlementHandler.GetActivation)
	bot.Post("/activate", authUser, entitlementHandler.Activate)
	bot.Get("/quota", authUser, entitlementHandler.GetQuota)
	bot.Get("/preferences", authUser, preferenceHandler.GetPreferences)
	bot.Put("/preferences", authUser, preferenceHandler.PutPreferences)
	bot.Post("/chat", authUser, chatHandler.Chat)

	bot.Get("/conversations", authUser, conversationHandler.ListConversations)
	bot.Post("/conversations", authUser, conversationHandler.CreateConversation)
	bot.Get("/conversations/:conversationId", authUser, conversationHandler.GetConversation)
	bot.Patch("/conversations/:conversationId", authUser, conversationHandler.RenameConversation)
	bot.Delete("/conversations/:conversationId", authUser, conversationHandler.DeleteConversation)
	bot.Get("/conversations/:conversationId/messages", authUser, conversationHandler.GetHistory)
	bot.Get("/conversations/:conversationId/search", authUser, conversationHandler.SearchMessages)
}
