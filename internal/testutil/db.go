// db.go
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

// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/localnerve/botdesk/internal/config"
	"github.com/localnerve/botdesk/internal/database"
	"github.com/localnerve/botdesk/internal/models"
	"gorm.io/gorm"
)

// TestConfig returns a config for an in-memory SQLite database
func TestConfig() *config.Config {
	return &config.Config{
		Port:              "3000",
		DBType:            "sqlite",
		DBDatabase:        ":memory:",
		DBConnectionLimit: 1,
		DBLogLevel:        "silent",
		MessageLimit:      100,
		HistoryLimit:      10,
	}
}

// NewDB opens a migrated in-memory SQLite database that is closed with the test
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(TestConfig())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// CreateUser inserts a user row
func CreateUser(t *testing.T, db *gorm.DB, id, email string) *models.User {
	t.Helper()

	user := &models.User{ID: id, Name: id, Email: email}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", id, err)
	}
	return user
}

// CreateBot inserts a bot row
func CreateBot(t *testing.T, db *gorm.DB, name string) *models.Bot {
	t.Helper()

	bot := &models.Bot{Name: name, Category: "general", SystemPrompt: "You are " + name + "."}
	if err := db.Create(bot).Error; err != nil {
		t.Fatalf("Failed to create bot %s: %v", name, err)
	}
	return bot
}

// Unlock grants user access to bot
func Unlock(t *testing.T, db *gorm.DB, userID string, botID uint64) {
	t.Helper()

	if err := db.Omit("User", "Bot").Create(&models.UserBot{UserID: userID, BotID: botID}).Error; err != nil {
		t.Fatalf("Failed to unlock bot %d for %s: %v", botID, userID, err)
	}
}
